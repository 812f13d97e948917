package account

import (
	"context"
	"errors"

	"github.com/prms/portal/internal/platform/apiclient"
)

var ErrPasswordMismatch = errors.New("Passwords do not match.")

const msgRegisterFailed = "Registration failed. Please try again."

// Gateway is the part of the API client registration needs.
type Gateway interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api Gateway
}

func NewService(api Gateway) *Service {
	return &Service{api: api}
}

// Register creates a patient account. Mismatched passwords are rejected
// before any backend call.
func (s *Service) Register(ctx context.Context, form RegisterForm) error {
	if form.Password != form.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return s.api.PostJSON(ctx, "/auth/register", form.ToRequest(), nil)
}

// RegisterErrorMessage renders a failed registration: validation entries
// joined by ", ", else the server detail, else a generic message.
func RegisterErrorMessage(err error) string {
	if errors.Is(err, ErrPasswordMismatch) {
		return err.Error()
	}
	return apiclient.Message(err, ", ", msgRegisterFailed)
}
