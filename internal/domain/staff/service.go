package staff

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
)

var (
	ErrNoHospital  = errors.New("Failed to fetch Admin profile or hospital ID.")
	ErrInvalidRole = errors.New("Role must be Doctor or Hospital Admin.")
)

const (
	msgCreateFailed    = "Staff creation failed. Check fields or server log."
	msgAnalyticsFailed = "Failed to load analytics data."
)

type Gateway interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api Gateway
}

func NewService(api Gateway) *Service {
	return &Service{api: api}
}

// HospitalID returns the hospital the signed-in administrator belongs to.
func (s *Service) HospitalID(ctx context.Context) (string, error) {
	var p Profile
	if err := s.api.Get(ctx, "/users/me/profile", nil, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoHospital, err)
	}
	if p.HospitalID == "" {
		return "", ErrNoHospital
	}
	return p.HospitalID.String(), nil
}

// CreateStaff creates a Doctor or Hospital Admin account affiliated with
// hospitalID.
func (s *Service) CreateStaff(ctx context.Context, hospitalID string, form Form) error {
	if form.Role != auth.RoleDoctor && form.Role != auth.RoleHospitalAdmin {
		return ErrInvalidRole
	}
	return s.api.PostJSON(ctx, "/users/", form.ToRequest(hospitalID), nil)
}

func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	if err := s.api.Get(ctx, "/users/admin/analytics", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateErrorMessage renders a failed CreateStaff.
func CreateErrorMessage(err error) string {
	if errors.Is(err, ErrInvalidRole) {
		return err.Error()
	}
	return apiclient.Message(err, "; ", msgCreateFailed)
}

// AnalyticsErrorMessage renders a failed Analytics call.
func AnalyticsErrorMessage(err error) string {
	return apiclient.Message(err, "; ", msgAnalyticsFailed)
}
