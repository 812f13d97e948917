package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
)

// Identity is the authenticated user as reported by GET /auth/me.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// UnmarshalJSON accepts numeric as well as string identifiers and ignores
// profile fields the portal does not use. A role outside the known set is
// kept verbatim so the denied view can name it; guards never admit it.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    apiclient.ID `json:"id"`
		Email string       `json:"email"`
		Role  string       `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.ID = raw.ID.String()
	i.Email = raw.Email
	role, ok := auth.ParseRole(raw.Role)
	if !ok {
		role = auth.Role(raw.Role)
	}
	i.Role = role
	return nil
}

// AuthClient is the slice of the backend the session store talks to.
type AuthClient interface {
	Me(ctx context.Context) (*Identity, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type apiAuth struct {
	api *apiclient.Client
}

// NewAuthClient binds the session store to the backend auth endpoints.
func NewAuthClient(api *apiclient.Client) AuthClient {
	return &apiAuth{api: api}
}

func (a *apiAuth) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := a.api.Get(ctx, "/auth/me", nil, &id); err != nil {
		return nil, err
	}
	if id.ID == "" {
		return nil, errors.New("identity response has no id")
	}
	return &id, nil
}

func (a *apiAuth) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	form := url.Values{"username": {email}, "password": {password}}
	if err := a.api.PostForm(ctx, "/auth/login", form, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login response has no access_token")
	}
	return out.AccessToken, nil
}
