package controllers

import (
	"context"
	"errors"
	"fmt"

	"papergraph/config"

	"github.com/supabase-community/supabase-go"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated subject behind a bearer token.
type Identity struct {
	ID    string
	Email string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// NewAuthenticator builds the configured verifier: Supabase's user endpoint or
// local HS256 verification with the project's JWT secret.
func NewAuthenticator(conf config.Configuration) (Authenticator, error) {
	switch conf.Auth.Mode {
	case "supabase":
		client, err := supabase.NewClient(conf.Supabase.URL, conf.Supabase.ServiceKey, nil)
		if err != nil {
			return nil, fmt.Errorf("auth: supabase client: %w", err)
		}
		return &SupabaseAuthenticator{client: client}, nil
	case "jwt":
		return NewJWTAuthenticator(conf.Auth.JwtSecret), nil
	}
	return nil, fmt.Errorf("auth: unsupported mode %q", conf.Auth.Mode)
}

type SupabaseAuthenticator struct {
	client *supabase.Client
}

func (a *SupabaseAuthenticator) Authenticate(_ context.Context, token string) (Identity, error) {
	user, err := a.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Identity{ID: user.ID.String(), Email: user.Email}, nil
}
