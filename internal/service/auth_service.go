package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/model"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyToken         = errors.New("backend returned an empty token")
)

// AuthService exchanges operator credentials for a backend bearer token.
type AuthService struct {
	api Backend
}

// NewAuthService creates a new AuthService.
func NewAuthService(api Backend) *AuthService {
	return &AuthService{api: api}
}

// Login posts credentials to /api/login. A rejected login matches both
// ErrInvalidCredentials and client.ErrAuth.
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	var out model.LoginResponse
	if err := s.api.Post(ctx, "/api/login", creds, &out); err != nil {
		if errors.Is(err, client.ErrAuth) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	if out.JWT == "" {
		return nil, ErrEmptyToken
	}
	return &out, nil
}
