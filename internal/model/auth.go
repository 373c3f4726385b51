package model

// Credentials is the login payload forwarded to the backend.
type Credentials struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is what /api/login returns.
type LoginResponse struct {
	JWT       string `json:"jwt"`
	TokenType string `json:"tokenType,omitempty"`
	ExpiresIn int64  `json:"expiresIn,omitempty"`
}
