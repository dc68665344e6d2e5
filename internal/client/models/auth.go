package models

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest is the body posted to the refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// User is the profile returned alongside a fresh session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session is the payload of a successful login or registration.
type Session struct {
	Tokens
	User *User `json:"user,omitempty"`
}
