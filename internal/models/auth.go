package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StudentLoginRequest carries the student's college email.
type StudentLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// StudentProfile describes a logged-in student. Name and department are
// derived from the email local-part by the identity parser.
type StudentProfile struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Department string `json:"department"`
	RollYear   string `json:"roll_year"`
}

// FacultyLoginRequest carries faculty credentials.
type FacultyLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// FacultyLoginResponse returns the faculty profile and an access token for
// the protected review endpoints.
type FacultyLoginResponse struct {
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// FacultyUser is a persisted reviewer account.
type FacultyUser struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// JWTClaims is the access-token payload for faculty sessions.
type JWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
