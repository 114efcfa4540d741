package models

import (
	"github.com/golang-jwt/jwt/v4"
)

// CustomClaims is the JWT payload attached to authenticated sessions. ID is
// the user's account id as a decimal string.
type CustomClaims struct {
	jwt.RegisteredClaims
	ID       string `json:"id"`
	Username string `json:"username"`
}
