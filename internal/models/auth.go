package models

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin may reload the index and upload sources.
const RoleAdmin = "admin"

// JWTClaims are the claims carried by operator tokens.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
