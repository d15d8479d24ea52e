package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of an operator access token.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// OperatorInfo describes the authenticated operator.
type OperatorInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}
