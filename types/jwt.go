package types

import "github.com/golang-jwt/jwt/v5"

const (
	RoleAdmin      = "admin"
	RoleContractor = "contractor"
)

// Claims represents the JWT claims. Subject carries the contractor id for
// contractor sessions and the admin email for admin sessions.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
