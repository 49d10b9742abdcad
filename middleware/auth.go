package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"omnilead-server/services"
	"omnilead-server/types"
)

// Claims represents the JWT claims (using shared types)
type Claims = types.Claims

const claimsKey = "claims"

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*types.Claims, error)
}

var _ TokenVerifier = (*services.JWTService)(nil)

// AdminAuth requires an admin session.
func AdminAuth(verifier TokenVerifier) gin.HandlerFunc {
	return requireRole(verifier, types.RoleAdmin)
}

// ContractorAuth requires a contractor session. The contractor id is the
// token subject.
func ContractorAuth(verifier TokenVerifier) gin.HandlerFunc {
	return requireRole(verifier, types.RoleContractor)
}

func requireRole(verifier TokenVerifier, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "authorization token required",
			})
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "token is invalid or expired",
			})
			return
		}

		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"ok":    false,
				"error": role + " access required",
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// TokenCookie is the cookie the login handlers set.
const TokenCookie = "token"

// extractToken reads a bearer header, then the token cookie, then the token
// query parameter (browsers cannot set headers on WebSocket upgrades).
func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// ClaimsFrom returns the claims set by the auth middleware, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
