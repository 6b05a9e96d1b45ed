package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/jharmon96/inkwell/internal/auth"
	"github.com/jharmon96/inkwell/pkg/errors"
	"github.com/jharmon96/inkwell/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxUserIDKey  = "userID"
	CtxIsStaffKey = "isStaff"
)

// Auth enforces JWT bearer authentication using the supplied token service.
// Only access tokens pass; refresh tokens presented here are rejected.
func Auth(tokens *iauth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := tokens.Verify(token, iauth.TokenTypeAccess)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxIsStaffKey, claims.IsStaff)

		c.Next()
	}
}

// OptionalAuth populates identity context when a valid bearer token is
// present but lets anonymous requests through. Used on public blog reads so
// staff callers can see unpublished posts.
func OptionalAuth(tokens *iauth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			token := strings.TrimSpace(authz[7:])
			if claims, err := tokens.Verify(token, iauth.TokenTypeAccess); err == nil {
				c.Set(CtxClaimsKey, claims)
				c.Set(CtxUserIDKey, claims.UserID)
				c.Set(CtxIsStaffKey, claims.IsStaff)
			}
		}
		c.Next()
	}
}

// RequireStaff aborts with 403 unless the authenticated caller is staff.
// Must run after Auth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsStaffKey) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
