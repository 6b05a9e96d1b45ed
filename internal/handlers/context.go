package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jharmon96/inkwell/internal/middleware"
	"github.com/jharmon96/inkwell/internal/permissions"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorFromContext builds the permission actor from the identity the auth
// middleware stored on the request. The zero actor is an anonymous reader.
func actorFromContext(c *gin.Context) permissions.Actor {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		return permissions.Actor{}
	}
	return permissions.Actor{
		UserID:        userID,
		IsStaff:       c.GetBool(middleware.CtxIsStaffKey),
		Authenticated: true,
	}
}
