package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/response"
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

// clientContext exposes the request and response writer to operations that
// read or set the refresh cookie.
func clientContext(c *gin.Context) *services.ClientContext {
	return &services.ClientContext{Request: c.Request, Writer: c.Writer}
}

// identity returns the caller established by the bearer middleware. It writes
// a 401 and returns false when the route was reached without one.
func identity(c *gin.Context) (services.Identity, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return services.Identity{}, false
	}
	return services.Identity{UserID: userID}, true
}
