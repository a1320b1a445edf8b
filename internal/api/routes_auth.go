package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/handlers"
)

type authRouteDeps struct {
	Handler *handlers.AuthHandler
	// CookieAuth guards routes that read or set the refresh cookie.
	CookieAuth []gin.HandlerFunc
}

func registerAuthRoutes(engine *gin.Engine, deps authRouteDeps) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", deps.Handler.Register)
		auth.POST("/verify", deps.Handler.Verify)
		auth.POST("/resend-activation", deps.Handler.ResendActivation)
		auth.POST("/password/forgot", deps.Handler.ForgotPassword)
		auth.POST("/password/reset", deps.Handler.ResetPassword)
	}

	cookie := auth.Group("", deps.CookieAuth...)
	{
		cookie.GET("/csrf", deps.Handler.CSRFToken)
		cookie.POST("/login", deps.Handler.Login)
		cookie.POST("/refresh", deps.Handler.Refresh)
		cookie.POST("/logout", deps.Handler.Logout)
		cookie.POST("/logout-all", deps.Handler.LogoutAll)
	}
}
