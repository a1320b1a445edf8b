package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/handlers"
)

type accountRouteDeps struct {
	Handler     *handlers.AccountHandler
	RequireAuth gin.HandlerFunc
	CookieAuth  []gin.HandlerFunc
}

func registerAccountRoutes(engine *gin.Engine, deps accountRouteDeps) {
	account := engine.Group("/api/account")

	// Confirmations are reachable with the emailed code alone.
	account.POST("/password/verify", deps.Handler.VerifyPasswordChange)
	account.Group("", deps.CookieAuth...).POST("/email/verify", deps.Handler.VerifyEmailChange)

	self := account.Group("", deps.RequireAuth)
	{
		self.GET("/me", deps.Handler.Me)
		self.POST("/email", deps.Handler.RequestEmailChange)
		self.POST("/password", deps.Handler.RequestPasswordChange)
		self.GET("/sessions", deps.Handler.ListSessions)
		self.DELETE("/sessions/:id", deps.Handler.RevokeSession)
		self.GET("/activity", deps.Handler.Activity)
	}
}
