package api

import (
	"net/http"

	dialinHandler "q-pipecat/internal/dialin/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router        *gin.RouterGroup
	dialinHandler dialinHandler.Handler
	metrics       http.Handler

	// webhookMiddleware runs only on the vendor webhook routes
	webhookMiddleware []gin.HandlerFunc
}

func New(router *gin.RouterGroup, dialinHandler dialinHandler.Handler, metrics http.Handler, webhookMiddleware ...gin.HandlerFunc) API {
	return API{
		router:            router,
		dialinHandler:     dialinHandler,
		metrics:           metrics,
		webhookMiddleware: webhookMiddleware,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/metrics", gin.WrapH(a.metrics))

	webhooks := a.router.Group("", a.webhookMiddleware...)
	webhooks.POST("/daily_start_bot", a.dialinHandler.HandleDailyStartBot)
	webhooks.POST("/twilio_start_bot", a.dialinHandler.HandleTwilioStartBot)

	a.router.GET("/calls", a.dialinHandler.HandleListCalls)
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
