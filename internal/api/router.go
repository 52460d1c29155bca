package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"batch-dispatch-service/internal/alerts"
	"batch-dispatch-service/internal/batch"
	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/providers"
)

// Deps are the components the HTTP surface drives.
type Deps struct {
	Dispatcher    *batch.Dispatcher
	Store         *batch.Store
	Alerts        *alerts.Manager
	Hub           *providers.PushHub
	Subscriptions SubscriptionRegistry
}

func NewRouter(deps Deps, logger *logging.Logger, basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := &Handler{
		dispatcher:    deps.Dispatcher,
		store:         deps.Store,
		alerts:        deps.Alerts,
		hub:           deps.Hub,
		subscriptions: deps.Subscriptions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

	api := r.Group(basePath)
	{
		// Batches
		api.POST("/batches", h.DispatchBatch)
		api.GET("/batches/:id", h.GetBatchStatus)

		// Alerts
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
		api.DELETE("/alerts/:id", h.DismissAlert)
		api.POST("/analytics/snapshots", h.IngestSnapshot)

		// Push
		api.POST("/push/subscriptions", h.RegisterSubscription)
		api.GET("/push/subscribe", h.Subscribe)
	}
	return r
}
