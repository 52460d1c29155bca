package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"batch-dispatch-service/internal/alerts"
	"batch-dispatch-service/internal/batch"
	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/internal/providers"
	"batch-dispatch-service/internal/render"
)

// SubscriptionRegistry records push subscriptions. It is backed by the
// database and may be absent.
type SubscriptionRegistry interface {
	RegisterPushSubscription(ctx context.Context, subscriptionID, name string) (models.ContactPoint, error)
}

type Handler struct {
	dispatcher    *batch.Dispatcher
	store         *batch.Store
	alerts        *alerts.Manager
	hub           *providers.PushHub
	subscriptions SubscriptionRegistry
	upgrader      websocket.Upgrader
	logger        *logging.Logger
}

type Recipient struct {
	Phone     string            `json:"phone"`
	Variables map[string]string `json:"variables"`
}

type DispatchRequest struct {
	BatchID     string      `json:"batch_id"`
	Template    string      `json:"template" binding:"required"`
	Recipients  []Recipient `json:"recipients"`
	Attachments []string    `json:"attachments"`
	Private     bool        `json:"private"`
	Author      string      `json:"author"`
}

type SubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	Name           string `json:"name"`
}

func (h *Handler) DispatchBatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for batch: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}

	messages := make([]models.OutboundMessage, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		messages = append(messages, models.OutboundMessage{
			Recipient:   r.Phone,
			Body:        render.Render(req.Template, r.Variables),
			Attachments: req.Attachments,
			IsPrivate:   req.Private,
			Author:      req.Author,
		})
	}

	err := h.dispatcher.Dispatch(req.BatchID, messages, authFrom(c))
	switch {
	case errors.Is(err, batch.ErrInvalidBatch):
		h.logger.Errorf("Rejected batch %s: %v", req.BatchID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, batch.ErrBatchInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Errorf("Failed to dispatch batch %s: %v", req.BatchID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch batch"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"batch_id": req.BatchID})
}

func (h *Handler) GetBatchStatus(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.store.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.alerts.Active())
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.alerts.Acknowledge(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	h.logger.Infof("Acknowledged alert: %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) DismissAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.alerts.Dismiss(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	h.logger.Infof("Dismissed alert: %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) IngestSnapshot(c *gin.Context) {
	var snap models.AnalyticsSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		h.logger.Errorf("Invalid analytics snapshot: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fresh := h.alerts.OnSnapshot(c.Request.Context(), snap)
	if fresh == nil {
		fresh = []models.AlertEvent{}
	}
	c.JSON(http.StatusOK, fresh)
}

func (h *Handler) RegisterSubscription(c *gin.Context) {
	if h.subscriptions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Subscriptions require a database"})
		return
	}
	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	cp, err := h.subscriptions.RegisterPushSubscription(c.Request.Context(), req.SubscriptionID, req.Name)
	if err != nil {
		h.logger.Errorf("Failed to register subscription %s: %v", req.SubscriptionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register subscription"})
		return
	}
	h.logger.Infof("Registered push subscription: %s", req.SubscriptionID)
	c.JSON(http.StatusCreated, cp)
}

// Subscribe upgrades to a websocket and keeps it registered with the push
// hub until the client goes away.
func (h *Handler) Subscribe(c *gin.Context) {
	sub := c.Query("subscription_id")
	if sub == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_id is required"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for %s: %v", sub, err)
		return
	}
	defer conn.Close()

	if !h.hub.Subscribe(sub, conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"))
		return
	}
	defer h.hub.Unsubscribe(sub, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func authFrom(c *gin.Context) models.AuthContext {
	return models.AuthContext{
		UserID: c.GetHeader("X-User-ID"),
		Token:  strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "),
	}
}
