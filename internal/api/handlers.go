package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/baletrack/internal/auth"
	"example.com/baletrack/internal/metrics"
	"example.com/baletrack/internal/models"
	"example.com/baletrack/internal/notifier"
	"example.com/baletrack/internal/repository"
	"example.com/baletrack/internal/service"
)

// Handler defines the API handler
type Handler struct {
	baleService *service.BaleService
	registry    *notifier.Registry
}

// NewHandler creates a new API handler
func NewHandler(baleService *service.BaleService, registry *notifier.Registry) *Handler {
	return &Handler{
		baleService: baleService,
		registry:    registry,
	}
}

// RegisterRoutes registers API routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", HealthHandler)
	router.GET("/metrics", MetricsHandler)

	authorized := router.Group("/", auth.ActorMiddleware())
	{
		authorized.GET("/bales", h.ListBales)
		authorized.GET("/bales/:id", h.GetBale)
		authorized.POST("/bales/batch", h.CreateBatch)
		authorized.PATCH("/bales/:id/status", h.UpdateStatus)
		authorized.DELETE("/bales", h.WipeAll)
		authorized.GET("/events", h.StreamEvents)
	}
}

// HealthHandler reports service liveness; also used by field agents as
// their reconnect probe
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MetricsHandler exposes the collected metrics snapshot
func MetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetMetricsCollector().Snapshot())
}

// ListBales lists bales, optionally filtered by status, plot or season
func (h *Handler) ListBales(c *gin.Context) {
	filter := repository.ListFilter{
		Plot:   c.Query("plot"),
		Season: c.Query("season"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.StatusFromString(raw)
		if status == "" {
			NewValidationError(c, "Unknown status filter")
			return
		}
		filter.Status = status
	}

	bales, err := h.baleService.List(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bales)
}

// GetBale returns a single bale with its status history
func (h *Handler) GetBale(c *gin.Context) {
	bale, err := h.baleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bale)
}

// CreateBatch creates a batch of bales with sequential numbers
func (h *Handler) CreateBatch(c *gin.Context) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		WriteError(c, service.ErrForbidden)
		return
	}

	var req models.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		NewValidationError(c, "Invalid request body")
		return
	}

	resp, err := h.baleService.CreateBatch(c.Request.Context(), actor, &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateStatus applies a lifecycle transition to a bale
func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		WriteError(c, service.ErrForbidden)
		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		NewValidationError(c, "Invalid request body")
		return
	}
	target := models.StatusFromString(req.TargetStatus)
	if target == "" {
		NewValidationError(c, "Unknown target status")
		return
	}

	bale, err := h.baleService.Transition(c.Request.Context(), actor, c.Param("id"), target)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bale)
}

// WipeAll deletes every bale and resets all season counters
func (h *Handler) WipeAll(c *gin.Context) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		WriteError(c, service.ErrForbidden)
		return
	}

	var req models.WipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		NewValidationError(c, "Invalid request body")
		return
	}

	deleted, err := h.baleService.WipeAll(c.Request.Context(), actor, req.Confirm)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.WipeResponse{Deleted: deleted})
}

// StreamEvents streams change notifications to the client as
// server-sent events until it disconnects. There is no replay: a
// session only sees events published while its subscription is open.
func (h *Handler) StreamEvents(c *gin.Context) {
	sub := h.registry.Subscribe()
	defer sub.Close()

	metrics.GetMetricsCollector().SetGauge(metrics.GaugeOpenSubscriptions, float64(h.registry.Count()))

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			payload, _ := json.Marshal(gin.H{"timestamp": event.Timestamp})
			c.SSEvent(event.Kind, string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
