package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/dto"
	"github.com/cipherhq/ticketrack-sub010/internal/remote"
	"github.com/cipherhq/ticketrack-sub010/internal/service"
	syncengine "github.com/cipherhq/ticketrack-sub010/internal/sync"
)

// Pinger reports whether the local store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	gateService service.GateServicer
	pinger      Pinger
	router      *gin.Engine
	log         *zap.Logger
}

func NewHandler(gateService service.GateServicer, pinger Pinger, log *zap.Logger) *Handler {
	h := &Handler{
		gateService: gateService,
		pinger:      pinger,
		router:      gin.Default(),
		log:         log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/checkin", h.checkIn)
	h.router.POST("/events/:id/cache", h.cacheEvent)
	h.router.GET("/events/:id/cache", h.cacheStatus)
	h.router.DELETE("/events/:id/cache", h.clearEventCache)
	h.router.DELETE("/cache", h.clearAllCache)
	h.router.GET("/events/:id/attendees", h.attendees)
	h.router.POST("/sync", h.syncNow)
	h.router.GET("/sync/pending", h.pendingCount)
	h.router.POST("/sync/retry-failed", h.retryFailed)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			h.log.Error("Local store unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// checkIn handles POST /checkin
func (h *Handler) checkIn(c *gin.Context) {
	var req dto.CheckInRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid check-in request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.gateService.CheckIn(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to process check-in",
			zap.Error(err),
			zap.String("event_id", req.EventID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Check-in attempt processed",
		zap.String("event_id", req.EventID),
		zap.String("status", resp.Status))

	c.JSON(http.StatusOK, resp)
}

// cacheEvent handles POST /events/:id/cache
func (h *Handler) cacheEvent(c *gin.Context) {
	var req dto.CacheEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid cache request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	eventID := c.Param("id")
	resp, err := h.gateService.CacheEvent(c.Request.Context(), eventID, req.OrganizerID)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "not_found",
				Message: "Event not found",
			})
			return
		}
		h.log.Error("Failed to cache event",
			zap.Error(err),
			zap.String("event_id", eventID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// cacheStatus handles GET /events/:id/cache
func (h *Handler) cacheStatus(c *gin.Context) {
	eventID := c.Param("id")
	resp, err := h.gateService.CacheStatus(c.Request.Context(), eventID)
	if err != nil {
		h.log.Error("Failed to read cache status",
			zap.Error(err),
			zap.String("event_id", eventID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// clearEventCache handles DELETE /events/:id/cache
func (h *Handler) clearEventCache(c *gin.Context) {
	eventID := c.Param("id")
	if err := h.gateService.ClearEventCache(c.Request.Context(), eventID); err != nil {
		h.log.Error("Failed to clear event cache",
			zap.Error(err),
			zap.String("event_id", eventID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// clearAllCache handles DELETE /cache
func (h *Handler) clearAllCache(c *gin.Context) {
	if err := h.gateService.ClearAllCache(c.Request.Context()); err != nil {
		h.log.Error("Failed to clear cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// attendees handles GET /events/:id/attendees
func (h *Handler) attendees(c *gin.Context) {
	eventID := c.Param("id")
	resp, err := h.gateService.Attendees(c.Request.Context(), eventID)
	if err != nil {
		h.log.Error("Failed to list attendees",
			zap.Error(err),
			zap.String("event_id", eventID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// syncNow handles POST /sync
func (h *Handler) syncNow(c *gin.Context) {
	resp, err := h.gateService.SyncNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, syncengine.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, dto.ErrorResponse{
				Error:   "sync_in_progress",
				Message: err.Error(),
			})
			return
		}
		h.log.Error("Sync pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Sync pass triggered",
		zap.Int("synced", resp.Synced),
		zap.Int("failed", resp.Failed))

	c.JSON(http.StatusOK, resp)
}

// pendingCount handles GET /sync/pending
func (h *Handler) pendingCount(c *gin.Context) {
	resp, err := h.gateService.PendingCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// retryFailed handles POST /sync/retry-failed
func (h *Handler) retryFailed(c *gin.Context) {
	resp, err := h.gateService.RetryFailed(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to requeue failed check-ins", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}
