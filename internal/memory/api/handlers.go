package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"memoria/internal/memory/history"
	"memoria/internal/models"
	"memoria/pkg/logger"
)

// MemoryService is the surface of the consolidation engine the API depends
// on. *service.Engine satisfies it.
type MemoryService interface {
	Remember(ctx context.Context, userID, text string) ([]models.ConsolidationAction, error)
	Recall(ctx context.Context, userID, query string, limit int) ([]*models.Memory, error)
	Fetch(ctx context.Context, id string) (*models.Memory, error)
	Rename(ctx context.Context, id, content string) (*models.Memory, error)
	Forget(ctx context.Context, id string) error
	ListByTimeRange(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Memory, error)
	PurgeUser(ctx context.Context, userID string) error
	HistoryByMemory(ctx context.Context, memoryID string) ([]*history.Entry, error)
	HistoryByUser(ctx context.Context, userID string, limit int) ([]*history.Entry, error)
}

// API provides the HTTP handlers for the memory service.
type API struct {
	service MemoryService
	logger  *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(service MemoryService, logger *logger.Logger) *API {
	return &API{service: service, logger: logger}
}

// RememberHandler runs the consolidation pipeline on one utterance.
func (a *API) RememberHandler(c *gin.Context) {
	var payload struct {
		User string `json:"user"`
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.User == "" || payload.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user and text are required"})
		return
	}

	actions, err := a.service.Remember(c.Request.Context(), payload.User, payload.Text)
	if err != nil {
		a.logger.WithUser(payload.User).WithError(models.ErrorInfo{Message: err.Error()}).Error("consolidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to consolidate memories"})
		return
	}

	if actions == nil {
		actions = []models.ConsolidationAction{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// SearchHandler returns memories ranked by similarity to the query.
func (a *API) SearchHandler(c *gin.Context) {
	userID := c.Query("user")
	query := c.Query("q")
	if userID == "" || query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user and q are required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	memories, err := a.service.Recall(c.Request.Context(), userID, query, limit)
	if err != nil {
		a.logger.WithUser(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("recall failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search memories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": memoriesOrEmpty(memories)})
}

// ListHandler returns memories created within a time range.
func (a *API) ListHandler(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	start := time.Time{}
	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
			return
		}
		start = parsed
	}
	end := time.Now()
	if s := c.Query("end"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		end = parsed
	}

	memories, err := a.service.ListByTimeRange(c.Request.Context(), userID, start, end, limit)
	if err != nil {
		a.logger.WithUser(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list memories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": memoriesOrEmpty(memories)})
}

// GetHandler returns one memory by ID.
func (a *API) GetHandler(c *gin.Context) {
	mem, err := a.service.Fetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch memory"})
		return
	}
	if mem == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}
	c.JSON(http.StatusOK, mem)
}

// UpdateHandler replaces the content of one memory.
func (a *API) UpdateHandler(c *gin.Context) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	mem, err := a.service.Rename(c.Request.Context(), c.Param("id"), payload.Text)
	if err != nil {
		if errors.Is(err, models.ErrMemoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
			return
		}
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update memory"})
		return
	}
	c.JSON(http.StatusOK, mem)
}

// DeleteHandler removes one memory by ID.
func (a *API) DeleteHandler(c *gin.Context) {
	if err := a.service.Forget(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, models.ErrMemoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
			return
		}
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete memory"})
		return
	}
	c.Status(http.StatusNoContent)
}

// PurgeHandler removes every memory of one user.
func (a *API) PurgeHandler(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	if err := a.service.PurgeUser(c.Request.Context(), userID); err != nil {
		a.logger.WithUser(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("purge failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purge memories"})
		return
	}
	c.Status(http.StatusNoContent)
}

// MemoryHistoryHandler returns the change log of one memory.
func (a *API) MemoryHistoryHandler(c *gin.Context) {
	entries, err := a.service.HistoryByMemory(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("history lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// UserHistoryHandler returns the most recent change-log entries of one user.
func (a *API) UserHistoryHandler(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := a.service.HistoryByUser(c.Request.Context(), userID, limit)
	if err != nil {
		a.logger.WithUser(userID).WithError(models.ErrorInfo{Message: err.Error()}).Error("history lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func memoriesOrEmpty(memories []*models.Memory) []*models.Memory {
	if memories == nil {
		return []*models.Memory{}
	}
	return memories
}
