package auditlog

import (
	"net/http"
	"strconv"

	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type HistoryHandler struct {
	Repository *AuditRepository
}

func RegisterRoutes(router *gin.Engine, r *AuditRepository) {
	handler := HistoryHandler{Repository: r}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.GET("/history", security.RequirePermission(roles.OpReadHistory), handler.GetHistory)
}

func (h *HistoryHandler) GetHistory(c *gin.Context) {
	filter := models.AuditFilter{
		AssetType: c.Query("type"),
		Action:    c.Query("action"),
	}

	limit, offset := parsePage(c)

	events, total, err := h.Repository.Query(filter, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to query history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"events": events,
	})
}

func parsePage(c *gin.Context) (limit, offset int) {
	limit = defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
