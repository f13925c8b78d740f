package lifecycle

import (
	"net/http"
	"strconv"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type LifecycleHandler struct {
	Service *LifecycleService
}

func RegisterRoutes(router *gin.Engine, service *LifecycleService) {
	handler := LifecycleHandler{Service: service}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.POST("/assets/:id/retire", security.RequirePermission(roles.OpRetireAsset), handler.Retire)
}

func (h *LifecycleHandler) Retire(c *gin.Context) {
	assetID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assetID < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	actorID, err := security.ActorID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}

	if err := h.Service.Retire(assetID, req.Reason, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset retired"})
}
