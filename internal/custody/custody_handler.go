package custody

import (
	"net/http"
	"strconv"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type CustodyHandler struct {
	Service *CustodyService
}

func RegisterRoutes(router *gin.Engine, service *CustodyService) {
	handler := CustodyHandler{Service: service}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.POST("/assets/:id/assign", security.RequirePermission(roles.OpAssignAsset), handler.Assign)
	authorized.POST("/assets/:id/unassign", security.RequirePermission(roles.OpUnassignAsset), handler.Unassign)
}

func (h *CustodyHandler) Assign(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
		return
	}

	var holder models.Holder
	if err := c.ShouldBindJSON(&holder); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	actorID, err := security.ActorID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}

	if err := h.Service.Assign(assetID, holder, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset assigned"})
}

func (h *CustodyHandler) Unassign(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		PersonID *int `json:"person_id"`
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

	if err := h.Service.Unassign(assetID, req.PersonID, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset unassigned"})
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return 0, false
	}
	return id, true
}
