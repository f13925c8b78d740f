package assets

import (
	"net/http"
	"strconv"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	Service *AssetService
}

func RegisterRoutes(router *gin.Engine, service *AssetService) {
	handler := AssetHandler{Service: service}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.POST("/assets", security.RequirePermission(roles.OpCreateAsset), handler.CreateAsset)
	authorized.GET("/assets", security.RequirePermission(roles.OpReadAsset), handler.ListAssets)
	authorized.GET("/assets/:id", security.RequirePermission(roles.OpReadAsset), handler.GetAsset)
	authorized.PATCH("/assets/:id", security.RequirePermission(roles.OpUpdateAsset), handler.UpdateAsset)
	authorized.DELETE("/assets/:id", security.RequirePermission(roles.OpDeleteAsset), handler.DeleteAsset)
	authorized.POST("/assets/:id/maintenance", security.RequirePermission(roles.OpMaintainAsset), handler.RecordMaintenance)
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	actorID, err := security.ActorID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}

	asset, err := h.Service.Create(req, actorID)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, asset)
}

func (h *AssetHandler) ListAssets(c *gin.Context) {
	filter := models.AssetFilter{
		Type:           c.Query("type"),
		Status:         c.Query("status"),
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("include_deleted") == "true",
	}

	// Only admins see soft-deleted assets.
	if filter.IncludeDeleted {
		if role, _ := c.Get("role"); role != string(roles.Admin) {
			filter.IncludeDeleted = false
		}
	}

	assets, err := h.Service.List(filter)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(assets), "assets": assets})
}

func (h *AssetHandler) GetAsset(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
		return
	}

	asset, err := h.Service.Get(assetID)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, asset)
}

func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
		return
	}

	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if err := h.Service.Update(assetID, partial); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset updated"})
}

func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Service.SoftDelete(assetID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted"})
}

func (h *AssetHandler) RecordMaintenance(c *gin.Context) {
	assetID, ok := pathID(c)
	if !ok {
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

	if err := h.Service.RecordMaintenance(assetID, req.Reason, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Maintenance recorded"})
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return 0, false
	}
	return id, true
}
