package warehouse

import (
	"net/http"

	"fleetd/internal/assets"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type stockReader interface {
	GetWarehouseStock() ([]assets.WarehouseStock, error)
	ListAssets(filter models.AssetFilter) ([]models.Asset, error)
}

type WarehouseHandler struct {
	Service *WarehouseService
	Stock   stockReader
}

func RegisterRoutes(router *gin.Engine, service *WarehouseService, stock stockReader) {
	handler := WarehouseHandler{Service: service, Stock: stock}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.GET("/warehouse", security.RequirePermission(roles.OpReadAsset), handler.GetStock)
	authorized.GET("/warehouse/:type", security.RequirePermission(roles.OpReadAsset), handler.ListByType)
	authorized.POST("/warehouse/in", security.RequirePermission(roles.OpWarehouseTransfer), handler.SendToWarehouse)
	authorized.POST("/warehouse/out", security.RequirePermission(roles.OpWarehouseTransfer), handler.AssignFromWarehouse)
}

func (h *WarehouseHandler) GetStock(c *gin.Context) {
	stock, err := h.Stock.GetWarehouseStock()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to read warehouse stock", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

func (h *WarehouseHandler) ListByType(c *gin.Context) {
	assetType := c.Param("type")
	if !models.AssetType(assetType).IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid asset type"})
		return
	}

	listed, err := h.Stock.ListAssets(models.AssetFilter{
		Type:   assetType,
		Status: string(models.StateWarehouse),
	})
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(listed), "assets": listed})
}

type transferInRequest struct {
	AssetID int    `json:"asset_id" binding:"required"`
	Reason  string `json:"reason"`
}

func (h *WarehouseHandler) SendToWarehouse(c *gin.Context) {
	var req transferInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	actorID, err := security.ActorID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}

	if err := h.Service.SendToWarehouse(req.AssetID, req.Reason, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset moved to warehouse"})
}

type transferOutRequest struct {
	AssetID    int    `json:"asset_id" binding:"required"`
	PersonID   *int   `json:"person_id"`
	LocationID int    `json:"location_id" binding:"required"`
	Reason     string `json:"reason"`
}

func (h *WarehouseHandler) AssignFromWarehouse(c *gin.Context) {
	var req transferOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	actorID, err := security.ActorID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}

	holder := models.Holder{PersonID: req.PersonID, LocationID: req.LocationID}
	if err := h.Service.AssignFromWarehouse(req.AssetID, holder, req.Reason, actorID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset assigned from warehouse"})
}
