package locations

import (
	"net/http"
	"strconv"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	Repository *LocationRepository
}

func RegisterRoutes(router *gin.Engine, r *LocationRepository) {
	handler := LocationHandler{Repository: r}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.GET("/locations", security.RequirePermission(roles.OpReadDirectory), handler.GetLocations)
	authorized.GET("/locations/:id", security.RequirePermission(roles.OpReadDirectory), handler.GetLocation)
	authorized.POST("/locations", security.RequirePermission(roles.OpManageDirectory), handler.CreateLocation)
	authorized.PATCH("/locations/:id", security.RequirePermission(roles.OpManageDirectory), handler.UpdateLocation)
	authorized.DELETE("/locations/:id", security.RequirePermission(roles.OpManageDirectory), handler.DeleteLocation)
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	locations, err := h.Repository.GetLocations()
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(locations), "locations": locations})
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	locationID, ok := pathID(c)
	if !ok {
		return
	}

	location, err := h.Repository.GetLocation(locationID)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Area string `json:"area"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	location := models.Location{Name: req.Name, Area: req.Area}
	if err := h.Repository.PersistLocation(&location); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	locationID, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	location, err := h.Repository.UpdateLocation(locationID, req)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	locationID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Repository.RemoveLocation(locationID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted"})
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location id"})
		return 0, false
	}
	return id, true
}
