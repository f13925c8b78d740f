package people

import (
	"net/http"
	"strconv"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
	"fleetd/pkg/roles"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
)

type PersonHandler struct {
	Repository *PersonRepository
}

func RegisterRoutes(router *gin.Engine, r *PersonRepository) {
	handler := PersonHandler{Repository: r}

	authorized := router.Group("/", security.JWTMiddleware())
	authorized.GET("/people", security.RequirePermission(roles.OpReadDirectory), handler.GetPeople)
	authorized.GET("/people/:id", security.RequirePermission(roles.OpReadDirectory), handler.GetPerson)
	authorized.POST("/people", security.RequirePermission(roles.OpManageDirectory), handler.CreatePerson)
	authorized.PATCH("/people/:id", security.RequirePermission(roles.OpManageDirectory), handler.UpdatePerson)
	authorized.DELETE("/people/:id", security.RequirePermission(roles.OpManageDirectory), handler.DeletePerson)
}

func (h *PersonHandler) GetPeople(c *gin.Context) {
	people, err := h.Repository.GetPeople()
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(people), "people": people})
}

func (h *PersonHandler) GetPerson(c *gin.Context) {
	personID, ok := pathID(c)
	if !ok {
		return
	}

	person, err := h.Repository.GetPerson(personID)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	person.Assets, err = h.Repository.GetPersonAssets(personID)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, person)
}

func (h *PersonHandler) CreatePerson(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		JobTitle string `json:"job_title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	person := models.Person{Name: req.Name, Email: req.Email, JobTitle: req.JobTitle}
	if err := h.Repository.PersistPerson(&person); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, person)
}

func (h *PersonHandler) UpdatePerson(c *gin.Context) {
	personID, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	person, err := h.Repository.UpdatePerson(personID, req)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, person)
}

func (h *PersonHandler) DeletePerson(c *gin.Context) {
	personID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Repository.SoftDeletePerson(personID); err != nil {
		c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Person deleted"})
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid person id"})
		return 0, false
	}
	return id, true
}
