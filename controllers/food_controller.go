package controllers

import (
	"net/http"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type FoodController struct {
	Edamam *services.EdamamService
}

func NewFoodController(eda *services.EdamamService) *FoodController {
	return &FoodController{Edamam: eda}
}

// GET /food/search?q=apple
func (fc *FoodController) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	out, err := fc.Edamam.SearchFoods(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
