package gateway

import (
	"net/http"

	"github.com/example/foodcourt/pkg/models"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listOutlets(c *gin.Context) {
	outlets, err := g.outlets.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outlets": outlets, "total": len(outlets)})
}

func (g *Gateway) getOutlet(c *gin.Context) {
	outlet, err := g.outlets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outlet)
}

func (g *Gateway) setOutletOpen(c *gin.Context) {
	var req struct {
		Open *bool `json:"open" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.outlets.SetOpen(c.Request.Context(), c.Param("id"), *req.Open); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type applicationRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	OwnerEmail string `json:"owner_email" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Cuisine    string `json:"cuisine"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Category   string `json:"category"`
	Password   string `json:"password" binding:"required"`
}

func (g *Gateway) submitApplication(c *gin.Context) {
	var req applicationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := g.workflow.SubmitApplication(c.Request.Context(), models.OutletApplication{
		UserID:     req.UserID,
		OwnerEmail: req.OwnerEmail,
		Name:       req.Name,
		Cuisine:    req.Cuisine,
		Address:    req.Address,
		Phone:      req.Phone,
		Category:   req.Category,
		Password:   req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}
