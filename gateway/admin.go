package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
}

func (g *Gateway) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := g.validator.Login(c.Request.Context(), req.AdminID, c.GetHeader(headerDevice))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (g *Gateway) adminLogout(c *gin.Context) {
	if err := g.validator.Logout(c.Request.Context(), c.GetHeader(headerSession), c.GetHeader(headerDevice)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) listPendingApplications(c *gin.Context) {
	apps, err := g.workflow.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "total": len(apps)})
}

func (g *Gateway) approveApplication(c *gin.Context) {
	outlet, err := g.workflow.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outlet)
}

func (g *Gateway) rejectApplication(c *gin.Context) {
	if err := g.workflow.Reject(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
