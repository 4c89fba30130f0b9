package gateway

import (
	"io"
	"net/http"

	"github.com/example/foodcourt/pkg/cart"
	"github.com/example/foodcourt/pkg/feed"
	"github.com/example/foodcourt/pkg/models"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) userCart(c *gin.Context) (*cart.Handle, string, bool) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return nil, "", false
	}
	handle, err := g.carts.Handle(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return nil, "", false
	}
	return handle, userID, true
}

func (g *Gateway) getCart(c *gin.Context) {
	handle, _, ok := g.userCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handle.Snapshot())
}

type addItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	ShopID      string  `json:"shop_id"`
	ShopName    string  `json:"shop_name"`
	ShopAddress string  `json:"shop_address"`
}

func (g *Gateway) addItem(c *gin.Context) {
	handle, _, ok := g.userCart(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle.AddItem(req.Name, req.Price, cart.ShopRef{
		ID:      req.ShopID,
		Name:    req.ShopName,
		Address: req.ShopAddress,
	})
	c.JSON(http.StatusOK, handle.Snapshot())
}

func (g *Gateway) changeQuantity(c *gin.Context) {
	handle, _, ok := g.userCart(c)
	if !ok {
		return
	}

	var req struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle.ChangeQuantity(c.Param("name"), req.Delta)
	c.JSON(http.StatusOK, handle.Snapshot())
}

func (g *Gateway) removeItem(c *gin.Context) {
	handle, _, ok := g.userCart(c)
	if !ok {
		return
	}
	handle.RemoveItem(c.Param("name"))
	c.JSON(http.StatusOK, handle.Snapshot())
}

func (g *Gateway) clearCart(c *gin.Context) {
	handle, _, ok := g.userCart(c)
	if !ok {
		return
	}
	handle.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) checkout(c *gin.Context) {
	handle, userID, ok := g.userCart(c)
	if !ok {
		return
	}

	var customer models.UserSnapshot
	if err := c.BindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	placed, err := g.pipeline.Submit(c.Request.Context(), userID, handle, customer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

func (g *Gateway) listShopOrders(c *gin.Context) {
	orders, err := g.feeds.List(c.Request.Context(), feed.OutletScope(c.Param("shop")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) listUserOrders(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	orders, err := g.feeds.List(c.Request.Context(), feed.CustomerScope(userID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) streamShopOrders(c *gin.Context) {
	g.stream(c, feed.OutletScope(c.Param("shop")))
}

func (g *Gateway) streamUserOrders(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	g.stream(c, feed.CustomerScope(userID))
}

// stream delivers snapshot events as server-sent events until the client
// disconnects; disconnect cancels the subscription so nothing keeps
// dispatching to a viewer nobody observes.
func (g *Gateway) stream(c *gin.Context, scope feed.Scope) {
	sub, err := g.feeds.Subscribe(c.Request.Context(), scope)
	if err != nil {
		fail(c, err)
		return
	}
	defer sub.Cancel()

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-sub.Events
		if !ok {
			return false
		}
		c.SSEvent("snapshot", ev)
		return true
	})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	updatedBy := c.GetHeader(headerUserID)
	if updatedBy == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req statusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := g.machine.Transition(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status), updatedBy)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      c.Param("id"),
		"message": "Order status updated successfully",
	})
}
