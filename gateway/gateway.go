package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/foodcourt/pkg/approval"
	"github.com/example/foodcourt/pkg/cart"
	"github.com/example/foodcourt/pkg/config"
	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/feed"
	"github.com/example/foodcourt/pkg/order"
	"github.com/example/foodcourt/pkg/repository"
	"github.com/example/foodcourt/pkg/session"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Identity headers. Authentication itself is an external collaborator;
// the gateway trusts the resolved identity it forwards.
const (
	headerUserID  = "X-User-ID"
	headerSession = "X-Session-ID"
	headerDevice  = "X-Device-ID"
)

type Gateway struct {
	config    *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	carts     *cart.Aggregator
	pipeline  *order.Pipeline
	machine   *order.StateMachine
	feeds     *feed.Manager
	workflow  *approval.Workflow
	validator *session.Validator
	outlets   repository.OutletRepository
}

func NewGateway(
	cfg *config.Config,
	logger *zap.Logger,
	carts *cart.Aggregator,
	pipeline *order.Pipeline,
	machine *order.StateMachine,
	feeds *feed.Manager,
	workflow *approval.Workflow,
	validator *session.Validator,
	outlets repository.OutletRepository,
) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:    cfg,
		logger:    logger,
		router:    router,
		carts:     carts,
		pipeline:  pipeline,
		machine:   machine,
		feeds:     feeds,
		workflow:  workflow,
		validator: validator,
		outlets:   outlets,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	{
		carts := v1.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.POST("/items", g.addItem)
			carts.PATCH("/items/:name", g.changeQuantity)
			carts.DELETE("/items/:name", g.removeItem)
			carts.DELETE("", g.clearCart)
		}

		v1.POST("/checkout", g.checkout)

		orders := v1.Group("/orders")
		{
			orders.GET("/shop/:shop", g.listShopOrders)
			orders.GET("/shop/:shop/stream", g.streamShopOrders)
			orders.GET("/mine", g.listUserOrders)
			orders.GET("/mine/stream", g.streamUserOrders)
			orders.PUT("/:id/status", g.updateOrderStatus)
		}

		outlets := v1.Group("/outlets")
		{
			outlets.GET("", g.listOutlets)
			outlets.GET("/:id", g.getOutlet)
			outlets.PUT("/:id/open", g.setOutletOpen)
		}

		v1.POST("/applications", g.submitApplication)

		admin := v1.Group("/admin")
		{
			admin.POST("/login", g.adminLogin)

			guarded := admin.Group("")
			guarded.Use(g.adminSession())
			{
				guarded.POST("/logout", g.adminLogout)
				guarded.GET("/applications", g.listPendingApplications)
				guarded.POST("/applications/:id/approve", g.approveApplication)
				guarded.POST("/applications/:id/reject", g.rejectApplication)
			}
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// adminSession re-validates the presented session against the server
// record on every privileged request; local state never suffices. A
// request that carries only a device id falls back to the mirrored
// pointer, which Validate still re-checks.
func (g *Gateway) adminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(headerSession)
		if sessionID == "" {
			if deviceID := c.GetHeader(headerDevice); deviceID != "" {
				if resolved, err := g.validator.ResolveDevice(c.Request.Context(), deviceID); err == nil {
					sessionID = resolved
				}
			}
		}
		sess, err := g.validator.Validate(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session invalid"})
			return
		}
		c.Set("admin_id", sess.AdminID)
		c.Next()
	}
}

// fail maps the shared fault classes onto HTTP statuses.
func fail(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, fault.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, fault.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, fault.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fault.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, fault.ErrUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
