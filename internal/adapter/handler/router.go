package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/core/service"
)

type RouterConfig struct {
	Auth     *service.AuthService
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	authHandler := NewAuthHandler(cfg.Auth)
	productHandler := NewProductHandler(cfg.Products)
	cartHandler := NewCartHandler(cfg.Carts)
	orderHandler := NewOrderHandler(cfg.Orders)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	r.GET("/products", productHandler.List)
	r.GET("/products/:id", productHandler.Get)
	r.GET("/products/category/:category", productHandler.ListByCategory)
	r.GET("/products/seller/:sellerId", productHandler.ListBySeller)

	auth := r.Group("/", RequireAuth(cfg.Auth))
	{
		auth.GET("/auth/profile", authHandler.Profile)

		auth.GET("/cart", cartHandler.Get)
		auth.POST("/cart/items", cartHandler.AddItem)
		auth.PUT("/cart/items/:productId", cartHandler.UpdateItem)
		auth.DELETE("/cart/items/:productId", cartHandler.RemoveItem)
		auth.DELETE("/cart", cartHandler.Clear)

		auth.POST("/orders", orderHandler.Create)
		auth.GET("/orders", orderHandler.List)
		auth.GET("/orders/:id", orderHandler.Get)
		auth.GET("/orders/status/:status", orderHandler.ListByStatus)
		auth.POST("/orders/:id/cancel", orderHandler.Cancel)
		auth.PUT("/orders/:id/status",
			RequireRoles(domain.RoleAdmin, domain.RoleSeller), orderHandler.UpdateStatus)

		sellers := auth.Group("/products", RequireRoles(domain.RoleAdmin, domain.RoleSeller))
		{
			sellers.POST("", productHandler.Create)
			sellers.PUT("/:id", productHandler.Update)
			sellers.DELETE("/:id", productHandler.Delete)
			sellers.PATCH("/:id/stock", productHandler.AdjustStock)
		}
	}

	return r
}
