package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcart-service/controllers"
	"shopcart-service/metrics"
)

// Handlers bundles what the router needs to mount every endpoint.
type Handlers struct {
	Auth     *controllers.AuthController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Products *controllers.ProductController

	// RequireAuth rejects requests without a valid session.
	RequireAuth gin.HandlerFunc
	// OptionalAuth attaches the caller when a session is present.
	OptionalAuth gin.HandlerFunc

	Metrics *metrics.Registry
	Service string
}

// Setup mounts the API at the root and again under /api.
func Setup(r *gin.Engine, h Handlers) {
	RegisterHealthRoutes(r, h.Service)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	for _, group := range []*gin.RouterGroup{&r.RouterGroup, r.Group("/api")} {
		RegisterAuthRoutes(group, h.Auth, h.RequireAuth, h.OptionalAuth)
		RegisterProductRoutes(group, h.Products)
		RegisterCartRoutes(group, h.Cart, h.RequireAuth)
		RegisterCheckoutRoutes(group, h.Checkout, h.RequireAuth)
	}
}

func RegisterHealthRoutes(r *gin.Engine, service string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": service})
	})
}

// RegisterAuthRoutes mounts /auth/* plus the short aliases older clients use.
func RegisterAuthRoutes(rg *gin.RouterGroup, ac *controllers.AuthController, requireAuth, optionalAuth gin.HandlerFunc) {
	mount := func(g *gin.RouterGroup) {
		g.POST("/signup", ac.Signup)
		g.POST("/login", ac.Login)
		g.POST("/guest", ac.ContinueAsGuest)
		g.POST("/logout", optionalAuth, ac.Logout)
		g.GET("/me", requireAuth, ac.Me)
	}
	mount(rg.Group("/auth"))
	mount(rg)
}

func RegisterProductRoutes(rg *gin.RouterGroup, pc *controllers.ProductController) {
	rg.GET("/products", pc.GetProducts)
}

func RegisterCartRoutes(rg *gin.RouterGroup, cc *controllers.CartController, requireAuth gin.HandlerFunc) {
	cart := rg.Group("/cart")
	cart.Use(requireAuth)
	{
		cart.GET("", cc.GetCart)
		cart.POST("", cc.AddToCart)
		cart.POST("/merge", cc.MergeCart)
		cart.DELETE("/:lineId", cc.RemoveFromCart)
	}
}

func RegisterCheckoutRoutes(rg *gin.RouterGroup, co *controllers.CheckoutController, requireAuth gin.HandlerFunc) {
	rg.POST("/checkout", requireAuth, co.Checkout)
	rg.POST("/cart/checkout", requireAuth, co.Checkout)
}
