package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/internal/auth"
	"storefront/internal/idempotency"
	"storefront/internal/service"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Products    *service.ProductService
	Categories  *service.CategoryService
	Carts       *service.CartService
	Orders      *service.OrderService
	Reviews     *service.ReviewService
	Users       *service.UserService
	Tokens      *auth.Tokens
	Verifier    auth.Verifier
	Idempotency idempotency.Store
	Logger      *slog.Logger

	ServiceName    string
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	engine      *gin.Engine
	log         *slog.Logger
	name        string
	started     time.Time
	products    *service.ProductService
	categories  *service.CategoryService
	carts       *service.CartService
	orders      *service.OrderService
	reviews     *service.ReviewService
	users       *service.UserService
	tokens      *auth.Tokens
	verifier    auth.Verifier
	idempotency idempotency.Store
}

func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	idem := d.Idempotency
	if idem == nil {
		idem = idempotency.NewMemoryStore(idempotency.TTL)
	}
	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())
	if d.RateLimitRPS > 0 {
		r.Use(newRateLimiter(d.RateLimitRPS, d.RateLimitBurst).middleware())
	}
	s := &Server{
		engine:      r,
		log:         log,
		name:        d.ServiceName,
		started:     time.Now(),
		products:    d.Products,
		categories:  d.Categories,
		carts:       d.Carts,
		orders:      d.Orders,
		reviews:     d.Reviews,
		users:       d.Users,
		tokens:      d.Tokens,
		verifier:    d.Verifier,
		idempotency: idem,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/health", s.health)
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authed := s.requireAuth()

	v1 := s.engine.Group("/api/v1")
	{
		a := v1.Group("/auth")
		a.POST("register", s.register)
		a.POST("login", s.login)
		a.GET("me", authed, s.me)

		users := v1.Group("/users")
		users.POST("", s.createUser)
		users.GET("", s.listUsers)
		users.GET(":id", s.getUser)
		users.PUT(":id", authed, s.updateUser)
		users.DELETE(":id", authed, s.deleteUser)

		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.POST("", authed, s.createProduct)
		products.PUT(":id", authed, s.updateProduct)
		products.DELETE(":id", authed, s.deleteProduct)
		products.PATCH(":id/stock", authed, s.adjustStock)

		categories := v1.Group("/categories")
		categories.GET("", s.listCategories)
		categories.GET(":id", s.getCategory)
		categories.GET(":id/subcategories", s.listSubcategories)
		categories.POST("", authed, s.createCategory)
		categories.PUT(":id", authed, s.updateCategory)
		categories.DELETE(":id", authed, s.deleteCategory)

		cart := v1.Group("/cart", authed)
		cart.GET("", s.getCart)
		cart.DELETE("", s.clearCart)
		cart.POST("items", s.addCartItem)
		cart.PUT("items/:product_id", s.updateCartItem)
		cart.DELETE("items/:product_id", s.removeCartItem)

		orders := v1.Group("/orders", authed)
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.GET(":id/xml", s.exportOrder)
		orders.PUT(":id/status", s.setOrderStatus)
		orders.POST(":id/cancel", s.cancelOrder)

		reviews := v1.Group("/reviews")
		reviews.POST("", authed, s.createReview)
		reviews.GET("my", authed, s.myReviews)
		reviews.GET("product/:product_id", s.productReviews)
		reviews.GET("product/:product_id/rating", s.productRating)
		reviews.GET(":id", s.getReview)
		reviews.PUT(":id", authed, s.updateReview)
		reviews.DELETE(":id", authed, s.deleteReview)
	}
}

// @Summary Service info
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": s.name, "docs": "/swagger/index.html"})
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(s.started).Round(time.Second).String()})
}
