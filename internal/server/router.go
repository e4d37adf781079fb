// Package server assembles the HTTP router for the SmartSpend API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"smartspend/internal/handlers"
	"smartspend/internal/metrics"
	"smartspend/internal/middleware"
	"smartspend/internal/services"

	_ "smartspend/internal/docs" // Import swagger docs
)

// healthTimeout bounds the database ping behind /api/health.
const healthTimeout = 2 * time.Second

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router needs to build its handlers.
type Deps struct {
	DB Pinger

	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Dashboard    services.DashboardServicer
	Imports      services.ImportServicer
	Audit        services.AuditServicer

	Tokens         *middleware.TokenManager
	UploadLimiter  *middleware.RateLimiter
	Metrics        *metrics.Metrics
	MetricsAPIKey  string
	MaxUploadBytes int64
}

// NewRouter wires middleware, handlers and routes into a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Audit, deps.Tokens)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories, deps.Audit)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions, deps.Audit)
	activityHandler := handlers.NewActivityHandler(deps.Audit)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)
	importHandler := handlers.NewImportHandler(deps.Imports, deps.Audit, deps.MaxUploadBytes)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", health(deps.DB))

	if deps.Metrics != nil {
		router.GET("/metrics", middleware.APIKeyAuth(deps.MetricsAPIKey), gin.WrapH(deps.Metrics.Handler()))
	}

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.DELETE("/profile", authHandler.DeleteProfile)
	protected.GET("/profile/activity", activityHandler.GetActivity)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	upload := []gin.HandlerFunc{}
	if deps.UploadLimiter != nil {
		upload = append(upload, deps.UploadLimiter.Middleware())
	}
	upload = append(upload, importHandler.ImportCSV)
	transactions.POST("/import", upload...)

	// Dashboard
	protected.GET("/dashboard", dashboardHandler.GetSummary)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
