package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "bookshelf/book-service/docs"
	"bookshelf/pkg/logger"
	"bookshelf/pkg/metrics"
)

const serviceName = "book-service"

// SetupRoutes настраивает все маршруты сервиса
func SetupRoutes(
	bookHandler *BookHandler,
	categoryHandler *CategoryHandler,
	healthHandler *HealthHandler,
	authMiddleware *AuthMiddleware,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Location", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", healthHandler.Health)
	router.GET("/health/readiness", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	editors := authMiddleware.RequireRole(RoleModerator, RoleAdmin)
	admins := authMiddleware.RequireRole(RoleAdmin)

	books := router.Group("/api/book")
	books.Use(authMiddleware.Authenticate())
	{
		books.POST("/create_book", editors, bookHandler.CreateBook)
		books.GET("/all_books", bookHandler.GetAllBooks)
		books.POST("/search", bookHandler.SearchBooks)
		books.GET("/exists/:isbn", bookHandler.BookExists)
		books.PUT("/update/:isbn", editors, bookHandler.UpdateBook)
		books.DELETE("/delete/:isbn", admins, bookHandler.DeleteBook)
		books.GET("/:isbn", bookHandler.GetBook)
	}

	categories := router.Group("/api/category")
	categories.Use(authMiddleware.Authenticate())
	{
		categories.POST("/create_category", editors, categoryHandler.CreateCategory)
		categories.GET("/all_categories", categoryHandler.GetAllCategories)
		categories.PUT("/update/:id", editors, categoryHandler.UpdateCategory)
		categories.DELETE("/delete/:id", admins, categoryHandler.DeleteCategory)
		categories.GET("/:id", categoryHandler.GetCategory)
	}

	return router
}
