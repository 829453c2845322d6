package routes

import (
	"net/http"
	"time"

	"github.com/contratofacil/platform/internal/config"
	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/handlers"
	"github.com/contratofacil/platform/internal/middleware"
	"github.com/contratofacil/platform/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(cfg *config.Config, blobs services.BlobStore) *gin.Engine {
	router := gin.Default()

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"db_connected": database.GetDB() != nil,
		})
	})

	// Initialize services
	storeTimeout := time.Duration(cfg.StorageTimeout) * time.Second
	store := database.NewContractStore(database.GetDB())
	authService := services.NewAuthService(cfg)
	emailService := services.NewEmailService(cfg, authService)
	documentService := services.NewDocumentService()
	verifier := services.NewSignatureService()
	lifecycleService := services.NewLifecycleService(store, blobs, verifier, emailService, storeTimeout)
	artifactService := services.NewArtifactService(store, blobs, documentService, storeTimeout)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	contractHandler := handlers.NewContractHandler(store, lifecycleService, artifactService, blobs, authService)
	signatureHandler := handlers.NewSignatureHandler(store, lifecycleService, artifactService)
	activityHandler := handlers.NewActivityHandler(store)

	// API routes
	api := router.Group("/api")

	// Middleware to check database readiness
	api.Use(func(c *gin.Context) {
		if database.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service initializing, please try again shortly",
			})
			return
		}
		c.Next()
	})

	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)

			authProtected := auth.Group("")
			authProtected.Use(middleware.AuthMiddleware(authService))
			{
				authProtected.GET("/me", authHandler.GetCurrentUser)
				authProtected.PUT("/profile", authHandler.UpdateProfile)
			}
		}

		// Contract routes (owner only)
		contracts := api.Group("/contracts")
		contracts.Use(middleware.AuthMiddleware(authService))
		{
			contracts.POST("", contractHandler.CreateContract)
			contracts.GET("", contractHandler.ListContracts)
			contracts.GET("/:id", contractHandler.GetContract)
			contracts.PUT("/:id", contractHandler.UpdateContract)
			contracts.PATCH("/:id/status", contractHandler.UpdateStatus)
			contracts.DELETE("/:id", contractHandler.DeleteContract)
			contracts.GET("/:id/view", contractHandler.ViewContract)
			contracts.GET("/:id/download", contractHandler.DownloadContract)
			contracts.POST("/:id/signature", signatureHandler.UploadOwnerSignature)
		}

		// Activity feed
		activities := api.Group("/activities")
		activities.Use(middleware.AuthMiddleware(authService))
		{
			activities.GET("", activityHandler.ListActivities)
		}

		// Public counter-party routes, keyed by contract id
		public := api.Group("/public/contracts")
		{
			public.GET("/:id", signatureHandler.GetPublicContract)
			public.GET("/:id/document", signatureHandler.DownloadPublicDocument)
			public.POST("/:id/signature", signatureHandler.UploadClientSignature)
		}
	}

	return router
}
