package main

import (
	"context"
	"log"

	"github.com/contratofacil/platform/internal/config"
	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/routes"
	"github.com/contratofacil/platform/internal/services"
)

func main() {
	log.Println("Starting application...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Config loaded. Database Type: %s, Storage Backend: %s", cfg.DatabaseType, cfg.StorageBackend)

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize blob storage
	blobs, err := services.NewBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}
	if minioStore, ok := blobs.(*services.MinioStorage); ok {
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("Failed to ensure storage bucket: %v", err)
		}
	}

	// Setup router
	router := routes.SetupRouter(cfg, blobs)

	// Start server
	addr := cfg.ServerHost + ":" + cfg.ServerPort
	log.Printf("Server starting on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
