package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tabconv/internal/config"
	"tabconv/internal/container"
	"tabconv/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	if err := os.MkdirAll(appConfig.Paths.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	server, err := ui.NewServer(ui.Config{
		Port:        appConfig.Server.Port,
		GinMode:     appConfig.Server.GinMode,
		TempDir:     appConfig.Paths.TempDir,
		MaxUploadMB: appConfig.Server.MaxUploadMB,
	}, appContainer.Conversion, appContainer.Log)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		appContainer.Log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
