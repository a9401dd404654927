package main

import (
	"fmt"
	"log"
	"os"

	"github.com/udopaints/storefront-backend/config"
	httpDelivery "github.com/udopaints/storefront-backend/internal/delivery/http"
	"github.com/udopaints/storefront-backend/internal/domain"
	"github.com/udopaints/storefront-backend/internal/infrastructure/editor"
	"github.com/udopaints/storefront-backend/internal/infrastructure/session"
	"github.com/udopaints/storefront-backend/internal/infrastructure/shopify"
	"github.com/udopaints/storefront-backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Udo Paints Storefront Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cart add URL: %s", cfg.Shopify.CartAddURL)

	// Initialize infrastructure dependencies
	dismissals := session.NewStore(cfg.Session.TTL)
	log.Printf("Session TTL: %s", cfg.Session.TTL)

	cartClient := shopify.NewClient(cfg.Shopify.CartAddURL, cfg.Shopify.SectionIDs)

	var bridge domain.EditorBridge
	if cfg.Editor.BaseURL != "" {
		editorBridge := editor.NewBridge(cfg.Editor.BaseURL, cfg.Editor.PollInterval, cfg.Editor.PollAttempts)
		defer editorBridge.Close()

		// Enable debug mode in development environment
		if cfg.Server.Environment == "development" {
			editorBridge.SetDebug(true)
			cartClient.SetDebug(true)
			log.Printf("Client debug mode enabled")
		}

		editorBridge.OnStateChange(func(state string) {
			log.Printf("Editor state: %s", state)
		})

		bridge = editorBridge
		log.Printf("Editor bridge configured: %s (poll %s x%d)",
			cfg.Editor.BaseURL, cfg.Editor.PollInterval, cfg.Editor.PollAttempts)
	} else {
		log.Printf("WARNING: Editor bridge not configured - personalization hooks disabled")
	}

	// Initialize usecase layer
	upsellService := usecase.NewUpsellService(
		bridge,
		dismissals,
		usecase.UpsellServiceConfig{
			MinConfidenceThreshold: cfg.Matching.MinConfidenceThreshold,
			EnableDebugLogging:     cfg.Matching.EnableDebugLogging,
			SessionTTL:             cfg.Session.TTL,
		},
	)
	defer upsellService.Close()
	cartService := usecase.NewCartService(cartClient, bridge, cfg.Session.TTL)
	defer cartService.Close()

	log.Printf("Matching: confidence=%.0f%%, debug=%v",
		cfg.Matching.MinConfidenceThreshold,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(upsellService, cartService, bridge)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
