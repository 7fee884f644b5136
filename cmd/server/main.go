/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the data integrity engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env supported)
  2. Apply command-line flag overrides
  3. Initialize SQLite store
  4. Load policy presets (built-ins plus optional POLICY_FILE)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (overrides PORT)
  -db        SQLite database path (overrides DB_PATH)
             Use ":memory:" for an in-memory database
  -policies  Policy definitions file (overrides POLICY_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/integrity.db"

  # Run with custom policy presets
  ./server -policies="./policies.yaml"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulse/integrity-engine/api"
	"github.com/pulse/integrity-engine/config"
	"github.com/pulse/integrity-engine/factory"
	"github.com/pulse/integrity-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	policyFile := flag.String("policies", cfg.PolicyFile, "policy definitions file (json/yaml)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Policy presets: built-ins plus optional file definitions
	policies := factory.NewPolicySet()
	if *policyFile != "" {
		if err := policies.LoadFile(*policyFile); err != nil {
			log.Fatalf("Failed to load policy file: %v", err)
		}
		log.Printf("Loaded policy presets from %s", *policyFile)
	}

	// Initialize handler
	handler := api.NewHandler(store, policies)
	handler.Pipeline.MaxPayloadBytes = cfg.MaxPayloadBytes

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
