package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/materix-ai/be-mm-materials/internal/client"
	"github.com/materix-ai/be-mm-materials/internal/config"
	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/handler"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/middleware"
	"github.com/materix-ai/be-mm-materials/internal/repository"
	"github.com/materix-ai/be-mm-materials/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Materials Service (MM-1)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	transferRepo := repository.NewTransferRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	purchaseOrderRepo := repository.NewPurchaseOrderRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize notification publisher (disabled when NATS_URL is empty)
	notifier, err := client.NewNotificationPublisher(cfg.NATS.URL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification publisher")
	}

	// Initialize services
	transferService := service.NewTransferService(transferRepo, assignmentRepo, auditRepo, notifier, log)
	documentService := service.NewDocumentService(requisitionRepo, purchaseOrderRepo, assignmentRepo, notifier, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(transferService, documentService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Transfer routes
	mux.HandleFunc("/api/v1/transfers/create", httpHandler.CreateTransfer)
	mux.HandleFunc("/api/v1/transfers/list", httpHandler.ListTransfers)
	mux.HandleFunc("/api/v1/transfers/get", httpHandler.GetTransfer)
	mux.HandleFunc("/api/v1/transfers/history", httpHandler.GetTransferHistory)
	mux.HandleFunc("/api/v1/transfers/separate", httpHandler.SeparateTransfer)
	mux.HandleFunc("/api/v1/transfers/dispatch", httpHandler.DispatchTransfer)
	mux.HandleFunc("/api/v1/transfers/receive", httpHandler.ReceiveTransfer)
	mux.HandleFunc("/api/v1/transfers/cancel", httpHandler.CancelTransfer)

	// Document routes
	mux.HandleFunc("/api/v1/requisitions/approve", httpHandler.ApproveRequisition)
	mux.HandleFunc("/api/v1/purchase-orders/approve", httpHandler.ApprovePurchaseOrder)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
