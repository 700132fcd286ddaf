package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/config"
	"github.com/Christina1281995/tema-emotions/internal/dataset"
	"github.com/Christina1281995/tema-emotions/internal/handler"
	"github.com/Christina1281995/tema-emotions/internal/identity"
	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/repository"
	"github.com/Christina1281995/tema-emotions/internal/server"
	"github.com/Christina1281995/tema-emotions/internal/service"
	"github.com/Christina1281995/tema-emotions/internal/session"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting TEMA emotion labeling service...")

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	mode := models.LabelingMode(cfg.Labeling.Mode)
	if !mode.Valid() {
		logger.Fatal("Invalid labeling mode", zap.String("mode", cfg.Labeling.Mode))
	}

	// Database connection
	dsn := cfg.Database.URL
	if cfg.Database.Driver == repository.DriverSQLite {
		dsn = cfg.Database.Path
		os.MkdirAll("./data", 0755)
	}

	db, err := repository.NewDB(cfg.Database.Driver, dsn, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize repositories and collaborators
	resultRepo := repository.NewResultRepository(db, logger)
	users := identity.NewDirectory(cfg.Users)
	loader := dataset.NewLoader(logger)

	// Session manager with idle sweeper
	sessions := session.NewManager(cfg.SessionTTL(), logger)
	if err := sessions.StartSweeper(cfg.Auth.SweepSpec); err != nil {
		logger.Fatal("Failed to start session sweeper", zap.Error(err))
	}
	defer sessions.StopSweeper()

	// Initialize services
	labeling := service.NewLabelingService(users, loader, sessions, resultRepo, mode, cfg.Labeling.Predefined, logger)
	tokens := service.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.SessionTTL())

	// Initialize HTTP handler and server
	apiHandler := handler.NewHandler(labeling, tokens, sessions, !cfg.Labeling.Predefined, logger)
	srv := server.NewServer(apiHandler, logger)
	srv.Start(cfg.Server.Port)

	logger.Info("TEMA emotion labeling service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Labeling.Mode),
		zap.Bool("predefined", cfg.Labeling.Predefined))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
