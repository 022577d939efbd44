package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cliniq/cliniq/internal/config"
	"github.com/cliniq/cliniq/internal/domain/patient"
	"github.com/cliniq/cliniq/internal/platform/auth"
	"github.com/cliniq/cliniq/internal/platform/db"
	"github.com/cliniq/cliniq/internal/platform/middleware"
	"github.com/cliniq/cliniq/internal/platform/websocket"
)

const defaultMigrationsDir = "migrations"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cliniq-server",
		Short: "Clinic patient queue API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the queue API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	var migrationsDir string
	cmd.PersistentFlags().StringVar(&migrationsDir, "dir", defaultMigrationsDir, "migrations directory")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir)
			applied, err := migrator.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", applied)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new empty migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := createMigrationFile(migrationsDir, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	cmd.AddCommand(createCmd)
	return cmd
}

// createMigrationFile writes an empty migration named after the next free
// version in dir, e.g. "003_add_notes.sql".
func createMigrationFile(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read migrations directory %s: %w", dir, err)
	}

	version := 0
	for _, entry := range entries {
		base := entry.Name()
		if !strings.HasSuffix(base, ".sql") {
			continue
		}
		parts := strings.SplitN(base, "_", 2)
		if len(parts) < 2 {
			continue
		}
		if v, err := strconv.Atoi(parts[0]); err == nil && v > version {
			version = v
		}
	}

	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	path := filepath.Join(dir, fmt.Sprintf("%03d_%s.sql", version+1, name))
	if err := os.WriteFile(path, []byte("-- "+name+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write migration file: %w", err)
	}
	return path, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestTimeout(15 * time.Second))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Notification bus
	hub := websocket.NewHub(cfg.WSSendBuffer, logger)

	// Queue API
	apiV1 := e.Group("/api/v1")

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, hub, logger)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	wsHandler := websocket.NewHandler(hub)
	wsHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
