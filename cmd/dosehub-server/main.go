package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dosehub/dosehub/internal/config"
	"github.com/dosehub/dosehub/internal/domain/account"
	"github.com/dosehub/dosehub/internal/domain/auth"
	"github.com/dosehub/dosehub/internal/domain/device"
	"github.com/dosehub/dosehub/internal/domain/dispense"
	"github.com/dosehub/dosehub/internal/domain/identity"
	"github.com/dosehub/dosehub/internal/domain/iot"
	"github.com/dosehub/dosehub/internal/domain/medication"
	"github.com/dosehub/dosehub/internal/domain/prescription"
	"github.com/dosehub/dosehub/internal/platform/blobstore"
	"github.com/dosehub/dosehub/internal/platform/db"
	"github.com/dosehub/dosehub/internal/platform/email"
	"github.com/dosehub/dosehub/internal/platform/googleauth"
	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/internal/platform/metrics"
	"github.com/dosehub/dosehub/internal/platform/middleware"
	"github.com/dosehub/dosehub/internal/platform/token"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dosehub-server",
		Short: "DoseHub dispensing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBConnMaxIdleMinutes) * time.Minute,
	})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully. Apply migrations with: dosehub-server migrate up --schema tenant_" + name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	ctx := context.Background()
	pool, err := newPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := buildServer(cfg, pool, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func buildServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperr.Handler(logger)

	m := metrics.New()

	// Global middleware
	e.Use(middleware.Recovery(logger, m.Panics))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID", iot.DeviceKeyHeader},
		AllowCredentials: true,
	}))
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Platform services
	tokens := token.NewService(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience)

	var mailer email.Sender
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		mailer = email.NewLogSender(logger)
	}

	google := googleauth.NewClient(googleauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})

	blobs := blobstore.NewInMemoryStore()

	// Repositories
	userRepo := identity.NewUserRepoPG(pool)
	refreshRepo := identity.NewRefreshTokenRepoPG(pool)
	profileRepo := account.NewProfileRepoPG(pool)
	doctorRepo := account.NewDoctorRepoPG(pool)
	patientRepo := account.NewPatientRepoPG(pool)
	medicationRepo := medication.NewRepoPG(pool)
	stockRepo := medication.NewStockRepoPG(pool)
	prescriptionRepo := prescription.NewRepoPG(pool)
	deviceRepo := device.NewRepoPG(pool)
	deviceLogRepo := device.NewLogRepoPG(pool)
	dispenseRepo := dispense.NewRepoPG(pool)

	// Services
	accountSvc := account.NewService(profileRepo, doctorRepo, patientRepo)
	medicationSvc := medication.NewService(medicationRepo, stockRepo)
	prescriptionSvc := prescription.NewService(prescriptionRepo)
	deviceSvc := device.NewService(deviceRepo, deviceLogRepo)
	authSvc := auth.NewService(userRepo, refreshRepo, accountSvc, tokens, mailer, google, blobs, m, logger, auth.Config{
		AccessTokenTTL:   time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		RegistrationTTL:  time.Duration(cfg.RegistrationTTLMinutes) * time.Minute,
		RefreshTokenTTL:  time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour,
		ConfirmationTTL:  time.Duration(cfg.ConfirmationTTLMinutes) * time.Minute,
		CodeResendDelay:  time.Duration(cfg.CodeResendDelaySeconds) * time.Second,
		PasswordResetTTL: time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})
	iotSvc := iot.NewService(deviceSvc, prescriptionSvc, medicationSvc, accountSvc, dispenseRepo,
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}, m, logger)

	// Unauthenticated surface
	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	// Dispensers at one pharmacy share a NAT address, so limit them by their
	// API key instead of by IP.
	rateLimitCfg.KeyFunc = func(c echo.Context) string {
		if key := c.Request().Header.Get(iot.DeviceKeyHeader); key != "" {
			return "device:" + key
		}
		key := c.RealIP()
		if tenantID, ok := c.Get("tenant_id").(string); ok && tenantID != "" {
			key = tenantID + ":" + key
		}
		return key
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Auth endpoints manage their own credentials.
	auth.NewHandler(authSvc, tokens).RegisterRoutes(api)

	// Device-facing endpoints authenticate with the device API key.
	iotHandler := iot.NewHandler(iotSvc)
	iotHandler.RegisterDeviceRoutes(api.Group("/iot"))

	// Everything else requires a bearer access token. Patient, medication,
	// device and analytics management is admin territory; prescriptions are
	// shared with doctors.
	protected := api.Group("", auth.RequireAuth(tokens))
	admin := protected.Group("", auth.RequireRole(identity.RoleAdmin))
	clinical := protected.Group("", auth.RequireRole(identity.RoleAdmin, identity.RoleDoctor))

	account.NewHandler(accountSvc).RegisterRoutes(admin)
	medication.NewHandler(medicationSvc).RegisterRoutes(admin)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(clinical)
	device.NewHandler(deviceSvc).RegisterRoutes(admin)
	iotHandler.RegisterOpsRoutes(admin.Group("/iot"))

	blobstore.NewHandler(blobs).RegisterRoutes(protected)

	return e
}
