package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medcore/hms/internal/config"
	"github.com/medcore/hms/internal/domain/billing"
	"github.com/medcore/hms/internal/domain/identity"
	"github.com/medcore/hms/internal/domain/pharmacy"
	"github.com/medcore/hms/internal/domain/scheduling"
	"github.com/medcore/hms/internal/platform/auth"
	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/internal/platform/middleware"
	"github.com/medcore/hms/internal/platform/reporting"
	"github.com/medcore/hms/internal/platform/seed"
	"github.com/medcore/hms/internal/platform/validate"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator and demo records on an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			app := newApp(cfg, pool, newLogger(cfg))
			defer app.close()
			seeded, err := app.seeder.Bootstrap(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			if !seeded {
				fmt.Println("Accounts already exist; nothing to seed.")
				return nil
			}
			fmt.Println("Seed complete.")
			return nil
		},
	}
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// app holds the wired services shared by the serve and seed commands.
type app struct {
	tokens     *auth.TokenManager
	revoked    *auth.RevocationList
	authSvc    *auth.Service
	identity   *identity.Service
	pharmacy   *pharmacy.Service
	billing    *billing.Service
	scheduling *scheduling.Service
	reports    *reporting.Handler
	seeder     *seed.Seeder
}

func newApp(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *app {
	tx := db.NewTransactor(pool)

	revoked := auth.NewRevocationList(time.Minute)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL).WithRevocations(revoked)
	authSvc := auth.NewService(auth.NewAccountRepoPG(pool), tokens)

	identitySvc := identity.NewService(
		identity.NewDepartmentRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		identity.NewStaffRepoPG(pool),
	)

	pharmacySvc := pharmacy.NewService(
		pharmacy.NewMedicationRepoPG(pool),
		pharmacy.NewPrescriptionRepoPG(pool),
		pharmacy.NewPrescriptionItemRepoPG(pool),
		tx, logger,
	)

	billingSvc := billing.NewService(billing.NewBillRepoPG(pool), billing.NewBillItemRepoPG(pool), tx, logger)
	billingSvc.SetChargeSource(prescriptionCharges(pharmacySvc))

	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), logger)

	seeder := seed.New(authSvc, identitySvc, pharmacySvc, tx, seed.Options{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	}, logger)

	return &app{
		tokens:     tokens,
		revoked:    revoked,
		authSvc:    authSvc,
		identity:   identitySvc,
		pharmacy:   pharmacySvc,
		billing:    billingSvc,
		scheduling: schedulingSvc,
		reports:    reporting.NewHandler(pool),
		seeder:     seeder,
	}
}

func (a *app) close() {
	a.revoked.Close()
}

// pricer is the pharmacy side of prescription billing.
type pricer interface {
	ChargesForPrescription(ctx context.Context, prescriptionID string) (string, []pharmacy.LineCharge, error)
}

// prescriptionCharges adapts pharmacy pricing to billing.ChargeSource so the
// two domains do not import each other.
func prescriptionCharges(p pricer) billing.ChargeSource {
	return billing.ChargeSourceFunc(func(ctx context.Context, id string) (string, []billing.Charge, error) {
		patientID, lines, err := p.ChargesForPrescription(ctx, id)
		if err != nil {
			return "", nil, err
		}
		charges := make([]billing.Charge, 0, len(lines))
		for _, l := range lines {
			charges = append(charges, billing.Charge{
				Description: l.Description,
				Quantity:    l.Quantity,
				Amount:      l.Amount,
			})
		}
		return patientID, charges, nil
	})
}

// publicPaths are reachable without a bearer token.
var publicPaths = []string{"/health", "/health/db", "/api/v1/auth/login"}

func newServer(cfg *config.Config, a *app, health db.Pinger, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(auth.BearerMiddleware(a.tokens, auth.PublicPaths(publicPaths...)))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if health != nil {
		e.GET("/health/db", db.HealthHandler(health))
	}

	apiV1 := e.Group("/api/v1")
	auth.NewHandler(a.authSvc).RegisterRoutes(apiV1)
	identity.NewHandler(a.identity).RegisterRoutes(apiV1)
	pharmacy.NewHandler(a.pharmacy).RegisterRoutes(apiV1)
	billing.NewHandler(a.billing).RegisterRoutes(apiV1)
	scheduling.NewHandler(a.scheduling).RegisterRoutes(apiV1)
	a.reports.RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	a := newApp(cfg, pool, logger)
	defer a.close()

	if cfg.SeedOnStart {
		if _, err := a.seeder.Bootstrap(ctx); err != nil {
			logger.Fatal().Err(err).Msg("seed failed")
		}
	}

	e := newServer(cfg, a, pool, logger)

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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
