package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatepass/gatepass/internal/admin"
	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/dismissal"
	"github.com/gatepass/gatepass/internal/logger"
	"github.com/gatepass/gatepass/internal/notify"
	"github.com/gatepass/gatepass/internal/server"
	"github.com/gatepass/gatepass/internal/store"
	memorystore "github.com/gatepass/gatepass/internal/store/memory"
	postgresstore "github.com/gatepass/gatepass/internal/store/postgres"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"GATEPASS_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"GATEPASS_CORS_ORIGINS"`

	// Authentication
	JWTPublicKey string `help:"path to the ES256 public key PEM used to verify bearer tokens" required:"" env:"GATEPASS_JWT_PUBLIC_KEY"`

	// Notification tuning
	SweepInterval time.Duration `help:"liveness sweep interval for subscriber connections" default:"30s" env:"GATEPASS_SWEEP_INTERVAL"`
	SendTimeout   time.Duration `help:"per-subscriber delivery timeout" default:"5s" env:"GATEPASS_SEND_TIMEOUT"`

	// Tenant seeding
	Plans string `help:"path to a YAML plan file seeding organizations and their ceilings" default:"" env:"GATEPASS_PLANS"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"GATEPASS_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"GATEPASS_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	publicKey, err := os.ReadFile(c.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("failed to read JWT public key: %w", err)
	}
	verifier, err := auth.NewVerifierFromPEM(string(publicKey))
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	// Create stores based on store type
	var (
		orgStore       store.OrganizationStore
		principalStore store.PrincipalStore
		studentStore   store.StudentStore
		classStore     store.ClassStore
		gateStore      store.GateStore
		dismissalStore store.DismissalStore
	)

	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return err
		}

		// Shared connection pool for all PostgreSQL stores
		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		orgStore = postgresstore.NewOrganizationStore(pool)
		principalStore = postgresstore.NewPrincipalStore(pool)
		studentStore = postgresstore.NewStudentStore(pool)
		classStore = postgresstore.NewClassStore(pool)
		gateStore = postgresstore.NewGateStore(pool)
		dismissalStore = postgresstore.NewDismissalStore(pool)

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		orgStore = memorystore.NewOrganizationStore()
		principalStore = memorystore.NewPrincipalStore()
		studentStore = memorystore.NewStudentStore(principalStore)
		classStore = memorystore.NewClassStore()
		gateStore = memorystore.NewGateStore()
		dismissalStore = memorystore.NewDismissalStore()

		log.Info().Msg("Using in-memory stores")
	}

	if c.Plans != "" {
		seeded, err := seedPlans(ctx, c.Plans, orgStore)
		if err != nil {
			return fmt.Errorf("failed to seed plan file: %w", err)
		}
		log.Info().Int("organizations", seeded).Str("file", c.Plans).Msg("Seeded organizations from plan file")
	}

	registry := notify.NewRegistry(notify.RegistryConfig{
		SweepInterval: c.SweepInterval,
		SendTimeout:   c.SendTimeout,
		Logger:        log,
	})
	registry.Start()
	defer registry.Stop()

	hub := notify.NewHub(registry, log)

	engine := dismissal.NewEngine(orgStore, studentStore, gateStore, dismissalStore, hub, log)

	provisioner := admin.NewProvisioner(orgStore, studentStore, principalStore, classStore, gateStore, log)

	srv := server.NewServer(engine, provisioner, registry, verifier, principalStore, orgStore, c.CORSOrigins, log)

	handler := logger.Requests(log)(srv.Handler())

	httpServer := configureHTTPServer(c.Listen, handler)

	// Graceful shutdown on SIGINT/SIGTERM
	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", c.Listen).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-shutdownCtx.Done():
	}

	log.Info().Msg("Shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}
