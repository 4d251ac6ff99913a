// Package runtime wires configuration, storage, and the HTTP server into a
// runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/studioshot/platform/internal/app"
	"github.com/studioshot/platform/internal/app/httpapi"
	"github.com/studioshot/platform/internal/app/metrics"
	"github.com/studioshot/platform/internal/app/storage/postgres"
	"github.com/studioshot/platform/internal/config"
	"github.com/studioshot/platform/internal/middleware"
	"github.com/studioshot/platform/internal/objectstore"
	"github.com/studioshot/platform/internal/provider"
	"github.com/studioshot/platform/pkg/logger"
)

// publicPaths are served without a bearer token.
var publicPaths = []string{
	"/auth/register",
	"/auth/login",
	"/teams/invites/accept",
	"/healthz",
	"/metrics",
}

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg    *config.Config
	log    *logger.Logger
	app    *app.Application
	server *http.Server
	db     *sql.DB
}

// NewApplication constructs a runnable application from the config at path.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Logging)

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	objects, err := buildObjectStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure object store: %w", err)
	}

	var generator provider.ImageGenerator
	if cfg.Provider.Endpoint != "" {
		client := &http.Client{Timeout: cfg.Provider.Timeout}
		generator, err = provider.NewHTTPClient(client, cfg.Provider.Endpoint, cfg.Provider.APIKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure provider: %w", err)
		}
	} else {
		log.Warn("provider endpoint not set; generation worker disabled")
	}

	application, err := app.New(stores, app.Options{
		Objects:             objects,
		Generator:           generator,
		PhotoCount:          cfg.Generation.PhotoCount,
		RegenerationLimit:   cfg.Generation.RegenerationLimit,
		WorkerInterval:      cfg.Generation.WorkerInterval,
		WorkerMaxAttempts:   cfg.Generation.MaxAttempts,
		MaintenanceSchedule: cfg.Maintenance.Schedule,
		StuckAfter:          cfg.Generation.StuckAfter,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}

	auth := middleware.NewAuth(cfg.Auth.Secret, cfg.Auth.TokenTTL, publicPaths, log)
	api, err := httpapi.NewHandler(application, auth, cfg.Server.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("build api: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	if err := application.Attach(limiter); err != nil {
		return nil, fmt.Errorf("register rate limiter: %w", err)
	}

	var chain http.Handler = mux
	chain = metrics.InstrumentHandler(chain)
	chain = limiter.Handler(chain)
	chain = auth.Handler(chain)
	chain = middleware.Brand(cfg.Brands, "studioshot")(chain)
	chain = middleware.NewCORS(cfg.Server.CORSOrigins).Handler(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:    cfg,
		log:    log,
		app:    application,
		server: server,
		db:     db,
	}, nil
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and background services.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping background services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("database dsn not set; using in-memory stores")
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	if cfg.Database.MigrationsDir != "" {
		if err := postgres.Migrate(db, "file://"+cfg.Database.MigrationsDir); err != nil {
			db.Close()
			return app.Stores{}, nil, err
		}
	}

	store := postgres.New(db)
	return app.Stores{
		Persons:     store,
		Teams:       store,
		Invites:     store,
		Contexts:    store,
		Selfies:     store,
		Generations: store,
		Credits:     store,
		Feedback:    store,
	}, db, nil
}

func buildObjectStore(cfg *config.Config, log *logger.Logger) (objectstore.Store, error) {
	if cfg.ObjectStore.Endpoint == "" {
		log.Warn("object store endpoint not set; photos held in memory")
		return objectstore.NewMemory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return objectstore.NewS3(ctx, objectstore.S3Config{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		Bucket:    cfg.ObjectStore.Bucket,
		UseSSL:    cfg.ObjectStore.UseSSL,
	})
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
