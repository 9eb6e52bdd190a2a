// Package server wires configuration into the gateway and scraper
// deployables and runs their HTTP servers.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/api"
	"github.com/JakeFAU/compliance-gateway/internal/clock/system"
	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/config"
	"github.com/JakeFAU/compliance-gateway/internal/consent"
	"github.com/JakeFAU/compliance-gateway/internal/dispatcher"
	"github.com/JakeFAU/compliance-gateway/internal/secrets"
	gcsstorage "github.com/JakeFAU/compliance-gateway/internal/storage/gcs"
	localstorage "github.com/JakeFAU/compliance-gateway/internal/storage/local"
	memorystorage "github.com/JakeFAU/compliance-gateway/internal/storage/memory"
	pgstore "github.com/JakeFAU/compliance-gateway/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/compliance-gateway/internal/storage/sqlite"
)

// Gateway holds the gateway's dependencies.
type Gateway struct {
	cfg     config.Config
	logger  *zap.Logger
	api     *api.Server
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// BuildGateway resolves credentials and constructs every gateway dependency.
// A nil provider selects the one named by cfg.Secrets. Any missing secret or
// unreachable backend fails the build.
func BuildGateway(ctx context.Context, cfg config.Config, provider secrets.Provider, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("building gateway",
		zap.Int("port", cfg.Server.Port),
		zap.String("secrets_provider", cfg.Secrets.Provider),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("db_provider", cfg.DB.Provider),
	)

	if provider == nil {
		var err error
		provider, err = NewSecretProvider(cfg.Secrets)
		if err != nil {
			return nil, err
		}
	}
	values, err := secrets.Resolve(ctx, provider, cfg.RequiredSecrets()...)
	if err != nil {
		return nil, fmt.Errorf("secrets init failed: %w", err)
	}

	g := &Gateway{cfg: cfg, logger: logger}

	blobs, err := g.setupStorage(ctx, values)
	if err != nil {
		g.Close()
		return nil, err
	}
	checklist, err := g.setupDatabase(ctx, values)
	if err != nil {
		g.Close()
		return nil, err
	}
	dispatch, err := dispatcher.New(dispatcher.Config{
		Endpoint: values[cfg.Secrets.Names.AuditEndpoint],
		Timeout:  cfg.AuditTimeout(),
	}, nil, logger.Named("dispatcher"))
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("dispatcher init failed: %w", err)
	}

	g.api = api.NewServer(
		dispatch,
		consent.New(blobs, cfg.Storage.Prefix, logger.Named("consent")),
		checklist,
		cfg,
		logger.Named("api"),
	)
	return g, nil
}

// NewSecretProvider returns the vault backend named by cfg.
func NewSecretProvider(cfg config.SecretsConfig) (secrets.Provider, error) {
	switch cfg.Provider {
	case config.ProviderAWS:
		p, err := secrets.NewAWSProvider(secrets.AWSConfig{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
		if err != nil {
			return nil, fmt.Errorf("aws secrets provider init failed: %w", err)
		}
		return p, nil
	case config.ProviderEnv, "":
		return secrets.NewEnvProvider(cfg.EnvPrefix), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
}

func (g *Gateway) setupStorage(ctx context.Context, values map[string]string) (compliance.BlobStore, error) {
	switch g.cfg.Storage.Provider {
	case config.ProviderGCS:
		g.logger.Info("using GCS storage backend", zap.String("bucket", g.cfg.Storage.Bucket))
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{
			Bucket:          g.cfg.Storage.Bucket,
			CredentialsJSON: values[g.cfg.Secrets.Names.StorageCredential],
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		g.addCloser("gcs client", store.Close)
		return store, nil
	case config.ProviderLocal:
		g.logger.Info("using local storage backend", zap.String("path", g.cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: g.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	default:
		g.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (g *Gateway) setupDatabase(ctx context.Context, values map[string]string) (compliance.ChecklistStore, error) {
	db := g.cfg.DB
	switch db.Provider {
	case config.ProviderPostgres:
		store, err := pgstore.Open(ctx, pgstore.Config{
			Host:            db.Host,
			Port:            db.Port,
			User:            db.User,
			Password:        values[g.cfg.Secrets.Names.DatabasePassword],
			Database:        db.Name,
			SSLMode:         db.SSLMode,
			MaxConns:        db.MaxConns,
			MinConns:        db.MinConns,
			MaxConnLifetime: time.Duration(db.MaxConnLifetimeSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("checklist store init failed: %w", err)
		}
		g.addCloser("postgres pool", func() error {
			store.Close()
			return nil
		})
		g.logger.Info("checklist store initialized", zap.String("host", db.Host), zap.String("database", db.Name))
		return store, nil
	case config.ProviderSQLite:
		store, err := sqlitestore.Open(ctx, db.SQLitePath, system.New())
		if err != nil {
			return nil, fmt.Errorf("checklist store init failed: %w", err)
		}
		g.addCloser("sqlite database", store.Close)
		g.logger.Info("checklist store initialized", zap.String("path", db.SQLitePath))
		return store, nil
	default:
		g.logger.Warn("using in-memory checklist store; tasks are lost on restart")
		return memorystorage.NewChecklistStore(system.New()), nil
	}
}

func (g *Gateway) addCloser(name string, fn func() error) {
	g.closers = append(g.closers, namedCloser{name: name, close: fn})
}

// Handler exposes the gateway router.
func (g *Gateway) Handler() http.Handler {
	return g.api.Handler()
}

// Run listens on the configured port until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", g.cfg.Server.Port, err)
	}
	return g.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	defer g.Close()
	return serve(ctx, ln, g.Handler(), g.cfg, g.logger)
}

// Close releases storage clients and database pools.
func (g *Gateway) Close() {
	closeAll(g.closers, g.logger)
	g.closers = nil
}

func closeAll(closers []namedCloser, logger *zap.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			logger.Warn("close failed", zap.String("resource", closers[i].name), zap.Error(err))
		}
	}
}
