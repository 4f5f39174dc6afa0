package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/caseqc/internal/api"
	"github.com/persistorai/caseqc/internal/auth"
	"github.com/persistorai/caseqc/internal/config"
	"github.com/persistorai/caseqc/internal/crypto"
	"github.com/persistorai/caseqc/internal/db"
	"github.com/persistorai/caseqc/internal/db/migrations"
	"github.com/persistorai/caseqc/internal/dbpool"
	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/service"
	"github.com/persistorai/caseqc/internal/store"
	"github.com/persistorai/caseqc/internal/workflow"
	"github.com/persistorai/caseqc/internal/ws"
)

const (
	shutdownTimeout = 15 * time.Second
	startupTimeout  = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket stream and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			return serve(cfg, newLogger(cfg.LogLevel), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving (postgres only)")

	return cmd
}

// backend holds the persistence pieces chosen by STORE_BACKEND.
type backend struct {
	store    domain.Store
	pool     *dbpool.Pool
	schemaDB *sql.DB
	// subscribe wires committed review events to the hub.
	subscribe func(ctx context.Context, hub domain.EventBroadcaster) error
}

func (b *backend) close() {
	if b.schemaDB != nil {
		_ = b.schemaDB.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger, migrate bool) (*backend, error) {
	if cfg.StoreBackend == config.BackendMemory {
		mem := store.NewMemory()
		log.Warn("running on the in-memory store; state is lost on restart")

		return &backend{
			store: mem,
			subscribe: func(_ context.Context, hub domain.EventBroadcaster) error {
				mem.Subscribe(hub)
				return nil
			},
		}, nil
	}

	sqlDB, err := db.OpenSQL(cfg.DatabaseURL.Value())
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := db.RunMigrations(ctx, sqlDB, log, migrations.FS); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	if err := db.CheckSchema(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w (run: caseqc-server migrate up)", err)
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := pool.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.WithError(err).Warn("pool metrics not registered")
	}

	keys, err := keyProvider(cfg)
	if err != nil {
		pool.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	pg := store.NewPostgres(store.Base{
		Pool:   pool,
		Log:    log,
		Crypto: crypto.NewService(keys, cfg.EncryptionKeyID),
	})

	return &backend{
		store:    pg,
		pool:     pool,
		schemaDB: sqlDB,
		subscribe: func(ctx context.Context, hub domain.EventBroadcaster) error {
			return db.NewNotifyBridge(log, pool, hub).Start(ctx)
		},
	}, nil
}

func keyProvider(cfg *config.Config) (crypto.KeyProvider, error) {
	switch cfg.EncryptionProvider {
	case "vault":
		return crypto.NewVaultProvider(cfg.VaultAddr, cfg.VaultToken.Value()), nil
	default:
		p, err := crypto.NewStaticProvider(cfg.EncryptionKey.Value())
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		return p, nil
	}
}

func serve(cfg *config.Config, log *logrus.Logger, migrate bool) error {
	gin.SetMode(gin.ReleaseMode)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// appCtx outlives the signal so the hub can drain before it is cancelled.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	startCtx, cancelStart := context.WithTimeout(sigCtx, startupTimeout)
	be, err := openBackend(startCtx, cfg, log, migrate)
	cancelStart()
	if err != nil {
		return err
	}
	defer be.close()

	hub := ws.NewHub(log)
	go hub.Run(appCtx)

	if err := be.subscribe(appCtx, hub); err != nil {
		return err
	}

	auditWorker := service.NewAuditWorker(be.store, log, cfg.AuditQueueSize)
	go auditWorker.Run(appCtx)

	deps := &api.RouterDeps{
		Log:            log,
		Hub:            hub,
		Verifier:       auth.NewVerifier(cfg.JWTSecret.Value(), cfg.JWTIssuer),
		Approvals:      service.NewApprovalService(be.store, workflow.DefaultTable(), log),
		Reviews:        service.NewReviewService(be.store, auditWorker, log),
		Cases:          service.NewCaseService(be.store, log),
		Audits:         service.NewAuditService(be.store, log),
		CORSOrigins:    cfg.CORSOrigins,
		Version:        config.Version,
		Backend:        cfg.StoreBackend,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	// Leave the interface nil on the memory backend.
	if be.pool != nil {
		deps.Pool = be.pool
		deps.SchemaDB = be.schemaDB
	}

	apiSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(appCtx, deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    apiSrv.Addr,
			"backend": cfg.StoreBackend,
			"version": config.Version,
		}).Info("caseqc server listening")
		return listen(apiSrv)
	})
	g.Go(func() error {
		log.WithField("addr", metricsSrv.Addr).Info("metrics server listening")
		return listen(metricsSrv)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		hub.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		apiErr := apiSrv.Shutdown(ctx)
		metricsErr := metricsSrv.Shutdown(ctx)
		cancelApp()

		return errors.Join(apiErr, metricsErr)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		return err
	}

	log.Info("server stopped")

	return nil
}

// listen runs srv until Shutdown, treating a clean close as success.
func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}
