package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"call-receptionist/internal/auth"
	"call-receptionist/internal/calllog"
	"call-receptionist/internal/config"
	"call-receptionist/internal/database"
	"call-receptionist/internal/dialog"
	"call-receptionist/internal/httpapi"
	"call-receptionist/internal/messages"
	"call-receptionist/internal/metrics"
	"call-receptionist/internal/reporting"
	"call-receptionist/internal/responder"
	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
	"call-receptionist/pkg/logger"
	"call-receptionist/pkg/utils"
)

const purgeInterval = 10 * time.Minute

func newServeCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and operator API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func (a *app) serve(parent context.Context, migrate bool) error {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	log := a.log
	ctx := logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return fmt.Errorf("postgres init: %w", err)
	}
	defer db.Close()

	if migrate {
		if _, err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer rdb.Close()
	}

	rec := metrics.New()

	store, purger := buildSessionStore(cfg, db, rdb)

	gen, closeGen, err := buildResponder(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("responder init: %w", err)
	}
	defer closeGen()

	logRepo := calllog.NewPostgresRepo(db)
	msgRepo := messages.NewPostgresRepo(db)
	callLog := calllog.NewService(logRepo)
	sink := messages.NewSink(msgRepo)

	deps := dialog.Deps{
		Tenants:  tenants.NewPostgresRepo(db),
		Sessions: store,
		CallLog:  callLog,
		Messages: sink,
		Metrics:  rec,
	}
	if gen != nil {
		deps.Responder = gen
	}
	engine := dialog.NewEngine(deps, dialog.Options{
		MaxSteps:     cfg.Dialog.MaxSteps,
		HistoryTurns: cfg.Dialog.AIHistoryTurns,
		StoreTimeout: cfg.Dialog.StoreTimeout,
	})

	limiter := httpapi.NewRateLimiter(httpapi.DefaultRateLimitConfig())
	defer limiter.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, publicDeps{
		cfg:     cfg,
		engine:  engine,
		metrics: rec,
		health: func(ctx context.Context) error {
			if err := database.HealthCheck(ctx, db, 2*time.Second); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
	})
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager), limiter.Middleware(), httpapi.Handlers{
		CallLog:  callLog,
		Messages: sink,
		Reports:  reporting.NewService(reporting.SourceRepo{Turns: logRepo, Messages: msgRepo}),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "sessions", cfg.Session.Backend, "responder", cfg.Responder.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
		}
		return logger.ShutdownFlush(shutdownCtx, 2*time.Second)
	})

	if purger != nil {
		g.Go(func() error {
			purgeLoop(gctx, purger)
			return nil
		})
	}

	return g.Wait()
}

// sessionPurger removes sessions past retention. Redis expires keys itself;
// only the Postgres store needs a sweeper.
type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

func buildSessionStore(cfg config.Config, db *sql.DB, rdb redis.UniversalClient) (sessions.Store, sessionPurger) {
	if cfg.Session.Backend == config.SessionBackendPostgres {
		s := sessions.NewPostgresStore(db, cfg.Session.TTL)
		return s, s
	}
	return sessions.NewRedisStore(rdb, cfg.Session.TTL), nil
}

func buildResponder(ctx context.Context, cfg config.Config, rdb redis.Scripter) (*responder.Service, func(), error) {
	if cfg.Responder.Provider != config.ResponderGemini {
		return nil, func() {}, nil
	}
	llm, err := responder.NewGeminiLLM(ctx, cfg.Responder.GeminiAPIKey, cfg.Responder.Model)
	if err != nil {
		return nil, func() {}, err
	}
	svc := responder.NewService(llm,
		responder.WithTimeout(cfg.Responder.Timeout),
		responder.WithLimiter(responder.NewRedisLimiter(rdb, cfg.Responder.MaxInflightPerTenant, 0)),
	)
	return svc, func() { _ = llm.Close() }, nil
}

func purgeLoop(ctx context.Context, p sessionPurger) {
	log := logger.From(ctx)
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.Error("session purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", "count", n)
			}
		}
	}
}
