package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	sqliteadapter "github.com/atvirokodosprendimai/testdesk/internal/adapters/db/sqlite"
	httpadapter "github.com/atvirokodosprendimai/testdesk/internal/adapters/http"
	"github.com/atvirokodosprendimai/testdesk/internal/adapters/restapi"
	rpcadapter "github.com/atvirokodosprendimai/testdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/testdesk/internal/application"
	"github.com/atvirokodosprendimai/testdesk/internal/config"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
	"github.com/atvirokodosprendimai/testdesk/internal/logging"
)

const sessionSweepInterval = time.Hour

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the web frontend and the JSON-RPC daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database for sessions and activity"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if v := c.String("addr"); v != "" {
				cfg.Server.Addr = v
			}
			if v := c.String("rpc-socket"); v != "" {
				cfg.Server.RPCSocket = v
			}
			if v := c.String("db-path"); v != "" {
				cfg.Server.DBPath = v
			}
			if v := c.String("log-level"); v != "" {
				cfg.Log.Level = v
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: level, Service: "testdesk", JSON: cfg.Log.JSON})

	db, err := sqliteadapter.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}
	sessions := sqliteadapter.NewSessionRepository(db)
	activity := sqliteadapter.NewActivityRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpClient := restapi.NewHTTPClient(cfg.API.Timeout, restapi.NewMetrics(reg).Wrap(http.DefaultTransport))
	backend := func(auth *application.AuthContext) domain.Backend {
		return restapi.New(cfg.API.BaseURL, auth, restapi.WithHTTPClient(httpClient), restapi.WithLogger(logger))
	}

	router := httpadapter.NewRouter(httpadapter.Deps{
		Backend: backend,
		Sessions: func(id string) domain.SessionStore {
			return sessions.ForBrowser(id, cfg.Server.SessionTTL)
		},
		Activity:      activity,
		Logger:        logger,
		Registry:      reg,
		Gatherer:      reg,
		SecureCookies: cfg.Server.SecureCookies,
		SessionTTL:    cfg.Server.SessionTTL,
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	rpcSrv, err := rpcadapter.Start(cfg.Server.RPCSocket, rpcadapter.NewHandler(rpcadapter.Deps{
		Backend:  backend,
		Activity: activity,
		Logger:   logger,
	}))
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info("json-rpc listening", "socket", cfg.Server.RPCSocket)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweepSessions(gctx, sessions, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sweepSessions drops expired browser sessions until ctx ends.
func sweepSessions(ctx context.Context, sessions *sqliteadapter.SessionRepository, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
