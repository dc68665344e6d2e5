package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/carpool/internal/buildinfo"
	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/cli"
	"github.com/dmitrijs2005/carpool/internal/client/client"
	"github.com/dmitrijs2005/carpool/internal/client/config"
	"github.com/dmitrijs2005/carpool/internal/client/metrics"
	"github.com/dmitrijs2005/carpool/internal/client/reporting"
	"github.com/dmitrijs2005/carpool/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/carpool/internal/cryptox"
	"github.com/dmitrijs2005/carpool/internal/filex"
	"github.com/dmitrijs2005/carpool/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stderr, logging.Format(cfg.LogFormat), logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "carpool stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	m := metrics.New()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hc := &http.Client{}
	coord := auth.NewCoordinator(
		auth.NewHTTPRefresher(cfg.APIURL, cfg.RefreshPath, hc),
		auth.WithStore(store),
		auth.WithLogger(logger),
		auth.WithObserver(m),
		auth.WithRefreshTimeout(cfg.RefreshTimeout),
		auth.WithProactiveRefresh(cfg.ProactiveRefresh),
	)
	if ok, err := coord.Restore(ctx); err != nil {
		logger.Warn(ctx, "stored session not restored", "error", err)
	} else if ok {
		logger.Info(ctx, "session restored", "store", cfg.Store)
	}

	reporter, err := newReporter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	api := client.New(cfg.APIURL, coord,
		client.WithHTTPClient(hc),
		client.WithReporter(reporter),
		client.WithMetrics(m),
		client.WithLogger(logger),
		client.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout),
		client.WithAuthPaths(cfg.LoginPath, cfg.LogoutPath),
	)

	var health *client.Health
	if cfg.GRPCAddr != "" {
		conn, err := client.NewGRPCConn(cfg.GRPCAddr, coord)
		if err != nil {
			return fmt.Errorf("grpc channel: %w", err)
		}
		defer conn.Close()
		health = client.NewHealth(conn, "")
		logger.Info(ctx, "grpc channel ready", "target", cfg.GRPCAddr)
	}

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(ctx, cfg.MetricsAddr, m, logger)
		defer shutdown()
	}

	app := cli.NewApp(api, coord, os.Stdin, os.Stdout, logger)
	coord.OnSessionExpired(app.SessionExpired)
	if health != nil {
		app.SetHealth(health)
	}

	app.Run(ctx)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (auth.TokenStore, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := tokens.NewRedisClient(ctx, cfg.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return tokens.NewRedisRepository(rdb, cfg.RedisProfile, cfg.SessionTTL), func() { _ = rdb.Close() }, nil

	case config.StoreSQLite:
		path, err := filex.EnsureParentDir(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		db, err := client.InitDatabase(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() { _ = db.Close() }

		repo := tokens.NewSQLiteRepository(db)
		if cfg.Passphrase != "" {
			salt, err := repo.Salt(ctx)
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			sealer, err := cryptox.NewSealer([]byte(cfg.Passphrase), salt)
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			repo = repo.WithSealer(sealer)
		}
		return repo, closeDB, nil
	}
	return auth.NewMemoryStore(), func() {}, nil
}

func newReporter(ctx context.Context, cfg *config.Config, logger logging.Logger) (reporting.Reporter, error) {
	sinks := reporting.Multi{reporting.NewLog(logger)}
	if cfg.LogLevel == "debug" && cfg.LogFormat == string(logging.FormatConsole) {
		sinks = append(sinks, reporting.NewConsole(os.Stderr))
	}
	if cfg.Reports.Bucket != "" {
		s3, err := reporting.NewS3(ctx, cfg.Reports)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, nil
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Collector, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "metrics server failed", "error", err)
		}
	}()
	logger.Info(ctx, "serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
