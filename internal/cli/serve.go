package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/eventgraph-go/internal/api"
	"github.com/jengzang/eventgraph-go/internal/cache"
	"github.com/jengzang/eventgraph-go/internal/config"
	"github.com/jengzang/eventgraph-go/internal/database"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/middleware"
	"github.com/jengzang/eventgraph-go/internal/repository"
	"github.com/jengzang/eventgraph-go/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port != "" {
				cliCtx.Config.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cliCtx.Config, cliCtx.Logger)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen address override, e.g. :8080")
	return cmd
}

// newFeatureCache returns a redis cache when enabled, otherwise an
// in-memory one.
func newFeatureCache(ctx context.Context, cfg config.RedisConfig, logger logging.Logger) (cache.FeatureCache, error) {
	if !cfg.Enabled {
		return cache.NewMemoryCache(), nil
	}
	return cache.NewRedisCache(ctx, cache.RedisOptions{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: cfg.KeyPrefix,
		TTL:       cfg.TTL,
	}, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	logger = logger.Named("Server")

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.Database.Path}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	features, err := newFeatureCache(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer features.Close()

	svc := service.NewDatasetService(repository.NewRunRepository(db), features, service.Defaults{
		Partition: cfg.Partition,
		Graph:     cfg.Graph,
		Temporal:  cfg.Temporal,
		MaxEvents: cfg.Server.MaxEvents,
	}, logger)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
		defer limiter.Stop()
	}

	// 初始化路由
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           api.SetupRouter(cfg, svc, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logging.String("addr", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
