// Command storefront-api serves the catalog, cart, checkout, order and quote
// operations the storefront core consumes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/enos-storefront/internal/cart"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/config"
	"github.com/MikeMC777/enos-storefront/internal/httpx"
	"github.com/MikeMC777/enos-storefront/internal/logx"
	ord "github.com/MikeMC777/enos-storefront/internal/order"
	prod "github.com/MikeMC777/enos-storefront/internal/product"
	"github.com/MikeMC777/enos-storefront/internal/quote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	log, err := logx.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("build logger: %w", err))
	}
	defer func() { _ = log.Sync() }()

	fx.New(
		fx.WithLogger(func() fxevent.Logger { return &fxevent.ZapLogger{Logger: log.Named("fx")} }),
		fx.Supply(cfg, log),
		fx.Provide(
			newPool,
			newRepos,
			newRegistry,
			newRouter,
			newHealth,
		),
		fx.Invoke(startHTTP, startGRPC),
	).Run()
}

func newPool(lc fx.Lifecycle, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), cfg.API.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return pool.Ping(ctx) },
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func newRepos(db *pgxpool.Pool) repos {
	return repos{
		products: prod.NewPGRepo(db),
		carts:    cart.NewPGRepo(db),
		orders:   ord.NewPGRepo(db),
		quotes:   quote.NewPGRepo(db),
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newRouter(log *zap.Logger, rs repos, reg *prometheus.Registry, db *pgxpool.Pool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(log.Named("http")), httpx.Metrics(reg))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			httpx.Fail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", httpx.MetricsHandler(reg))
	r.GET("/swagger/*any", httpx.SwaggerUI())

	registerRoutes(r, rs, clock.Real{})
	return r
}

func newHealth() *health.Server { return health.NewServer() }

func startHTTP(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{Addr: cfg.API.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("storefront-api listening", zap.String("addr", cfg.API.Addr))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error { return srv.Shutdown(ctx) },
	})
}

// startGRPC exposes grpc.health.v1, reporting SERVING between start and stop.
func startGRPC(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, log *zap.Logger, hs *health.Server) {
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.API.HealthAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.API.HealthAddr, err)
			}
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			go func() {
				log.Info("health server listening", zap.String("addr", cfg.API.HealthAddr))
				if err := gs.Serve(lis); err != nil {
					log.Error("grpc server stopped", zap.Error(err))
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			hs.Shutdown()
			gs.GracefulStop()
			return nil
		},
	})
}
