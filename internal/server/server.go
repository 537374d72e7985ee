package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicpulse/billtracker/config"
	"github.com/civicpulse/billtracker/internal/cache"
	"github.com/civicpulse/billtracker/internal/congress"
	"github.com/civicpulse/billtracker/internal/paginate"
	"github.com/civicpulse/billtracker/internal/runtime"
	"github.com/civicpulse/billtracker/internal/service"
	"github.com/civicpulse/billtracker/internal/store"
	"github.com/civicpulse/billtracker/internal/telemetry"
)

// Run wires the dependencies and serves the API until the listener fails.
func Run(cfg *config.Config) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()

	backend, err := newCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	client := congress.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)
	svc := service.New(client, backend, metrics, service.Options{
		ListTTL:      cfg.Cache.ListTTL,
		DetailTTL:    cfg.Cache.DetailTTL,
		PageLimit:    cfg.Upstream.PageLimit,
		MaxAggregate: cfg.Upstream.MaxAggregate,
		Retries:      cfg.Upstream.Retries,
		Backoff:      cfg.Upstream.RetryBackoff,
		Pagination:   paginate.Limits{Allowed: cfg.Pagination.AllowedSizes, Default: cfg.Pagination.DefaultSize},
	})

	api := e.Group("/api")
	bh := &BillsHandler{Svc: svc}
	bh.Register(api)

	// Engagement endpoints need postgres; without it the tracker still
	// serves bill data.
	if cfg.Storage.Postgres.Configured() {
		if cfg.Server.JWTSecret == "" {
			return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
		}
		st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return err
		}
		secret := []byte(cfg.Server.JWTSecret)

		auth := &AuthHandler{Store: st, Secret: secret, TokenTTL: cfg.Server.TokenTTL}
		auth.Register(api.Group("/auth"))

		me := api.Group("/me")
		me.Use(runtime.EchoAuthMiddleware(secret))
		me.GET("", func(c echo.Context) error {
			return c.JSON(200, MeResponse{UserID: c.Get("user_id").(string)})
		})

		authed := api.Group("")
		authed.Use(runtime.EchoAuthMiddleware(secret))
		eh := &EngagementHandler{Store: st}
		eh.Register(api, authed)
	} else {
		log.Printf("[HTTP] postgres not configured, engagement endpoints disabled")
	}

	if cfg.Refresh.Enabled {
		refresher, err := service.NewRefresher(svc, cfg.Refresh.Cron, service.Query{
			Text:    cfg.Refresh.Query,
			Chamber: cfg.Refresh.Chamber,
		})
		if err != nil {
			return fmt.Errorf("refresh.cron: %w", err)
		}
		go refresher.Run(ctx)
	}
	if sw, ok := backend.(cache.Sweeper); ok && cfg.Cache.SweepInterval > 0 {
		go sweepLoop(ctx, sw, cfg.Cache.SweepInterval)
	}

	return e.Start(cfg.Server.Address)
}

// newEcho builds the echo instance with recovery, CORS and the unified JSON
// error handler shared by Run and the handler tests.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))
	return e
}

func newCacheBackend(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisStore(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.StaleRetention)
	default:
		return cache.NewFileStore(cfg.Dir, cfg.StaleRetention)
	}
}

func sweepLoop(ctx context.Context, sw cache.Sweeper, interval time.Duration) {
	logger := log.New(log.Writer(), "[SWEEP] ", log.LstdFlags)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sw.Sweep(ctx)
			if err != nil {
				logger.Printf("sweep failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Printf("removed %d retired cache entries", n)
			}
		}
	}
}
