package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/civicpulse/billtracker/config"
	"github.com/civicpulse/billtracker/internal/cache"
	"github.com/civicpulse/billtracker/internal/congress"
	"github.com/civicpulse/billtracker/internal/paginate"
	"github.com/civicpulse/billtracker/internal/service"
	"github.com/civicpulse/billtracker/internal/telemetry"
)

// refreshCMD warms the list cache once and exits. Useful from cron when the
// in-process refresher is disabled.
func refreshCMD() *cobra.Command {
	var cfgPath string
	var query string
	var chamber string

	var refresh = &cobra.Command{
		Use:   "refresh",
		Short: "Warm the bill cache once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			var backend cache.Store
			var err error
			if cfg.Cache.Backend == "redis" {
				backend, err = cache.NewRedisStore(ctx, cfg.Cache.Redis.Addr(), cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.StaleRetention)
			} else {
				backend, err = cache.NewFileStore(cfg.Cache.Dir, cfg.Cache.StaleRetention)
			}
			if err != nil {
				return err
			}

			client := congress.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)
			svc := service.New(client, backend, telemetry.NewMetrics(prometheus.NewRegistry()), service.Options{
				ListTTL:      cfg.Cache.ListTTL,
				DetailTTL:    cfg.Cache.DetailTTL,
				PageLimit:    cfg.Upstream.PageLimit,
				MaxAggregate: cfg.Upstream.MaxAggregate,
				Retries:      cfg.Upstream.Retries,
				Backoff:      cfg.Upstream.RetryBackoff,
				Pagination:   paginate.Limits{Allowed: cfg.Pagination.AllowedSizes, Default: cfg.Pagination.DefaultSize},
			})
			return svc.Warm(ctx, service.Query{Text: query, Chamber: chamber})
		},
	}
	refresh.Flags().StringVar(&query, "query", "", "free-text search to warm")
	refresh.Flags().StringVar(&chamber, "chamber", "both", "house, senate or both")
	refresh.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return refresh
}
