package service

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Refresher re-warms the list cache on a cron schedule so browsing stays
// warm across TTL windows, and lets the cache backend retire long-expired
// entries.
type Refresher struct {
	svc    *Service
	expr   *cronexpr.Expression
	query  Query
	logger *log.Logger
}

func NewRefresher(svc *Service, cronSpec string, query Query) (*Refresher, error) {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return nil, err
	}
	return &Refresher{
		svc:    svc,
		expr:   expr,
		query:  query,
		logger: log.New(log.Writer(), "[REFRESH] ", log.LstdFlags),
	}, nil
}

// Run blocks until ctx is cancelled, warming the cache at every cron tick.
func (r *Refresher) Run(ctx context.Context) {
	for {
		next := r.expr.Next(time.Now())
		if next.IsZero() {
			r.logger.Printf("cron expression yields no further ticks, stopping")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}
		if err := r.svc.Warm(ctx, r.query); err != nil {
			r.logger.Printf("warm failed: %v", err)
		}
	}
}
