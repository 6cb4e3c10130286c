// Package api implements HTTP handlers and helpers for the grouping service.
package api

import (
	"context"
	"sync"

	"cargroup/internal/config"
	"cargroup/internal/opt"
	"cargroup/internal/store"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Config  config.Config
	Log     *zap.Logger
	Limiter *rate.Limiter

	runs   sync.WaitGroup
	ctx    context.Context // parent of async runs
	cancel context.CancelFunc
}

// NewServer wires the in-memory store and the event broker. When a Redis URL
// is configured but unusable it falls back to the in-memory broker.
func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var broker EventBroker = NewBroker()
	if cfg.Server.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.Server.RedisURL); err == nil {
			broker = rb
		} else {
			log.Warn("redis broker unavailable, using in-memory broker", zap.Error(err))
		}
	}
	limit := rate.Inf
	if cfg.Server.RateRPS > 0 {
		limit = rate.Limit(cfg.Server.RateRPS)
	}
	burst := cfg.Server.RateBurst
	if burst <= 0 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctx:     ctx,
		cancel:  cancel,
		Store:   store.NewMemory(cfg.Server.MaxStoredRuns, opt.ForgetMetrics),
		Broker:  broker,
		Config:  cfg,
		Log:     log,
		Limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Wait blocks until every async grouping started by the server has finished.
func (s *Server) Wait() { s.runs.Wait() }

// Close lets async groupings finish until ctx expires, cancels the rest and
// releases the broker connection.
func (s *Server) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
	s.cancel()
	return s.Broker.Close()
}
