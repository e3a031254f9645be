package rcon

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const (
	DefaultReconnectInterval = 3 * time.Second
	DefaultReconnectMax      = 30 * time.Second
	shutdownTimeout          = 2 * time.Second
)

// Supervisor keeps a Client connected, reconnecting with backoff whenever the
// session drops.
type Supervisor struct {
	client   *Client
	interval time.Duration
	backoff  *backoff.Backoff
	log      *zap.Logger
}

// NewSupervisor polls client every interval and retries failed connects with
// jittered exponential delays capped at maxDelay.
func NewSupervisor(client *Client, interval, maxDelay time.Duration) *Supervisor {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	if maxDelay < interval {
		maxDelay = interval
	}
	return &Supervisor{
		client:   client,
		interval: interval,
		backoff: &backoff.Backoff{
			Factor: 2,
			Jitter: true,
			Min:    interval,
			Max:    maxDelay,
		},
		log: client.log.Named("supervisor"),
	}
}

// Run connects immediately and then maintains the connection until ctx is
// cancelled, at which point it disconnects gracefully.
func (s *Supervisor) Run(ctx context.Context) {
	wait := s.check(ctx)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-timer.C:
			timer.Reset(s.check(ctx))
		}
	}
}

// check reconnects if needed and returns the delay before the next check.
func (s *Supervisor) check(ctx context.Context) time.Duration {
	if s.client.Connected() {
		return s.interval
	}
	err := s.client.Connect(ctx)
	if err == nil {
		if s.backoff.Attempt() > 0 {
			s.log.Info("reconnected", zap.Float64("attempts", s.backoff.Attempt()))
		}
		s.backoff.Reset()
		return s.interval
	}
	if ctx.Err() != nil {
		return s.interval
	}
	s.client.obs.ReconnectFailed(err)
	d := s.backoff.Duration()
	s.log.Warn("connect failed", zap.Error(err), zap.Duration("retry_in", d))
	return d
}

func (s *Supervisor) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		s.log.Warn("disconnect on shutdown failed", zap.Error(err))
	}
}
