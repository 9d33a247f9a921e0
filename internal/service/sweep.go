package service

import (
	"context"
	"log"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
)

// RunSessionSweeper evicts idle sessions on a fixed interval until ctx is
// cancelled.
func (s *Service) RunSessionSweeper(ctx context.Context) {
	interval := s.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(s.now())
		}
	}
}

func (s *Service) sweepSessions(now time.Time) []string {
	removed := s.sessions.Sweep(now)
	if len(removed) > 0 {
		metrics.SessionsExpired.Add(float64(len(removed)))
		log.Printf("Expired %d idle session(s)", len(removed))
	}
	return removed
}
