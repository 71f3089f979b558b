package service

import (
	"context"
	"time"

	"pedalo/internal/bookings/repository"
	"pedalo/pkg/config"
)

// OverdueSweeper moves active bookings whose booked end plus grace has
// passed into overdue. It is a background concern: riders who return
// late still settle through the normal end-ride path.
type OverdueSweeper struct {
	repo repository.BookingRepository
	cfg  *config.Config
}

func NewOverdueSweeper(repo repository.BookingRepository, cfg *config.Config) *OverdueSweeper {
	return &OverdueSweeper{
		repo: repo,
		cfg:  cfg,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *OverdueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.OverdueSweepInterval)
	defer ticker.Stop()

	s.cfg.Log.Info("overdue sweeper started",
		"interval", s.cfg.OverdueSweepInterval,
		"grace", s.cfg.OverdueGrace,
	)

	for {
		select {
		case <-ctx.Done():
			s.cfg.Log.Info("overdue sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.cfg.Log.Error("overdue sweep failed", "error", err.Error())
			}
		}
	}
}

// SweepOnce marks everything past due in one bulk update. The conditional
// filter makes concurrent sweeps harmless.
func (s *OverdueSweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.OverdueGrace)
	marked, err := s.repo.MarkOverdue(ctx, cutoff)
	if err != nil {
		return err
	}
	if marked > 0 {
		s.cfg.Log.Info("bookings marked overdue", "count", marked, "cutoff", cutoff)
	}
	return nil
}
