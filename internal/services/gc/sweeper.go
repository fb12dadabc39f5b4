// Package gc evicts superseded fingerprint cache entries on a schedule.
package gc

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Sweeper periodically removes fingerprint entries written under an old
// processing version, plus entries that have not been read within the TTL.
type Sweeper struct {
	storage interfaces.FingerprintStorage
	config  *common.CacheConfig
	version func() string
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewSweeper creates a sweeper. version is read at sweep time so a live
// processing-version change takes effect without a restart.
func NewSweeper(storage interfaces.FingerprintStorage, config *common.CacheConfig, version func() string, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		storage: storage,
		config:  config,
		version: version,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the sweep on the configured cron schedule.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.config.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled cache sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.SweepSchedule).Msg("Cache sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one eviction pass and returns the number of entries removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.EntryTTL)
	removed, err := s.storage.Sweep(ctx, s.version(), cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Cache sweep removed stale fingerprint entries")
	}
	return removed, nil
}
