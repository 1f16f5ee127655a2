// File: internal/infra/sched/sweep_worker.go
package sched

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/infra/logging"
	"discord-community-bot/internal/infra/metrics"
	redisinfra "discord-community-bot/internal/infra/redis"
	"discord-community-bot/internal/usecase"
)

const (
	sweepLockKey = "sweep:leader"
	sweepLockTTL = 5 * time.Minute
	maxInFlight  = 8
)

// SweepWorker periodically enumerates every conversation channel and runs the
// lifecycle pass on each. A redis lock keeps concurrent replicas from
// double-sweeping; only the replica holding it does any work that pass.
type SweepWorker struct {
	interval time.Duration
	chat     adapter.ChatPlatformAdapter
	flows    []model.Flow
	sweeper  usecase.SweepUseCase
	locker   redisinfra.Locker
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, chat adapter.ChatPlatformAdapter, flows []model.Flow, sweeper usecase.SweepUseCase, locker redisinfra.Locker, logger *zerolog.Logger) *SweepWorker {
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		chat:     chat,
		flows:    flows,
		sweeper:  sweeper,
		locker:   locker,
		log:      &l,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep pass. Exposed so the ops API can trigger a
// pass on demand.
func (w *SweepWorker) RunOnce(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrSweepLockHeld) {
				w.log.Debug().Msg("another replica holds the sweep lock")
			} else {
				w.log.Error().Err(err).Msg("sweep lock acquisition failed")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(ctx, sweepLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("sweep lock release failed")
			}
		}()
	}

	sweepID := ulid.Make().String()
	ctx = logging.WithSweepID(ctx, sweepID)
	log := w.log.With().Str("sweep_id", sweepID).Logger()
	start := time.Now()

	channels, err := w.chat.Channels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("channel enumeration failed")
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInFlight)
	swept := 0
	for _, ch := range channels {
		flow, ok := w.flowFor(ch.Name)
		if !ok {
			continue
		}
		swept++
		wg.Add(1)
		sem <- struct{}{}
		go func(flow model.Flow, ch model.Channel) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := w.sweeper.SweepChannel(ctx, flow, ch); err != nil {
				metrics.IncSweepChannelError(flow.Kind)
				log.Error().Err(err).
					Str("channel_id", ch.ID).
					Str("flow", flow.Kind).
					Msg("channel sweep failed")
			}
		}(flow, ch)
	}
	wg.Wait()

	elapsed := time.Since(start)
	metrics.IncSweepRun()
	metrics.ObserveSweepDuration(float64(elapsed.Milliseconds()))
	log.Info().Int("channels", swept).Dur("took", elapsed).Msg("sweep pass done")
}

// flowFor matches a channel to its flow by name prefix, longest prefix first.
func (w *SweepWorker) flowFor(channelName string) (model.Flow, bool) {
	var best model.Flow
	found := false
	for _, f := range w.flows {
		if strings.HasPrefix(channelName, f.ChannelPrefix) {
			if !found || len(f.ChannelPrefix) > len(best.ChannelPrefix) {
				best = f
				found = true
			}
		}
	}
	return best, found
}
