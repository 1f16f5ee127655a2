// File: internal/application/dispatcher.go
package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/infra/logging"
	"discord-community-bot/internal/usecase"
)

// FloodLimiter damps runaway event streams per channel before they hit the
// conversation engine. Implemented by the redis fixed-window counter.
type FloodLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const (
	floodLimit  = 20
	floodWindow = 10 * time.Second
)

type eventKind int

const (
	eventMessage eventKind = iota
	eventEdit
)

type event struct {
	kind    eventKind
	channel model.Channel
	msg     model.Message
}

// Dispatcher serialises conversation work per channel: one FIFO queue and at
// most one in-flight driver-or-reconciler invocation per channel, while
// independent channels run concurrently. Both the driver and the reconciler
// read the full message history and then mutate it, so interleaving them on
// one channel is never safe. The driver and reconciler also hold a shared
// per-channel lock internally, which covers invocations that do not come
// through these queues (the sweeper's replay path, the launcher's first kick).
type Dispatcher struct {
	flows      []model.Flow
	driver     usecase.ConversationUseCase
	reconciler usecase.EditReconciler
	log        *zerolog.Logger

	mu     sync.Mutex
	queues map[string]chan event
	wg     sync.WaitGroup

	// queueCap bounds each per-channel queue; the spam sweeper deals with
	// channels that manage to fill one.
	queueCap int

	limiter FloodLimiter
}

func NewDispatcher(flows []model.Flow, driver usecase.ConversationUseCase, reconciler usecase.EditReconciler, logger *zerolog.Logger) *Dispatcher {
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{
		flows:      flows,
		driver:     driver,
		reconciler: reconciler,
		log:        &l,
		queues:     map[string]chan event{},
		queueCap:   64,
	}
}

// SetFloodLimiter enables flood damping; nil (the default) disables it.
func (d *Dispatcher) SetFloodLimiter(l FloodLimiter) { d.limiter = l }

// FlowFor resolves the flow owning a channel by its name prefix. Longer
// prefixes win so "chat-request-" is never shadowed by a shorter one.
func (d *Dispatcher) FlowFor(channelName string) (model.Flow, bool) {
	var best model.Flow
	found := false
	for _, f := range d.flows {
		if strings.HasPrefix(channelName, f.ChannelPrefix) {
			if !found || len(f.ChannelPrefix) > len(best.ChannelPrefix) {
				best = f
				found = true
			}
		}
	}
	return best, found
}

// OnMessage enqueues a newly created message for its channel's worker.
func (d *Dispatcher) OnMessage(ctx context.Context, ch model.Channel, msg model.Message) {
	d.enqueue(ctx, event{kind: eventMessage, channel: ch, msg: msg})
}

// OnMessageEdit enqueues an edited message.
func (d *Dispatcher) OnMessageEdit(ctx context.Context, ch model.Channel, msg model.Message) {
	d.enqueue(ctx, event{kind: eventEdit, channel: ch, msg: msg})
}

func (d *Dispatcher) enqueue(ctx context.Context, ev event) {
	if ev.msg.FromBot {
		return
	}
	if _, ok := d.FlowFor(ev.channel.Name); !ok {
		return
	}
	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, "flood:"+ev.channel.ID, floodLimit, floodWindow)
		if err != nil {
			// Damping is best-effort; a broken limiter must not mute the bot.
			d.log.Warn().Err(err).Str("channel_id", ev.channel.ID).Msg("flood limiter unavailable")
		} else if !allowed {
			d.log.Warn().Str("channel_id", ev.channel.ID).Msg("flood limit hit, dropping event")
			return
		}
	}

	// The send happens under the lock so the actor cannot observe an empty
	// queue, retire, and orphan this event.
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[ev.channel.ID]
	if !ok {
		q = make(chan event, d.queueCap)
		d.queues[ev.channel.ID] = q
		d.wg.Add(1)
		go d.drain(ctx, ev.channel.ID, q)
	}
	select {
	case q <- ev:
	default:
		d.log.Warn().Str("channel_id", ev.channel.ID).Msg("channel queue full, dropping event")
	}
}

// drain is the per-channel actor: strict FIFO, run to completion, one event
// at a time.
func (d *Dispatcher) drain(ctx context.Context, channelID string, q chan event) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q:
			d.handle(ctx, ev)
			d.mu.Lock()
			if len(q) == 0 {
				// Idle: retire the actor; a later event recreates it.
				delete(d.queues, channelID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev event) {
	flow, ok := d.FlowFor(ev.channel.Name)
	if !ok {
		return
	}
	ctx = logging.WithChannelID(ctx, ev.channel.ID)
	ctx = logging.WithMemberID(ctx, ev.msg.AuthorID)
	var err error
	switch ev.kind {
	case eventMessage:
		err = d.driver.HandleMessage(ctx, flow, ev.channel, ev.msg)
	case eventEdit:
		err = d.reconciler.HandleEdit(ctx, flow, ev.channel, ev.msg)
	}
	if err != nil {
		// Transient platform errors land here; the sweeper's recovery pass
		// picks the channel back up.
		logging.With(ctx, d.log).Error().Err(err).
			Str("flow", flow.Kind).
			Msg("event handling failed")
	}
}

// Wait blocks until every per-channel actor has drained, for shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
