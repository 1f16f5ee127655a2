// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/infra/metrics"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase runs the periodic lifecycle pass for one conversation channel:
// warnings, deletions, and recovery of messages the driver never processed.
type SweepUseCase interface {
	SweepChannel(ctx context.Context, flow model.Flow, ch model.Channel) error
}

type sweepUC struct {
	chat        adapter.ChatPlatformAdapter
	driver      ConversationUseCase
	replayGrace time.Duration
	now         func() time.Time
	log         *zerolog.Logger
}

func NewSweepUseCase(chat adapter.ChatPlatformAdapter, driver ConversationUseCase, replayGrace time.Duration, logger *zerolog.Logger) *sweepUC {
	l := logger.With().Str("component", "Sweeper").Logger()
	return &sweepUC{chat: chat, driver: driver, replayGrace: replayGrace, now: time.Now, log: &l}
}

func (s *sweepUC) SweepChannel(ctx context.Context, flow model.Flow, ch model.Channel) error {
	memberID, err := ch.MemberID()
	if err != nil {
		// Unparseable artifact: better to remove it than to crash every pass.
		s.log.Error().Err(err).Str("channel_id", ch.ID).Str("topic", ch.Topic).Msg("deleting channel with unparseable topic")
		return s.delete(ctx, flow, ch, "unparseable channel topic")
	}

	member, err := s.chat.Member(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.delete(ctx, flow, ch, "member left the server")
		}
		return err
	}

	msgs, err := s.chat.Messages(ctx, ch.ID)
	if err != nil {
		return err
	}

	// Flow-specific exit conditions first: reaction transitions on scheduled
	// messages, private-chat countdowns and lifetime extensions.
	if flow.Hook != nil {
		handled, err := flow.Hook(ctx, s.hookContext(flow, ch, *member, msgs))
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	// Anti-spam: a hard cap deletes outright, a soft cap warns once.
	if flow.HardMessageCap > 0 && len(msgs) > flow.HardMessageCap {
		return s.delete(ctx, flow, ch, "too many messages")
	}
	if flow.SoftMessageCap > 0 && len(msgs) > flow.SoftMessageCap && !model.ContainsBotMessage(msgs, textSpamWarning) {
		_, err := s.chat.SendMessage(ctx, ch.ID, textSpamWarning)
		return err
	}

	// Channel created but never driven (restart before the first question).
	if len(msgs) == 0 {
		_, err := s.driver.Resume(ctx, flow, ch)
		return err
	}

	last := model.LastMessage(msgs)

	// Restart recovery: the member's message was never processed.
	if !last.FromBot && last.AuthorID == member.ID && s.now().Sub(last.Timestamp) > s.replayGrace {
		metrics.IncSweepReplay(flow.Kind)
		return s.driver.HandleMessage(ctx, flow, ch, *last)
	}

	finished := flow.TerminalText != "" && model.ContainsBotMessage(msgs, flow.TerminalText)

	// Crash between feedback and the next question leaves the channel with a
	// bot message on top but an unasked current question; replay it.
	if !finished && last.FromBot {
		acted, err := s.driver.Resume(ctx, flow, ch)
		if err != nil {
			return err
		}
		if acted {
			metrics.IncSweepReplay(flow.Kind)
			return nil
		}
	}

	if flow.Timeout <= 0 {
		return nil
	}
	idle := s.now().Sub(last.Timestamp)
	if idle > flow.Timeout {
		if finished {
			return s.delete(ctx, flow, ch, "conversation finished")
		}
		return s.delete(ctx, flow, ch, "timed out")
	}
	if !finished && flow.WarningWindow > 0 && flow.Timeout-idle <= flow.WarningWindow && !warnedSince(msgs, member.ID) {
		_, err := s.chat.SendMessage(ctx, ch.ID, textIdleWarning)
		return err
	}
	return nil
}

// warnedSince reports whether an idle warning was sent after the member's most
// recent message, so a member who came back and went quiet again still gets a
// fresh warning.
func warnedSince(msgs []model.Message, memberID string) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].AuthorID == memberID && !msgs[i].FromBot {
			return false
		}
		if msgs[i].FromBot && msgs[i].Content == textIdleWarning {
			return true
		}
	}
	return false
}

func (s *sweepUC) delete(ctx context.Context, flow model.Flow, ch model.Channel, reason string) error {
	if err := s.chat.DeleteChannel(ctx, ch.ID, reason); err != nil {
		return err
	}
	s.log.Info().Str("channel_id", ch.ID).Str("flow", flow.Kind).Str("reason", reason).Msg("channel deleted")
	metrics.IncChannelDeleted(flow.Kind, reason)
	return nil
}

func (s *sweepUC) hookContext(flow model.Flow, ch model.Channel, member model.Member, msgs []model.Message) model.HookContext {
	return model.HookContext{
		Channel:  ch,
		Member:   member,
		Messages: msgs,
		Send: func(ctx context.Context, content string) error {
			_, err := s.chat.SendMessage(ctx, ch.ID, content)
			return err
		},
		SetTopic: func(ctx context.Context, topic string) error {
			return s.chat.SetTopic(ctx, ch.ID, topic)
		},
		DeleteChannel: func(ctx context.Context, reason string) error {
			return s.delete(ctx, flow, ch, reason)
		},
		Reactors: func(ctx context.Context, messageID, emoji string) ([]model.Member, error) {
			return s.chat.Reactors(ctx, ch.ID, messageID, emoji)
		},
	}
}
