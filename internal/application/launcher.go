// File: internal/application/launcher.go
package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/infra/metrics"
	"discord-community-bot/internal/usecase"
)

var channelNameSanitizer = regexp.MustCompile(`[^a-z0-9-]+`)

// Launcher opens conversation channels: the welcome channel when a member
// joins, and command-triggered channels for the other flows. It never opens a
// second channel for the same member and flow; the member marker in existing
// topics is the dedupe key.
type Launcher struct {
	chat   adapter.ChatPlatformAdapter
	flows  []model.Flow
	driver usecase.ConversationUseCase
	log    *zerolog.Logger
}

func NewLauncher(chat adapter.ChatPlatformAdapter, flows []model.Flow, driver usecase.ConversationUseCase, logger *zerolog.Logger) *Launcher {
	l := logger.With().Str("component", "Launcher").Logger()
	return &Launcher{chat: chat, flows: flows, driver: driver, log: &l}
}

// OnMemberJoin opens the onboarding channel for a freshly joined member.
func (l *Launcher) OnMemberJoin(ctx context.Context, memberID string) error {
	return l.Start(ctx, "onboarding", memberID)
}

// Start opens the channel for the given flow kind and member and kicks the
// driver so the first question goes out immediately rather than on the next
// sweep. Returns nil without side effects when the member already has an open
// channel for the flow.
func (l *Launcher) Start(ctx context.Context, flowKind, memberID string) error {
	flow, ok := l.flowByKind(flowKind)
	if !ok {
		return fmt.Errorf("start %q: %w", flowKind, domain.ErrUnknownFlow)
	}

	member, err := l.chat.Member(ctx, memberID)
	if err != nil {
		return fmt.Errorf("start %s: member lookup: %w", flowKind, err)
	}

	if ch, err := l.existing(ctx, flow, memberID); err != nil {
		return err
	} else if ch != nil {
		l.log.Debug().
			Str("flow", flow.Kind).
			Str("member_id", memberID).
			Str("channel_id", ch.ID).
			Msg("conversation already open")
		return nil
	}

	ch, err := l.chat.CreateChannel(ctx, adapter.CreateChannelInput{
		Name:      flow.ChannelPrefix + sanitizeChannelName(member.Username),
		Topic:     model.TopicWithMember(memberID),
		MemberIDs: []string{memberID},
	})
	if err != nil {
		return fmt.Errorf("start %s: create channel: %w", flowKind, err)
	}
	metrics.IncConversationStarted(flow.Kind)
	l.log.Info().
		Str("flow", flow.Kind).
		Str("member_id", memberID).
		Str("channel_id", ch.ID).
		Msg("conversation channel opened")

	if _, err := l.driver.Resume(ctx, flow, *ch); err != nil {
		// The sweep's recovery pass will ask the first question instead.
		l.log.Warn().Err(err).Str("channel_id", ch.ID).Msg("initial resume failed")
	}
	return nil
}

// existing finds the member's already-open channel for the flow, if any.
func (l *Launcher) existing(ctx context.Context, flow model.Flow, memberID string) (*model.Channel, error) {
	channels, err := l.chat.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	for i := range channels {
		ch := &channels[i]
		if !strings.HasPrefix(ch.Name, flow.ChannelPrefix) {
			continue
		}
		if id, err := ch.MemberID(); err == nil && id == memberID {
			return ch, nil
		}
	}
	return nil, nil
}

func (l *Launcher) flowByKind(kind string) (model.Flow, bool) {
	for _, f := range l.flows {
		if f.Kind == kind {
			return f, true
		}
	}
	return model.Flow{}, false
}

func sanitizeChannelName(username string) string {
	name := channelNameSanitizer.ReplaceAllString(strings.ToLower(username), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "member"
	}
	return name
}
