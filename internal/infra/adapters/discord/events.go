// File: internal/infra/adapters/discord/events.go
package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/infra/logging"
)

// Events is what the gateway pushes into the application layer. Both sinks
// must be non-blocking; the dispatcher queues internally.
type Events interface {
	OnMessage(ctx context.Context, ch model.Channel, msg model.Message)
	OnMessageEdit(ctx context.Context, ch model.Channel, msg model.Message)
}

// Joins receives guild member joins, which open onboarding channels.
type Joins interface {
	OnMemberJoin(ctx context.Context, memberID string) error
}

// BindHandlers registers the gateway handlers and sets the intents they need.
// Call before Session.Open.
func BindHandlers(ctx context.Context, session *discordgo.Session, guildID string, events Events, joins Joins, logger *zerolog.Logger) {
	log := logger.With().Str("component", "DiscordGateway").Logger()

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	resolve := func(channelID string) (model.Channel, bool) {
		ch, err := session.State.Channel(channelID)
		if err != nil {
			ch, err = session.Channel(channelID, discordgo.WithContext(ctx))
			if err != nil {
				log.Warn().Err(err).Str("channel_id", channelID).Msg("cannot resolve channel for event")
				return model.Channel{}, false
			}
		}
		if ch.GuildID != guildID {
			return model.Channel{}, false
		}
		return *toChannel(ch), true
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		ch, ok := resolve(m.ChannelID)
		if !ok {
			return
		}
		events.OnMessage(logging.WithTraceID(ctx, uuid.NewString()), ch, toMessage(m.Message, m.ChannelID, s.State.User.ID))
	})

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		// Embed unfurls and similar arrive as updates with no author.
		if m.Author == nil || m.Author.Bot {
			return
		}
		ch, ok := resolve(m.ChannelID)
		if !ok {
			return
		}
		events.OnMessageEdit(logging.WithTraceID(ctx, uuid.NewString()), ch, toMessage(m.Message, m.ChannelID, s.State.User.ID))
	})

	session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.GuildID != guildID || m.User == nil || m.User.Bot {
			return
		}
		if err := joins.OnMemberJoin(ctx, m.User.ID); err != nil {
			log.Error().Err(err).Str("member_id", m.User.ID).Msg("member join handling failed")
		}
	})
}
