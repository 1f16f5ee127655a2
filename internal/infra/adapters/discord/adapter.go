// File: internal/infra/adapters/discord/adapter.go
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

// historyPageSize is the platform maximum per history request.
const historyPageSize = 100

// historyMaxMessages bounds how much history one channel may pull; the
// sweeper's hard cap removes channels long before this matters.
const historyMaxMessages = 500

var _ adapter.ChatPlatformAdapter = (*Adapter)(nil)

// Adapter implements the chat platform port on top of a Discord guild. All
// conversation channels live in that one guild; channel visibility is done
// with per-member permission overwrites.
type Adapter struct {
	session *discordgo.Session
	guildID string
	log     *zerolog.Logger
}

func NewAdapter(session *discordgo.Session, guildID string, logger *zerolog.Logger) *Adapter {
	l := logger.With().Str("component", "DiscordAdapter").Logger()
	return &Adapter{session: session, guildID: guildID, log: &l}
}

func (a *Adapter) CreateChannel(ctx context.Context, in adapter.CreateChannelInput) (*model.Channel, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares its id with the guild.
			ID:   a.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    a.BotUserID(),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
		},
	}
	for _, memberID := range in.MemberIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    memberID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	ch, err := a.session.GuildChannelCreateComplex(a.guildID, discordgo.GuildChannelCreateData{
		Name:                 in.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                in.Topic,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: create channel: %v", domain.ErrExternalService, err)
	}
	return toChannel(ch), nil
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		if isUnknownChannel(err) {
			return nil
		}
		return fmt.Errorf("%w: delete channel: %v", domain.ErrExternalService, err)
	}
	return nil
}

func (a *Adapter) Channel(ctx context.Context, channelID string) (*model.Channel, error) {
	ch, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownChannel(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetch channel: %v", domain.ErrExternalService, err)
	}
	return toChannel(ch), nil
}

func (a *Adapter) Channels(ctx context.Context) ([]model.Channel, error) {
	chs, err := a.session.GuildChannels(a.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", domain.ErrExternalService, err)
	}
	out := make([]model.Channel, 0, len(chs))
	for _, ch := range chs {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, *toChannel(ch))
	}
	return out, nil
}

func (a *Adapter) SetTopic(ctx context.Context, channelID, topic string) error {
	_, err := a.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Topic: topic}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: set topic: %v", domain.ErrExternalService, err)
	}
	return nil
}

// Messages pages the full channel history and returns it oldest first, which
// is the order everything above this layer assumes.
func (a *Adapter) Messages(ctx context.Context, channelID string) ([]model.Message, error) {
	botID := a.BotUserID()
	var newestFirst []*discordgo.Message
	beforeID := ""
	for len(newestFirst) < historyMaxMessages {
		page, err := a.session.ChannelMessages(channelID, historyPageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			if isUnknownChannel(err) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("%w: fetch messages: %v", domain.ErrExternalService, err)
		}
		newestFirst = append(newestFirst, page...)
		if len(page) < historyPageSize {
			break
		}
		beforeID = page[len(page)-1].ID
	}

	out := make([]model.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, toMessage(newestFirst[i], channelID, botID))
	}
	return out, nil
}

func (a *Adapter) SendMessage(ctx context.Context, channelID, content string) (*model.Message, error) {
	msg, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: send message: %v", domain.ErrExternalService, err)
	}
	m := toMessage(msg, channelID, a.BotUserID())
	return &m, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	if _, err := a.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: edit message: %v", domain.ErrExternalService, err)
	}
	return nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: delete message: %v", domain.ErrExternalService, err)
	}
	return nil
}

func (a *Adapter) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]model.Member, error) {
	users, err := a.session.MessageReactions(channelID, messageID, emoji, historyPageSize, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch reactions: %v", domain.ErrExternalService, err)
	}
	out := make([]model.Member, 0, len(users))
	for _, u := range users {
		out = append(out, model.Member{ID: u.ID, Username: u.Username})
	}
	return out, nil
}

func (a *Adapter) Member(ctx context.Context, memberID string) (*model.Member, error) {
	gm, err := a.session.GuildMember(a.guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetch member: %v", domain.ErrExternalService, err)
	}
	return toMember(gm), nil
}

func (a *Adapter) AddRole(ctx context.Context, memberID, roleID string) error {
	if err := a.session.GuildMemberRoleAdd(a.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: add role: %v", domain.ErrExternalService, err)
	}
	return nil
}

func (a *Adapter) RemoveRole(ctx context.Context, memberID, roleID string) error {
	if err := a.session.GuildMemberRoleRemove(a.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: remove role: %v", domain.ErrExternalService, err)
	}
	return nil
}

func (a *Adapter) BotUserID() string {
	if a.session.State != nil && a.session.State.User != nil {
		return a.session.State.User.ID
	}
	return ""
}

func toChannel(ch *discordgo.Channel) *model.Channel {
	return &model.Channel{ID: ch.ID, Name: ch.Name, Topic: ch.Topic}
}

func toMessage(m *discordgo.Message, channelID, botID string) model.Message {
	authorID := ""
	if m.Author != nil {
		authorID = m.Author.ID
	}
	return model.Message{
		ID:        m.ID,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		FromBot:   authorID == botID,
	}
}

func toMember(gm *discordgo.Member) *model.Member {
	m := &model.Member{
		ID:          gm.User.ID,
		Username:    gm.User.Username,
		DisplayName: gm.Nick,
		Roles:       gm.Roles,
	}
	if gm.User.Avatar != "" {
		m.AvatarURL = gm.User.AvatarURL("")
	}
	return m
}

func isUnknownMember(err error) bool {
	return hasErrCode(err, discordgo.ErrCodeUnknownMember) || hasErrCode(err, discordgo.ErrCodeUnknownUser)
}

func isUnknownChannel(err error) bool {
	return hasErrCode(err, discordgo.ErrCodeUnknownChannel)
}

func hasErrCode(err error, code int) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code == code
	}
	return false
}
