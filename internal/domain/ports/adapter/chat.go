// File: internal/domain/ports/adapter/chat.go
package adapter

import (
	"context"

	"discord-community-bot/internal/domain/model"
)

// CreateChannelInput describes a conversation channel to create. The channel
// is hidden from everyone except the listed members and the bot via permission
// overwrites.
type CreateChannelInput struct {
	Name      string
	Topic     string
	MemberIDs []string
}

// ChatPlatformAdapter is the port to the chat platform. Implementations own
// network-level timeouts; callers only pass context.
type ChatPlatformAdapter interface {
	CreateChannel(ctx context.Context, in CreateChannelInput) (*model.Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	Channel(ctx context.Context, channelID string) (*model.Channel, error)
	Channels(ctx context.Context) ([]model.Channel, error)
	SetTopic(ctx context.Context, channelID, topic string) error

	// Messages returns the channel history ordered oldest first.
	Messages(ctx context.Context, channelID string) ([]model.Message, error)
	SendMessage(ctx context.Context, channelID, content string) (*model.Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// Reactors lists the members who left the given emoji on a message.
	Reactors(ctx context.Context, channelID, messageID, emoji string) ([]model.Member, error)

	// Member returns domain.ErrNotFound when the member has left the guild.
	Member(ctx context.Context, memberID string) (*model.Member, error)
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRole(ctx context.Context, memberID, roleID string) error

	BotUserID() string
}
