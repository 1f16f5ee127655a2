// File: internal/infra/adapters/noop/noop.go
//
// No-op adapter implementations for dev mode and wiring tests: every write
// logs and succeeds, every read returns an empty-but-valid result.
package noop

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.ChatPlatformAdapter  = (*Chat)(nil)
	_ adapter.MailingListAdapter   = (*MailingList)(nil)
	_ adapter.EmailVerifierAdapter = (*EmailVerifier)(nil)
	_ adapter.LedgerAdapter        = (*Ledger)(nil)
)

// Chat is an in-memory chat platform. It keeps channels and messages so the
// whole engine can run end to end against it in dev mode.
type Chat struct {
	log *zerolog.Logger

	mu       sync.Mutex
	seq      int
	channels map[string]*model.Channel
	messages map[string][]model.Message
	members  map[string]*model.Member
}

func NewChat(logger *zerolog.Logger) *Chat {
	l := logger.With().Str("component", "NoopChat").Logger()
	return &Chat{
		log:      &l,
		channels: map[string]*model.Channel{},
		messages: map[string][]model.Message{},
		members:  map[string]*model.Member{},
	}
}

// SeedMember registers a fake guild member.
func (c *Chat) SeedMember(m model.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[m.ID] = &m
}

func (c *Chat) nextID() string {
	c.seq++
	return strconv.Itoa(c.seq)
}

func (c *Chat) CreateChannel(_ context.Context, in adapter.CreateChannelInput) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := &model.Channel{ID: c.nextID(), Name: in.Name, Topic: in.Topic}
	c.channels[ch.ID] = ch
	c.log.Info().Str("channel_id", ch.ID).Str("name", ch.Name).Msg("noop create channel")
	return ch, nil
}

func (c *Chat) DeleteChannel(_ context.Context, channelID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channelID)
	delete(c.messages, channelID)
	c.log.Info().Str("channel_id", channelID).Str("reason", reason).Msg("noop delete channel")
	return nil
}

func (c *Chat) Channel(_ context.Context, channelID string) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (c *Chat) Channels(context.Context) ([]model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (c *Chat) SetTopic(_ context.Context, channelID, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return domain.ErrNotFound
	}
	ch.Topic = topic
	return nil
}

func (c *Chat) Messages(_ context.Context, channelID string) ([]model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[channelID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (c *Chat) SendMessage(_ context.Context, channelID, content string) (*model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := model.Message{
		ID:        c.nextID(),
		ChannelID: channelID,
		AuthorID:  c.BotUserID(),
		Content:   content,
		Timestamp: time.Now().UTC(),
		FromBot:   true,
	}
	c.messages[channelID] = append(c.messages[channelID], msg)
	c.log.Info().Str("channel_id", channelID).Str("content", content).Msg("noop send")
	return &msg, nil
}

func (c *Chat) EditMessage(_ context.Context, channelID, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages[channelID] {
		if c.messages[channelID][i].ID == messageID {
			c.messages[channelID][i].Content = content
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *Chat) DeleteMessage(_ context.Context, channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			c.messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *Chat) Reactors(context.Context, string, string, string) ([]model.Member, error) {
	return nil, nil
}

func (c *Chat) Member(_ context.Context, memberID string) (*model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (c *Chat) AddRole(_ context.Context, memberID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.members[memberID]; ok && !m.HasRole(roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (c *Chat) RemoveRole(_ context.Context, memberID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[memberID]
	if !ok {
		return nil
	}
	for i, r := range m.Roles {
		if r == roleID {
			m.Roles = append(m.Roles[:i:i], m.Roles[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Chat) BotUserID() string { return "bot" }

// MailingList remembers subscribers in memory.
type MailingList struct {
	mu   sync.Mutex
	subs map[string]adapter.Subscriber
}

func NewMailingList() *MailingList {
	return &MailingList{subs: map[string]adapter.Subscriber{}}
}

func (m *MailingList) Lookup(_ context.Context, email string) (*adapter.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *MailingList) Upsert(_ context.Context, sub adapter.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Email] = sub
	return nil
}

// EmailVerifier accepts every address.
type EmailVerifier struct{}

func NewEmailVerifier() *EmailVerifier { return &EmailVerifier{} }

func (EmailVerifier) IsDisposable(context.Context, string) (bool, error) { return false, nil }

// Ledger is an in-memory key/value ledger.
type Ledger struct {
	mu   sync.Mutex
	data map[string]string
}

func NewLedger() *Ledger { return &Ledger{data: map[string]string{}} }

func (l *Ledger) Get(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (l *Ledger) Set(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[key] = value
	return nil
}
