// File: internal/flows/mocks_test.go
package flows_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/flows"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeChat struct {
	mu       sync.Mutex
	seq      int
	messages map[string][]model.Message
	members  map[string]*model.Member
	Created  []adapter.CreateChannelInput
	Deleted  []string
	Topics   map[string]string
}

var _ adapter.ChatPlatformAdapter = (*fakeChat)(nil)

func newFakeChat() *fakeChat {
	return &fakeChat{
		messages: map[string][]model.Message{},
		members:  map[string]*model.Member{},
		Topics:   map[string]string{},
	}
}

func (c *fakeChat) seed(channelID string, fromBot bool, authorID, content string) model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	msg := model.Message{
		ID: "m" + strconv.Itoa(c.seq), ChannelID: channelID, AuthorID: authorID,
		Content: content, Timestamp: time.Now(), FromBot: fromBot,
	}
	c.messages[channelID] = append(c.messages[channelID], msg)
	return msg
}

func (c *fakeChat) botMessages(channelID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.messages[channelID] {
		if m.FromBot {
			out = append(out, m.Content)
		}
	}
	return out
}

func (c *fakeChat) CreateChannel(_ context.Context, in adapter.CreateChannelInput) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Created = append(c.Created, in)
	c.seq++
	return &model.Channel{ID: "c" + strconv.Itoa(c.seq), Name: in.Name, Topic: in.Topic}, nil
}

func (c *fakeChat) DeleteChannel(_ context.Context, channelID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, channelID+":"+reason)
	return nil
}

func (c *fakeChat) Channel(context.Context, string) (*model.Channel, error) {
	return nil, domain.ErrNotFound
}

func (c *fakeChat) Channels(context.Context) ([]model.Channel, error) { return nil, nil }

func (c *fakeChat) SetTopic(_ context.Context, channelID, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Topics[channelID] = topic
	return nil
}

func (c *fakeChat) Messages(_ context.Context, channelID string) ([]model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.messages[channelID]))
	copy(out, c.messages[channelID])
	return out, nil
}

func (c *fakeChat) SendMessage(_ context.Context, channelID, content string) (*model.Message, error) {
	msg := c.seed(channelID, true, "bot", content)
	return &msg, nil
}

func (c *fakeChat) EditMessage(context.Context, string, string, string) error { return nil }
func (c *fakeChat) DeleteMessage(context.Context, string, string) error       { return nil }

func (c *fakeChat) Reactors(context.Context, string, string, string) ([]model.Member, error) {
	return nil, nil
}

func (c *fakeChat) Member(_ context.Context, memberID string) (*model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (c *fakeChat) AddRole(_ context.Context, memberID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.members[memberID]; ok {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (c *fakeChat) RemoveRole(context.Context, string, string) error { return nil }
func (c *fakeChat) BotUserID() string                                { return "bot" }

type fakeList struct {
	mu      sync.Mutex
	subs    map[string]adapter.Subscriber
	Upserts int
}

func newFakeList() *fakeList { return &fakeList{subs: map[string]adapter.Subscriber{}} }

func (f *fakeList) Lookup(_ context.Context, email string) (*adapter.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeList) Upsert(_ context.Context, sub adapter.Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.Email] = sub
	f.Upserts++
	return nil
}

type fakeVerify struct{ disposable map[string]bool }

func (f *fakeVerify) IsDisposable(_ context.Context, email string) (bool, error) {
	return f.disposable[email], nil
}

type fakeLedger struct {
	mu   sync.Mutex
	data map[string]string
	Sets int
}

func newFakeLedger() *fakeLedger { return &fakeLedger{data: map[string]string{}} }

func (f *fakeLedger) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeLedger) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.Sets++
	return nil
}

func testDeps(chat *fakeChat, list *fakeList, verify *fakeVerify, ledger *fakeLedger) flows.Deps {
	if chat == nil {
		chat = newFakeChat()
	}
	if list == nil {
		list = newFakeList()
	}
	if verify == nil {
		verify = &fakeVerify{disposable: map[string]bool{}}
	}
	if ledger == nil {
		ledger = newFakeLedger()
	}
	return flows.Deps{
		Chat:         chat,
		List:         list,
		Verify:       verify,
		Ledger:       ledger,
		MemberRoleID: "role-member",
		Log:          newTestLogger(),
	}
}
