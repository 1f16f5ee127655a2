// File: internal/application/mocks_test.go
package application_test

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

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// recordingDriver captures driver invocations; Block lets a test hold one
// channel's handling open while other channels proceed.
type recordingDriver struct {
	mu      sync.Mutex
	Handled []string // "channelID:content"
	Resumed []string // channelID
	Block   func(channelID string)
}

func (d *recordingDriver) HandleMessage(_ context.Context, _ model.Flow, ch model.Channel, msg model.Message) error {
	if d.Block != nil {
		d.Block(ch.ID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Handled = append(d.Handled, ch.ID+":"+msg.Content)
	return nil
}

func (d *recordingDriver) Resume(_ context.Context, _ model.Flow, ch model.Channel) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Resumed = append(d.Resumed, ch.ID)
	return true, nil
}

func (d *recordingDriver) DeleteConversation(context.Context, model.Flow, model.Channel, string) error {
	return nil
}

func (d *recordingDriver) handled() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.Handled))
	copy(out, d.Handled)
	return out
}

type recordingReconciler struct {
	mu    sync.Mutex
	Edits []string // "channelID:messageID"
}

func (r *recordingReconciler) HandleEdit(_ context.Context, _ model.Flow, ch model.Channel, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edits = append(r.Edits, ch.ID+":"+msg.ID)
	return nil
}

func (r *recordingReconciler) edits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Edits))
	copy(out, r.Edits)
	return out
}

type denyLimiter struct {
	allow bool
	err   error
}

func (l *denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allow, l.err
}

// launcherChat is the minimal platform surface the launcher touches.
type launcherChat struct {
	mu       sync.Mutex
	seq      int
	channels []model.Channel
	members  map[string]model.Member
	Created  []adapter.CreateChannelInput
}

var _ adapter.ChatPlatformAdapter = (*launcherChat)(nil)

func newLauncherChat() *launcherChat {
	return &launcherChat{members: map[string]model.Member{}}
}

func (c *launcherChat) CreateChannel(_ context.Context, in adapter.CreateChannelInput) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Created = append(c.Created, in)
	c.seq++
	ch := model.Channel{ID: "c" + strconv.Itoa(c.seq), Name: in.Name, Topic: in.Topic}
	c.channels = append(c.channels, ch)
	return &ch, nil
}

func (c *launcherChat) DeleteChannel(context.Context, string, string) error { return nil }

func (c *launcherChat) Channel(context.Context, string) (*model.Channel, error) {
	return nil, domain.ErrNotFound
}

func (c *launcherChat) Channels(context.Context) ([]model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Channel, len(c.channels))
	copy(out, c.channels)
	return out, nil
}

func (c *launcherChat) SetTopic(context.Context, string, string) error { return nil }

func (c *launcherChat) Messages(context.Context, string) ([]model.Message, error) { return nil, nil }

func (c *launcherChat) SendMessage(context.Context, string, string) (*model.Message, error) {
	return &model.Message{}, nil
}

func (c *launcherChat) EditMessage(context.Context, string, string, string) error { return nil }
func (c *launcherChat) DeleteMessage(context.Context, string, string) error       { return nil }

func (c *launcherChat) Reactors(context.Context, string, string, string) ([]model.Member, error) {
	return nil, nil
}

func (c *launcherChat) Member(_ context.Context, memberID string) (*model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (c *launcherChat) AddRole(context.Context, string, string) error    { return nil }
func (c *launcherChat) RemoveRole(context.Context, string, string) error { return nil }
func (c *launcherChat) BotUserID() string                                { return "bot" }
