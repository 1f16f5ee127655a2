// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
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

// MockChat is an in-memory chat platform whose full call history is
// inspectable by tests.
type MockChat struct {
	mu sync.Mutex

	seq      int
	clock    time.Time
	channels map[string]*model.Channel
	messages map[string][]model.Message
	members  map[string]*model.Member
	reactors map[string]map[string][]model.Member

	Deleted     []string // "channelID:reason"
	DeletedMsgs []string
	Edited      map[string]string // messageID -> new content
	SendErr     error

	// MessagesHook runs at the top of every Messages call, before the store
	// lock. Tests use it to hold two history readers concurrent.
	MessagesHook func(channelID string)
}

var _ adapter.ChatPlatformAdapter = (*MockChat)(nil)

func NewMockChat() *MockChat {
	return &MockChat{
		clock:    time.Now().Add(-30 * time.Second),
		channels: map[string]*model.Channel{},
		messages: map[string][]model.Message{},
		members:  map[string]*model.Member{},
		reactors: map[string]map[string][]model.Member{},
		Edited:   map[string]string{},
	}
}

func (c *MockChat) nextID() string {
	c.seq++
	return "m" + strconv.Itoa(c.seq)
}

func (c *MockChat) tick() time.Time {
	c.clock = c.clock.Add(time.Second)
	return c.clock
}

// SeedChannel registers a channel without going through CreateChannel.
func (c *MockChat) SeedChannel(ch model.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := ch
	c.channels[ch.ID] = &cp
}

func (c *MockChat) SeedMember(m model.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := m
	c.members[m.ID] = &cp
}

func (c *MockChat) RemoveMember(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, id)
}

// SeedBotMessage appends a bot message to the channel history and returns it.
func (c *MockChat) SeedBotMessage(channelID, content string) model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := model.Message{
		ID: c.nextID(), ChannelID: channelID, AuthorID: "bot",
		Content: content, Timestamp: c.tick(), FromBot: true,
	}
	c.messages[channelID] = append(c.messages[channelID], msg)
	return msg
}

// SeedMemberMessage appends a member message to the channel history.
func (c *MockChat) SeedMemberMessage(channelID, authorID, content string) model.Message {
	return c.SeedMemberMessageAt(channelID, authorID, content, c.tickLocked())
}

func (c *MockChat) tickLocked() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick()
}

func (c *MockChat) SeedMemberMessageAt(channelID, authorID, content string, at time.Time) model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := model.Message{
		ID: c.nextID(), ChannelID: channelID, AuthorID: authorID,
		Content: content, Timestamp: at,
	}
	c.messages[channelID] = append(c.messages[channelID], msg)
	return msg
}

// AgeAllMessages shifts every message in the channel back in time, for
// timeout scenarios.
func (c *MockChat) AgeAllMessages(channelID string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages[channelID] {
		c.messages[channelID][i].Timestamp = c.messages[channelID][i].Timestamp.Add(-d)
	}
}

// SetMessageContent rewrites a stored message in place, simulating the
// platform-side result of a member edit.
func (c *MockChat) SetMessageContent(channelID, messageID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages[channelID] {
		if c.messages[channelID][i].ID == messageID {
			c.messages[channelID][i].Content = content
			return
		}
	}
}

func (c *MockChat) SetReactors(messageID, emoji string, members ...model.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reactors[messageID] == nil {
		c.reactors[messageID] = map[string][]model.Member{}
	}
	c.reactors[messageID][emoji] = members
}

// BotMessages returns the bot side of a channel's history, oldest first.
func (c *MockChat) BotMessages(channelID string) []string {
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

func (c *MockChat) LastBotMessage(channelID string) string {
	msgs := c.BotMessages(channelID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (c *MockChat) CreateChannel(_ context.Context, in adapter.CreateChannelInput) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := &model.Channel{ID: c.nextID(), Name: in.Name, Topic: in.Topic}
	c.channels[ch.ID] = ch
	return ch, nil
}

func (c *MockChat) DeleteChannel(_ context.Context, channelID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channelID)
	c.Deleted = append(c.Deleted, channelID+":"+reason)
	return nil
}

func (c *MockChat) Channel(_ context.Context, channelID string) (*model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (c *MockChat) Channels(context.Context) ([]model.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (c *MockChat) SetTopic(_ context.Context, channelID, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[channelID]; ok {
		ch.Topic = topic
	}
	return nil
}

func (c *MockChat) Messages(_ context.Context, channelID string) ([]model.Message, error) {
	if c.MessagesHook != nil {
		c.MessagesHook(channelID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[channelID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (c *MockChat) SendMessage(_ context.Context, channelID, content string) (*model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return nil, c.SendErr
	}
	msg := model.Message{
		ID: c.nextID(), ChannelID: channelID, AuthorID: "bot",
		Content: content, Timestamp: c.tick(), FromBot: true,
	}
	c.messages[channelID] = append(c.messages[channelID], msg)
	return &msg, nil
}

func (c *MockChat) EditMessage(_ context.Context, channelID, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages[channelID] {
		if c.messages[channelID][i].ID == messageID {
			c.messages[channelID][i].Content = content
			c.Edited[messageID] = content
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *MockChat) DeleteMessage(_ context.Context, channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages[channelID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			c.messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			c.DeletedMsgs = append(c.DeletedMsgs, messageID)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *MockChat) Reactors(_ context.Context, _, messageID, emoji string) ([]model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reactors[messageID][emoji], nil
}

func (c *MockChat) Member(_ context.Context, memberID string) (*model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (c *MockChat) AddRole(_ context.Context, memberID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.members[memberID]; ok {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (c *MockChat) RemoveRole(context.Context, string, string) error { return nil }

func (c *MockChat) BotUserID() string { return "bot" }

// --- Test flow fixture ---
//
// A three-question survey with one action-only step, shaped like the real
// flows: literal first question, live-value second question, a validator that
// rejects, and a terminal message distinct from every feedback.

var (
	fixtureNameFbRe  = regexp.MustCompile(`^Name: \*\*(.+)\*\*$`)
	fixtureColorFbRe = regexp.MustCompile(`^Color: (.+)$`)
	fixtureMottoFbRe = regexp.MustCompile(`^Motto: "(.+)"$`)
)

type fixtureCalls struct {
	mu          sync.Mutex
	colorAction []model.ActionInput
	finishRuns  int
}

func (f *fixtureCalls) ColorActions() []model.ActionInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ActionInput, len(f.colorAction))
	copy(out, f.colorAction)
	return out
}

func (f *fixtureCalls) FinishRuns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishRuns
}

func surveyFlow(calls *fixtureCalls) model.Flow {
	if calls == nil {
		calls = &fixtureCalls{}
	}
	steps := []model.Step{
		{
			Kind:     model.KindQuestion,
			Name:     "name",
			Question: model.Text("What is your name?"),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if strings.TrimSpace(in.Message) == "" {
					return "Need a name.", nil
				}
				return "", nil
			},
			CleanAnswer: strings.TrimSpace,
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Name: **%s**", rc.Answers["name"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := fixtureNameFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind: model.KindQuestion,
			Name: "color",
			Question: func(rc model.RenderContext) string {
				return fmt.Sprintf("Hi %s, what is your favorite color?", rc.Answers["name"])
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "Hi ") && strings.HasSuffix(text, "favorite color?")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if strings.EqualFold(strings.TrimSpace(in.Message), "purple") {
					return "Anything but purple.", nil
				}
				return "", nil
			},
			CleanAnswer: func(raw string) string { return strings.ToLower(strings.TrimSpace(raw)) },
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Color: %s", rc.Answers["color"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := fixtureColorFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
			Action: func(_ context.Context, in model.ActionInput) error {
				calls.mu.Lock()
				defer calls.mu.Unlock()
				calls.colorAction = append(calls.colorAction, in)
				return nil
			},
		},
		model.ActionOnly(func(_ context.Context, _ model.ActionInput) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.finishRuns++
			return nil
		}),
		{
			Kind:     model.KindQuestion,
			Name:     "motto",
			Question: model.Text("Last one: what is your motto?"),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if strings.TrimSpace(in.Message) == "" {
					return "Everyone has a motto.", nil
				}
				return "", nil
			},
			CleanAnswer: strings.TrimSpace,
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Motto: %q", rc.Answers["motto"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := fixtureMottoFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
	}
	return model.Flow{
		Kind:           "survey",
		ChannelPrefix:  "survey-",
		Steps:          steps,
		DeleteKeyword:  "delete",
		TerminalText:   "Survey complete, thanks!",
		Timeout:        time.Hour,
		WarningWindow:  15 * time.Minute,
		SoftMessageCap: 20,
		HardMessageCap: 30,
	}
}

func surveyChannel() model.Channel {
	return model.Channel{ID: "ch1", Name: "survey-alice", Topic: model.TopicWithMember("u1")}
}

func surveyMember() model.Member {
	return model.Member{ID: "u1", Username: "alice"}
}
