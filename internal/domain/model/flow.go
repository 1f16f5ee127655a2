package model

import (
	"context"
	"time"
)

// HookContext is the narrow surface a sweep hook gets. The function fields are
// bound by the sweeper so flow packages do not depend on the platform adapter.
type HookContext struct {
	Channel  Channel
	Member   Member
	Messages []Message

	Send          func(ctx context.Context, content string) error
	SetTopic      func(ctx context.Context, topic string) error
	DeleteChannel func(ctx context.Context, reason string) error
	Reactors      func(ctx context.Context, messageID, emoji string) ([]Member, error)
}

// SweepHook runs extra per-channel exit conditions ahead of the generic sweep
// (reaction transitions, private-chat countdowns). handled=true means the hook
// consumed the channel this pass — deleted it or performed a transition — and
// the generic sweep must not touch it again.
type SweepHook func(ctx context.Context, hc HookContext) (handled bool, err error)

// Flow describes one conversation kind: its steps plus the lifecycle knobs the
// sweeper applies to channels of that kind.
type Flow struct {
	Kind          string
	ChannelPrefix string

	Steps []Step

	// DeleteKeyword lets the member tear the channel down at any point.
	DeleteKeyword string

	// TerminalText is the closing bot message; its presence is how "finished"
	// is distinguished from "abandoned".
	TerminalText string

	Timeout        time.Duration
	WarningWindow  time.Duration
	SoftMessageCap int
	HardMessageCap int

	Hook SweepHook
}

// ActiveSteps applies ShouldSkip for the given member.
func (f Flow) ActiveSteps(m Member) []Step {
	out := make([]Step, 0, len(f.Steps))
	for _, s := range f.Steps {
		if s.ShouldSkip != nil && s.ShouldSkip(m) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// HasQuestions reports whether the flow drives any question steps at all.
// Flows without questions (the private chat itself) are free-form channels
// that only the sweeper manages.
func (f Flow) HasQuestions() bool {
	for _, s := range f.Steps {
		if s.Kind == KindQuestion {
			return true
		}
	}
	return false
}
