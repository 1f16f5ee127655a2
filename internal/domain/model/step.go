package model

import "context"

// StepKind discriminates the step union. Dispatch on it is exhaustive; there
// are exactly two variants.
type StepKind int

const (
	// KindQuestion is a step that asks, validates and acknowledges an answer.
	KindQuestion StepKind = iota
	// KindAction is a step with no user-facing question; it is executed
	// automatically once reached and is never "answered".
	KindAction
)

// RenderContext is the immutable input to question/feedback rendering.
type RenderContext struct {
	Answers Answers
	Member  Member
}

// ValidateInput carries a candidate answer into a step validator.
type ValidateInput struct {
	Message string
	Answers Answers
	Member  Member
}

// ActionInput carries everything a step side effect may need. IsEdit is true
// when the action re-runs because an earlier answer was edited; actions must
// be idempotent under it (check before mutate).
type ActionInput struct {
	Answers   Answers
	Member    Member
	ChannelID string
	IsEdit    bool
}

// Step is one unit of a conversation.
//
// For a question step, ParseAnswer must be the left inverse of Feedback: for
// any recorded answer v, ParseAnswer(Feedback(ctx-with-v)) == v. That is the
// whole persistence story — if it breaks, answers cannot be recovered from
// history and the bot re-asks settled questions after a restart.
type Step struct {
	Kind StepKind

	// Question-step fields. Name is unique within a flow.
	Name     string
	Question func(RenderContext) string
	Feedback func(RenderContext) string

	// IsQuestionMessage recognises a sent question whose rendered text embeds
	// live values and so cannot be matched verbatim. Nil means literal match.
	IsQuestionMessage func(text string) bool

	// ParseAnswer recovers the answer value from a bot feedback message.
	// Returns ok=false when the message does not belong to this step.
	ParseAnswer func(botText string, m Member) (value string, ok bool)

	// Validate returns a user-facing rejection string (empty = accepted) or an
	// error for external-dependency failures that should read as "try later".
	Validate func(ctx context.Context, in ValidateInput) (string, error)

	// CleanAnswer normalises the raw message content before it is recorded and
	// rendered. Nil means trim only.
	CleanAnswer func(raw string) string

	// Action is the step's side effect, also used by action-only steps.
	Action func(ctx context.Context, in ActionInput) error

	// ShouldSkip omits the step entirely for a given member.
	ShouldSkip func(Member) bool
}

// ActionOnly builds the action-variant step.
func ActionOnly(action func(ctx context.Context, in ActionInput) error) Step {
	return Step{Kind: KindAction, Action: action}
}

// Text adapts a literal string to the rendering function shape.
func Text(s string) func(RenderContext) string {
	return func(RenderContext) string { return s }
}

// MatchesQuestion reports whether a sent bot message is (a version of) this
// step's question under the given render context.
func (s Step) MatchesQuestion(text string, rc RenderContext) bool {
	if s.Kind != KindQuestion {
		return false
	}
	if s.IsQuestionMessage != nil && s.IsQuestionMessage(text) {
		return true
	}
	return s.Question != nil && s.Question(rc) == text
}

// Clean applies the step's answer normalisation.
func (s Step) Clean(raw string) string {
	if s.CleanAnswer != nil {
		return s.CleanAnswer(raw)
	}
	return raw
}
