// File: internal/usecase/driver_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/infra/logging"
	"discord-community-bot/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*driverUC)(nil)

// ConversationUseCase reacts to new member messages in a conversation channel
// and is the restart-recovery entry point used by the sweeper. Every method
// serialises on the channel: concurrent callers queue up rather than
// interleave their history reads and writes.
type ConversationUseCase interface {
	// HandleMessage runs one forward pass for a newly arrived member message.
	HandleMessage(ctx context.Context, flow model.Flow, ch model.Channel, msg model.Message) error

	// Resume replays the forward pass without a new message: it re-runs any
	// side effects that may have been cut short and (re-)asks the current
	// question. Safe to call on every sweep pass; all work is guarded.
	// acted=false means the channel was already in its expected state.
	Resume(ctx context.Context, flow model.Flow, ch model.Channel) (acted bool, err error)

	// DeleteConversation tears the channel down with a short farewell.
	DeleteConversation(ctx context.Context, flow model.Flow, ch model.Channel, reason string) error
}

type driverUC struct {
	chat          adapter.ChatPlatformAdapter
	locks         *ChannelLocks
	farewellDelay time.Duration
	log           *zerolog.Logger
}

func NewConversationUseCase(chat adapter.ChatPlatformAdapter, locks *ChannelLocks, farewellDelay time.Duration, logger *zerolog.Logger) *driverUC {
	l := logger.With().Str("component", "ConversationDriver").Logger()
	return &driverUC{chat: chat, locks: locks, farewellDelay: farewellDelay, log: &l}
}

func (d *driverUC) HandleMessage(ctx context.Context, flow model.Flow, ch model.Channel, msg model.Message) error {
	defer logging.TraceDuration(d.log, "ConversationDriver.HandleMessage")()
	unlock := d.locks.Lock(ch.ID)
	defer unlock()
	return d.handleMessage(ctx, flow, ch, msg)
}

func (d *driverUC) handleMessage(ctx context.Context, flow model.Flow, ch model.Channel, msg model.Message) error {
	member, err := d.resolveMember(ctx, ch)
	if err != nil {
		if errors.Is(err, domain.ErrMemberLeft) || errors.Is(err, domain.ErrNoMemberMarker) {
			// Left members and broken topics are the sweeper's problem.
			d.log.Warn().Err(err).Str("channel_id", ch.ID).Msg("skipping message for unresolvable channel")
			return nil
		}
		return err
	}
	if msg.AuthorID != member.ID {
		return nil
	}

	content := strings.TrimSpace(msg.Content)

	// The deletion keyword is a terminal transition and bypasses everything,
	// including the edit gate.
	if flow.DeleteKeyword != "" && strings.EqualFold(content, flow.DeleteKeyword) {
		return d.deleteConversation(ctx, flow, ch, "requested by member")
	}

	if !flow.HasQuestions() {
		// Free-form channel (the private chat itself); only the keyword above
		// and the sweeper apply.
		return nil
	}

	steps := flow.ActiveSteps(*member)
	msgs, err := d.chat.Messages(ctx, ch.ID)
	if err != nil {
		return err
	}

	// The gateway and the sweeper's replay path can both deliver the same
	// message. Once any bot message follows it in history, the first delivery
	// already ran to completion and this one is a duplicate.
	if i := indexOfMessage(msgs, msg.ID); i >= 0 {
		for _, m := range msgs[i+1:] {
			if m.FromBot {
				d.log.Debug().Str("channel_id", ch.ID).Str("message_id", msg.ID).Msg("dropping duplicate delivery of a processed message")
				return nil
			}
		}
	}

	// Hard gate: while any edit-error annotation is outstanding, no new
	// answer advances anything. Later questions may render values from the
	// broken answer, so forward progress would bake the damage in.
	if len(editErrorAnnotations(msgs)) > 0 {
		if last := model.LastBotMessage(msgs); last != nil && last.Content == textEditGate {
			return nil
		}
		_, err := d.chat.SendMessage(ctx, ch.ID, textEditGate)
		return err
	}

	answers := Reconstruct(msgs, steps, *member)
	ci := currentStep(steps, answers)

	// Bootstrap: nothing asked yet, so whatever the member typed cannot be an
	// answer. Open with the first question.
	if model.LastBotMessage(msgs) == nil {
		if ci < 0 {
			return nil
		}
		rc := model.RenderContext{Answers: answers, Member: *member}
		_, err := d.chat.SendMessage(ctx, ch.ID, steps[ci].Question(rc))
		return err
	}

	if ci < 0 {
		return d.closeOut(ctx, flow, ch, steps, answers, *member, msgs)
	}

	step := steps[ci]
	rc := model.RenderContext{Answers: answers, Member: *member}

	// Guard against treating a stray message as an answer to a question that
	// was never asked. Also the replay path after a crash between feedback
	// and the next question. Validation-error replies may sit between the
	// question and the member's retry, so the whole history is scanned, not
	// just the latest bot message.
	if !questionAsked(msgs, step, rc) {
		_, err := d.chat.SendMessage(ctx, ch.ID, step.Question(rc))
		return err
	}

	verdict, err := step.Validate(ctx, model.ValidateInput{Message: content, Answers: answers, Member: *member})
	if err != nil {
		d.log.Error().Err(err).Str("channel_id", ch.ID).Str("step", step.Name).Msg("validator dependency failure")
		_, serr := d.chat.SendMessage(ctx, ch.ID, textTryLater)
		return serr
	}
	if verdict != "" {
		metrics.IncValidationError(flow.Kind, step.Name)
		_, err := d.chat.SendMessage(ctx, ch.ID, verdict)
		return err
	}

	// Recording the answer IS sending the feedback: the rendered feedback is
	// the only place the value lives.
	merged := answers.Clone()
	merged[step.Name] = step.Clean(content)
	rc = model.RenderContext{Answers: merged, Member: *member}
	if step.Feedback != nil {
		if _, err := d.chat.SendMessage(ctx, ch.ID, step.Feedback(rc)); err != nil {
			return err
		}
	}
	metrics.IncAnswerRecorded(flow.Kind, step.Name)

	if step.Action != nil {
		in := model.ActionInput{Answers: merged, Member: *member, ChannelID: ch.ID, IsEdit: false}
		if err := step.Action(ctx, in); err != nil {
			// The answer is recorded; the sweeper's Resume pass re-runs the
			// action region and asks the next question.
			d.log.Error().Err(err).Str("channel_id", ch.ID).Str("step", step.Name).Msg("step action failed")
			return nil
		}
	}

	return d.advance(ctx, flow, ch, steps, merged, *member, ci)
}

// advance runs every action-only step directly after index from, in order and
// never concurrently (each may depend on the previous one's side effects),
// then asks the next unanswered question or closes the conversation out.
func (d *driverUC) advance(ctx context.Context, flow model.Flow, ch model.Channel, steps []model.Step, answers model.Answers, member model.Member, from int) error {
	j := from + 1
	for ; j < len(steps) && steps[j].Kind == model.KindAction; j++ {
		in := model.ActionInput{Answers: answers, Member: member, ChannelID: ch.ID, IsEdit: false}
		if err := steps[j].Action(ctx, in); err != nil {
			d.log.Error().Err(err).Str("channel_id", ch.ID).Int("step_index", j).Msg("action-only step failed")
			return nil
		}
	}

	rc := model.RenderContext{Answers: answers, Member: member}
	if ni := nextQuestionStep(steps, j); ni >= 0 {
		_, err := d.chat.SendMessage(ctx, ch.ID, steps[ni].Question(rc))
		return err
	}

	if flow.TerminalText != "" {
		if _, err := d.chat.SendMessage(ctx, ch.ID, flow.TerminalText); err != nil {
			return err
		}
		metrics.IncConversationCompleted(flow.Kind)
	}
	return nil
}

// closeOut makes sure a fully answered conversation got its terminal message
// and any trailing action-only steps, without duplicating either.
func (d *driverUC) closeOut(ctx context.Context, flow model.Flow, ch model.Channel, steps []model.Step, answers model.Answers, member model.Member, msgs []model.Message) error {
	if flow.TerminalText == "" || model.ContainsBotMessage(msgs, flow.TerminalText) {
		return nil
	}
	return d.advance(ctx, flow, ch, steps, answers, member, lastAnsweredStep(steps, answers))
}

func (d *driverUC) Resume(ctx context.Context, flow model.Flow, ch model.Channel) (bool, error) {
	defer logging.TraceDuration(d.log, "ConversationDriver.Resume")()
	unlock := d.locks.Lock(ch.ID)
	defer unlock()
	return d.resume(ctx, flow, ch)
}

func (d *driverUC) resume(ctx context.Context, flow model.Flow, ch model.Channel) (bool, error) {
	member, err := d.resolveMember(ctx, ch)
	if err != nil {
		if errors.Is(err, domain.ErrMemberLeft) || errors.Is(err, domain.ErrNoMemberMarker) {
			return false, nil
		}
		return false, err
	}
	if !flow.HasQuestions() {
		return false, nil
	}

	steps := flow.ActiveSteps(*member)
	msgs, err := d.chat.Messages(ctx, ch.ID)
	if err != nil {
		return false, err
	}
	if len(editErrorAnnotations(msgs)) > 0 {
		// Gated: only a fixed edit resumes progress.
		return false, nil
	}

	answers := Reconstruct(msgs, steps, *member)
	ci := currentStep(steps, answers)
	rc := model.RenderContext{Answers: answers, Member: *member}

	if ci < 0 {
		if flow.TerminalText == "" || model.ContainsBotMessage(msgs, flow.TerminalText) {
			return false, nil
		}
		return true, d.closeOut(ctx, flow, ch, steps, answers, *member, msgs)
	}

	if questionAsked(msgs, steps[ci], rc) {
		// Question is out; we are waiting on the member.
		return false, nil
	}

	// The pass was cut short somewhere between recording the last answer and
	// asking the next question. Replay the whole region; every action is
	// idempotent by contract.
	la := lastAnsweredStep(steps, answers)
	if la >= 0 && steps[la].Action != nil {
		in := model.ActionInput{Answers: answers, Member: *member, ChannelID: ch.ID, IsEdit: false}
		if err := steps[la].Action(ctx, in); err != nil {
			d.log.Error().Err(err).Str("channel_id", ch.ID).Str("step", steps[la].Name).Msg("step action failed on resume")
			return true, nil
		}
	}
	return true, d.advance(ctx, flow, ch, steps, answers, *member, la)
}

func (d *driverUC) DeleteConversation(ctx context.Context, flow model.Flow, ch model.Channel, reason string) error {
	unlock := d.locks.Lock(ch.ID)
	defer unlock()
	return d.deleteConversation(ctx, flow, ch, reason)
}

func (d *driverUC) deleteConversation(ctx context.Context, flow model.Flow, ch model.Channel, reason string) error {
	if _, err := d.chat.SendMessage(ctx, ch.ID, textFarewell); err != nil {
		d.log.Warn().Err(err).Str("channel_id", ch.ID).Msg("farewell send failed")
	}
	if d.farewellDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.farewellDelay):
		}
	}
	if err := d.chat.DeleteChannel(ctx, ch.ID, reason); err != nil {
		return err
	}
	metrics.IncChannelDeleted(flow.Kind, reason)
	return nil
}

// questionAsked reports whether the step's question has been sent at all.
func questionAsked(msgs []model.Message, step model.Step, rc model.RenderContext) bool {
	for _, m := range msgs {
		if m.FromBot && step.MatchesQuestion(m.Content, rc) {
			return true
		}
	}
	return false
}

func (d *driverUC) resolveMember(ctx context.Context, ch model.Channel) (*model.Member, error) {
	memberID, err := ch.MemberID()
	if err != nil {
		return nil, err
	}
	member, err := d.chat.Member(ctx, memberID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrMemberLeft
	}
	return member, err
}
