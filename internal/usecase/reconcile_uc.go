// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/infra/logging"
	"discord-community-bot/internal/infra/metrics"
)

// Compile-time check
var _ EditReconciler = (*reconcilerUC)(nil)

// EditReconciler reacts to a member editing a past answer: it re-validates the
// new content, manages edit-error annotations, and cascades the change through
// every downstream rendered message and side effect.
type EditReconciler interface {
	HandleEdit(ctx context.Context, flow model.Flow, ch model.Channel, edited model.Message) error
}

type reconcilerUC struct {
	chat  adapter.ChatPlatformAdapter
	locks *ChannelLocks
	log   *zerolog.Logger
}

func NewEditReconciler(chat adapter.ChatPlatformAdapter, locks *ChannelLocks, logger *zerolog.Logger) *reconcilerUC {
	l := logger.With().Str("component", "EditReconciler").Logger()
	return &reconcilerUC{chat: chat, locks: locks, log: &l}
}

func (r *reconcilerUC) HandleEdit(ctx context.Context, flow model.Flow, ch model.Channel, edited model.Message) error {
	defer logging.TraceDuration(r.log, "EditReconciler.HandleEdit")()
	unlock := r.locks.Lock(ch.ID)
	defer unlock()
	return r.handleEdit(ctx, flow, ch, edited)
}

func (r *reconcilerUC) handleEdit(ctx context.Context, flow model.Flow, ch model.Channel, edited model.Message) error {
	memberID, err := ch.MemberID()
	if err != nil {
		r.log.Warn().Err(err).Str("channel_id", ch.ID).Msg("edit in channel with unparseable topic")
		return nil
	}
	if edited.AuthorID != memberID || !flow.HasQuestions() {
		return nil
	}
	member, err := r.chat.Member(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	steps := flow.ActiveSteps(*member)
	msgs, err := r.chat.Messages(ctx, ch.ID)
	if err != nil {
		return err
	}

	// Answers as they stand without the edited message's contribution. The
	// edited step is then identified structurally: the bot message following
	// the edit is the feedback that message originally produced, and whichever
	// step's parser claims it is the step being edited.
	editedIdx := indexOfMessage(msgs, edited.ID)
	if editedIdx < 0 {
		return nil
	}
	previous := Reconstruct(withoutIndex(msgs, editedIdx), steps, *member)

	stepIdx := -1
	for i := editedIdx + 1; i < len(msgs) && stepIdx < 0; i++ {
		if !msgs[i].FromBot {
			continue
		}
		if _, isAnnotation := parseEditError(msgs[i].Content); isAnnotation {
			continue
		}
		for si, s := range steps {
			if s.Kind != model.KindQuestion {
				continue
			}
			if _, ok := s.ParseAnswer(msgs[i].Content, *member); ok {
				stepIdx = si
				break
			}
		}
	}
	if stepIdx < 0 {
		// Edit of a message that never produced an answer (a rejected attempt,
		// or free chatter). Nothing to reconcile.
		return nil
	}
	step := steps[stepIdx]

	content := strings.TrimSpace(edited.Content)
	verdict, err := step.Validate(ctx, model.ValidateInput{Message: content, Answers: previous, Member: *member})
	if err != nil {
		r.log.Error().Err(err).Str("channel_id", ch.ID).Str("step", step.Name).Msg("validator dependency failure on edit")
		_, serr := r.chat.SendMessage(ctx, ch.ID, textTryLater)
		return serr
	}
	if verdict != "" {
		metrics.IncEditError(flow.Kind, step.Name)
		return r.annotate(ctx, ch, msgs, step.Name, verdict)
	}

	// The edit is good: clear this step's annotations. Matching is on the
	// step tag only, so overlapping error text across steps cannot misclear.
	wasGated, remaining, err := r.clearAnnotations(ctx, ch, msgs, step.Name)
	if err != nil {
		return err
	}

	merged := previous.Clone()
	merged[step.Name] = step.Clean(content)

	if err := r.cascade(ctx, ch, steps, *member, previous, merged, msgs); err != nil {
		return err
	}

	// Resume forward progress that the gate was holding back.
	if wasGated && remaining == 0 {
		if ni := currentStep(steps, merged); ni >= 0 {
			rc := model.RenderContext{Answers: merged, Member: *member}
			if _, err := r.chat.SendMessage(ctx, ch.ID, textResume); err != nil {
				return err
			}
			if _, err := r.chat.SendMessage(ctx, ch.ID, steps[ni].Question(rc)); err != nil {
				return err
			}
		}
	}
	return nil
}

// annotate posts a new edit-error annotation, or refreshes the existing one
// for the same step so repeated bad edits do not stack.
func (r *reconcilerUC) annotate(ctx context.Context, ch model.Channel, msgs []model.Message, stepName, verdict string) error {
	text := editErrorText(stepName, verdict)
	for _, m := range editErrorAnnotations(msgs) {
		if tag, _ := parseEditError(m.Content); tag == stepName {
			if m.Content == text {
				return nil
			}
			return r.chat.EditMessage(ctx, ch.ID, m.ID, text)
		}
	}
	_, err := r.chat.SendMessage(ctx, ch.ID, text)
	return err
}

// clearAnnotations deletes every annotation tagged with the step and reports
// whether the channel was gated at all plus how many annotations remain.
func (r *reconcilerUC) clearAnnotations(ctx context.Context, ch model.Channel, msgs []model.Message, stepName string) (wasGated bool, remaining int, err error) {
	all := editErrorAnnotations(msgs)
	wasGated = len(all) > 0
	for _, m := range all {
		tag, _ := parseEditError(m.Content)
		if tag != stepName {
			remaining++
			continue
		}
		if derr := r.chat.DeleteMessage(ctx, ch.ID, m.ID); derr != nil {
			return wasGated, remaining, derr
		}
	}
	return wasGated, remaining, nil
}

// cascade re-renders every question and feedback message against the merged
// answers and edits whatever drifted, re-running the owning step's action in
// edit mode once per changed step.
func (r *reconcilerUC) cascade(ctx context.Context, ch model.Channel, steps []model.Step, member model.Member, previous, merged model.Answers, msgs []model.Message) error {
	idx := indexMessages(msgs, steps, member, previous, merged)
	mergedRC := model.RenderContext{Answers: merged, Member: member}

	for _, s := range steps {
		if s.Kind != model.KindQuestion {
			continue
		}
		ref := idx[s.Name]
		changed := false

		if ref.question != nil && s.Question != nil {
			if want := s.Question(mergedRC); ref.question.Content != want {
				if err := r.chat.EditMessage(ctx, ch.ID, ref.question.ID, want); err != nil {
					return err
				}
				changed = true
			}
		}
		if !merged.Has(s.Name) {
			// Unanswered steps have no feedback and no action to re-run; only
			// their already-asked question (if any) gets refreshed above.
			continue
		}
		if ref.feedback != nil && s.Feedback != nil {
			if want := s.Feedback(mergedRC); ref.feedback.Content != want {
				if err := r.chat.EditMessage(ctx, ch.ID, ref.feedback.ID, want); err != nil {
					return err
				}
				changed = true
			}
		}
		if changed && s.Action != nil {
			in := model.ActionInput{Answers: merged, Member: member, ChannelID: ch.ID, IsEdit: true}
			if err := s.Action(ctx, in); err != nil {
				r.log.Error().Err(err).Str("channel_id", ch.ID).Str("step", s.Name).Msg("edit-mode action failed")
			}
		}
	}
	return nil
}

// stepMessages are the live messages attributed to one step.
type stepMessages struct {
	question *model.Message
	feedback *model.Message
}

// indexMessages attributes bot messages to steps: feedbacks by parser claim in
// declaration order (mirroring Reconstruct), questions by rendered match under
// either the previous or the merged answers.
func indexMessages(msgs []model.Message, steps []model.Step, member model.Member, previous, merged model.Answers) map[string]stepMessages {
	out := make(map[string]stepMessages, len(steps))
	claimedFb := map[string]bool{}
	prevRC := model.RenderContext{Answers: previous, Member: member}
	mergedRC := model.RenderContext{Answers: merged, Member: member}

	for i := range msgs {
		msg := &msgs[i]
		if !msg.FromBot {
			continue
		}
		if _, ok := parseEditError(msg.Content); ok {
			continue
		}
		attributed := false
		for _, s := range steps {
			if s.Kind != model.KindQuestion || claimedFb[s.Name] {
				continue
			}
			if _, ok := s.ParseAnswer(msg.Content, member); ok {
				ref := out[s.Name]
				ref.feedback = msg
				out[s.Name] = ref
				claimedFb[s.Name] = true
				attributed = true
				break
			}
		}
		if attributed {
			continue
		}
		for _, s := range steps {
			if s.Kind != model.KindQuestion {
				continue
			}
			if ref := out[s.Name]; ref.question != nil {
				continue
			}
			if s.MatchesQuestion(msg.Content, prevRC) || s.MatchesQuestion(msg.Content, mergedRC) {
				ref := out[s.Name]
				ref.question = msg
				out[s.Name] = ref
				break
			}
		}
	}
	return out
}

func indexOfMessage(msgs []model.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func withoutIndex(msgs []model.Message, idx int) []model.Message {
	out := make([]model.Message, 0, len(msgs)-1)
	out = append(out, msgs[:idx]...)
	return append(out, msgs[idx+1:]...)
}
