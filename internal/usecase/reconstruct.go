// File: internal/usecase/reconstruct.go
package usecase

import "discord-community-bot/internal/domain/model"

// Reconstruct derives the answers already given in a conversation purely from
// the bot's own past messages. It is the only state-recovery path: pure,
// side-effect free and idempotent, so it can be re-run any number of times
// (after restarts, before every driver invocation) with the same result.
//
// Each bot message is attributed to at most one step: the first step, in
// declaration order, whose parser claims it. Unmatched steps simply have no
// entry in the returned map.
func Reconstruct(messages []model.Message, steps []model.Step, m model.Member) model.Answers {
	answers := model.Answers{}
	claimed := make(map[string]bool, len(steps))

	for _, msg := range messages {
		if !msg.FromBot {
			continue
		}
		for _, s := range steps {
			if s.Kind == model.KindAction || claimed[s.Name] {
				continue
			}
			if v, ok := s.ParseAnswer(msg.Content, m); ok {
				answers[s.Name] = v
				claimed[s.Name] = true
				break
			}
		}
	}
	return answers
}

// currentStep returns the first question step with no recorded answer, or -1
// when every question step is satisfied.
func currentStep(steps []model.Step, answers model.Answers) int {
	for i, s := range steps {
		if s.Kind != model.KindQuestion {
			continue
		}
		if !answers.Has(s.Name) {
			return i
		}
	}
	return -1
}

// lastAnsweredStep returns the index of the last question step that has an
// answer, or -1 when none do.
func lastAnsweredStep(steps []model.Step, answers model.Answers) int {
	last := -1
	for i, s := range steps {
		if s.Kind == model.KindQuestion && answers.Has(s.Name) {
			last = i
		}
	}
	return last
}

// nextQuestionStep returns the index of the first question step at or after
// from, or -1.
func nextQuestionStep(steps []model.Step, from int) int {
	for i := from; i < len(steps); i++ {
		if steps[i].Kind == model.KindQuestion {
			return i
		}
	}
	return -1
}
