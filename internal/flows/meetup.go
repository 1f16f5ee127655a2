// File: internal/flows/meetup.go
package flows

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"discord-community-bot/internal/domain/model"
)

const (
	meetupTerminal    = "All scheduled! React on the announcement above to start or cancel. 📅"
	meetupSchedPrefix = "📅 Scheduled: "
	meetupLivePrefix  = "🔴 Live now: "
	meetupTimeLayout  = "2006-01-02 15:04"
)

var (
	meetupTopicFbRe = regexp.MustCompile(`^Topic locked in: \*\*(.+)\*\*\.$`)
	meetupWhenFbRe  = regexp.MustCompile("^Scheduled for `(.+)` UTC\\.$")
	meetupDescFbRe  = regexp.MustCompile(`^Description saved:\n> (.+)$`)
	meetupSchedRe   = regexp.MustCompile("^📅 Scheduled: \\*\\*(.+)\\*\\* at `(.+)` UTC, hosted by (<@!?\\d+>)")
)

// Meetup schedules a member-hosted meetup or stream. The host starts or
// cancels it by reacting to the scheduled announcement.
func Meetup(d Deps) model.Flow {
	steps := []model.Step{
		{
			Kind:     model.KindQuestion,
			Name:     "topic",
			Question: model.Text("What's your meetup or stream about? One line is plenty."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				topic := strings.TrimSpace(in.Message)
				switch {
				case topic == "":
					return "I can't announce an untitled mystery — what's the topic?", nil
				case !singleLine(topic):
					return "One line is plenty — really.", nil
				case len([]rune(topic)) > 120:
					return "Keep the topic under 120 characters; details come next.", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Topic locked in: **%s**.", rc.Answers["topic"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := meetupTopicFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "when",
			Question: model.Text("When should it happen? Use `YYYY-MM-DD HH:MM` (UTC)."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				raw := strings.Trim(strings.TrimSpace(in.Message), "`")
				t, err := time.Parse(meetupTimeLayout, raw)
				if err != nil {
					return "I couldn't read that — the format is `YYYY-MM-DD HH:MM`, e.g. `2026-09-03 18:00`.", nil
				}
				if t.Before(time.Now().UTC()) {
					return "That's in the past — pick a future time.", nil
				}
				return "", nil
			},
			CleanAnswer: func(raw string) string { return strings.Trim(strings.TrimSpace(raw), "`") },
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Scheduled for `%s` UTC.", rc.Answers["when"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := meetupWhenFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "description",
			Question: model.Text("Add a short description for the announcement."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				desc := strings.TrimSpace(in.Message)
				switch {
				case desc == "":
					return "A sentence or two will do — what should the announcement say?", nil
				case !singleLine(desc):
					return "Single paragraph, please — the announcement is one message.", nil
				case len([]rune(desc)) > 300:
					return "Under 300 characters — save the rest for the stream.", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Description saved:\n> %s", rc.Answers["description"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := meetupDescFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind: model.KindQuestion,
			Name: "confirm",
			Question: func(rc model.RenderContext) string {
				return fmt.Sprintf(
					"Here's the announcement I'll post:\n• **%s**\n• `%s` UTC\n• %s\nReply `yes` to schedule it.",
					rc.Answers["topic"], rc.Answers["when"], rc.Answers["description"],
				)
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "Here's the announcement I'll post:")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if parseYesNo(in.Message) != "yes" {
					return "Reply `yes` to schedule, or edit an answer above first.", nil
				}
				return "", nil
			},
			CleanAnswer: func(string) string { return "yes" },
			Feedback:    model.Text("Announcement going up now."),
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				if botText == "Announcement going up now." {
					return "yes", true
				}
				return "", false
			},
		},
		model.ActionOnly(postSchedule(d)),
	}

	return model.Flow{
		Kind:           "meetup",
		ChannelPrefix:  "meetup-",
		Steps:          steps,
		DeleteKeyword:  deleteKeyword,
		TerminalText:   meetupTerminal,
		Timeout:        7 * 24 * time.Hour,
		WarningWindow:  24 * time.Hour,
		SoftMessageCap: 80,
		HardMessageCap: 120,
		Hook:           meetupScheduleHook(d),
	}
}

// postSchedule posts the reaction-driven announcement, once. The host is the
// first mention in the body; that is what the sweep hook keys on.
func postSchedule(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		msgs, err := d.Chat.Messages(ctx, in.ChannelID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.FromBot && strings.HasPrefix(m.Content, meetupSchedPrefix) {
				return nil
			}
		}
		text := fmt.Sprintf(
			"%s**%s** at `%s` UTC, hosted by %s — react ▶️ to go live or ❌ to cancel.",
			meetupSchedPrefix, in.Answers["topic"], in.Answers["when"], in.Member.Mention(),
		)
		_, err = d.Chat.SendMessage(ctx, in.ChannelID, text)
		return err
	}
}

// meetupScheduleHook reads the host's reactions off the scheduled message.
// Start wins over cancel if both are somehow present in one pass, mirroring
// declaration-order tie-breaking everywhere else in the engine.
func meetupScheduleHook(d Deps) model.SweepHook {
	return func(ctx context.Context, hc model.HookContext) (bool, error) {
		sched := findBotMessage(hc.Messages, meetupSchedPrefix)
		if sched == nil {
			return false, nil
		}
		if findBotMessage(hc.Messages, meetupLivePrefix) != nil {
			return false, nil
		}

		parts := meetupSchedRe.FindStringSubmatch(sched.Content)
		if parts == nil {
			// A scheduled message we can no longer parse is a dead artifact.
			// Fall through so the generic lifecycle pass can still warn, time
			// the channel out and remove it.
			d.Log.Error().Str("channel_id", hc.Channel.ID).Str("message_id", sched.ID).Msg("unparseable scheduled message, skipping reactions")
			return false, nil
		}
		topic, host := parts[1], firstMention(sched.Content)
		if host == "" {
			return false, nil
		}

		if reacted, err := hasReactor(ctx, hc, sched.ID, "▶️", host); err != nil {
			return false, err
		} else if reacted {
			return true, hc.Send(ctx, fmt.Sprintf("%s**%s** — hosted by <@%s>!", meetupLivePrefix, topic, host))
		}
		if reacted, err := hasReactor(ctx, hc, sched.ID, "❌", host); err != nil {
			return false, err
		} else if reacted {
			return true, hc.DeleteChannel(ctx, "cancelled by host")
		}
		return false, nil
	}
}
