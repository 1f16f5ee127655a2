// File: internal/flows/club.go
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
	clubTerminal     = "Application is in the review queue — sit tight. 🌿"
	clubReviewPrefix = "📋 Club application from "
	clubApproved     = "Club approved — your club channel is on the way. 🎉"
)

var (
	clubNameFbRe    = regexp.MustCompile(`^\*\*(.+)\*\* — solid name for a club\.$`)
	clubDescFbRe    = regexp.MustCompile(`^Description noted:\n> (.+)$`)
	clubCadenceFbRe = regexp.MustCompile(`^Meeting cadence: (weekly|biweekly|monthly)\.$`)
)

// ClubApplication collects a club proposal and posts it for review; the
// reviewer drives approval through reactions on the review message.
func ClubApplication(d Deps) model.Flow {
	steps := []model.Step{
		{
			Kind:     model.KindQuestion,
			Name:     "club-name",
			Question: model.Text("What's the name of the club you want to start?"),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				name := strings.TrimSpace(in.Message)
				switch {
				case len([]rune(name)) < 2:
					return "Give it at least a couple of characters.", nil
				case !singleLine(name):
					return "Club names fit on one line.", nil
				case len([]rune(name)) > 80:
					return "That's a mouthful — keep it under 80 characters.", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("**%s** — solid name for a club.", rc.Answers["club-name"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := clubNameFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "description",
			Question: model.Text("Give me a one-or-two sentence description for the club listing."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				desc := strings.TrimSpace(in.Message)
				switch {
				case desc == "":
					return "An empty listing won't sell the club — give me a sentence.", nil
				case !singleLine(desc):
					return "Keep it to a single paragraph, no line breaks.", nil
				case len([]rune(desc)) > 300:
					return "Under 300 characters, please — it's a listing, not a manifesto.", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Description noted:\n> %s", rc.Answers["description"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := clubDescFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "cadence",
			Question: model.Text("How often will the club meet? (weekly/biweekly/monthly)"),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				switch strings.ToLower(strings.TrimSpace(in.Message)) {
				case "weekly", "biweekly", "monthly":
					return "", nil
				}
				return "Pick one of weekly, biweekly or monthly.", nil
			},
			CleanAnswer: func(raw string) string { return strings.ToLower(strings.TrimSpace(raw)) },
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Meeting cadence: %s.", rc.Answers["cadence"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := clubCadenceFbRe.FindStringSubmatch(botText)
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
					"Here's what I'll submit:\n• Club: **%s**\n• Cadence: %s\n• Pitch: %s\nReply `yes` to send it off.",
					rc.Answers["club-name"], rc.Answers["cadence"], rc.Answers["description"],
				)
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "Here's what I'll submit:")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if parseYesNo(in.Message) != "yes" {
					return "Reply `yes` to submit, or edit an answer above to change something.", nil
				}
				return "", nil
			},
			CleanAnswer: func(string) string { return "yes" },
			Feedback:    model.Text("Application sent — a gardener will take a look soon."),
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				if botText == "Application sent — a gardener will take a look soon." {
					return "yes", true
				}
				return "", false
			},
		},
		model.ActionOnly(postClubReview(d)),
	}

	return model.Flow{
		Kind:           "club",
		ChannelPrefix:  "club-",
		Steps:          steps,
		DeleteKeyword:  deleteKeyword,
		TerminalText:   clubTerminal,
		Timeout:        7 * 24 * time.Hour,
		WarningWindow:  24 * time.Hour,
		SoftMessageCap: 80,
		HardMessageCap: 120,
		Hook:           clubReviewHook(),
	}
}

// postClubReview drops the reaction-driven review message into the channel,
// once.
func postClubReview(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		msgs, err := d.Chat.Messages(ctx, in.ChannelID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.FromBot && strings.HasPrefix(m.Content, clubReviewPrefix) {
				return nil
			}
		}
		text := fmt.Sprintf(
			"%s%s: **%s** — %s meetings.\nReact ▶️ to approve or ❌ to decline.",
			clubReviewPrefix, in.Member.Mention(), in.Answers["club-name"], in.Answers["cadence"],
		)
		_, err = d.Chat.SendMessage(ctx, in.ChannelID, text)
		return err
	}
}

// clubReviewHook turns reactions on the review message into state
// transitions: approve posts the confirmation, decline removes the channel.
func clubReviewHook() model.SweepHook {
	return func(ctx context.Context, hc model.HookContext) (bool, error) {
		review := findBotMessage(hc.Messages, clubReviewPrefix)
		if review == nil || model.ContainsBotMessage(hc.Messages, clubApproved) {
			return false, nil
		}
		host := firstMention(review.Content)
		if host == "" {
			return false, nil
		}

		if reacted, err := hasReactor(ctx, hc, review.ID, "▶️", host); err != nil {
			return false, err
		} else if reacted {
			return true, hc.Send(ctx, clubApproved)
		}
		if reacted, err := hasReactor(ctx, hc, review.ID, "❌", host); err != nil {
			return false, err
		} else if reacted {
			return true, hc.DeleteChannel(ctx, "declined by reviewer")
		}
		return false, nil
	}
}

func findBotMessage(msgs []model.Message, prefix string) *model.Message {
	for i := range msgs {
		if msgs[i].FromBot && strings.HasPrefix(msgs[i].Content, prefix) {
			return &msgs[i]
		}
	}
	return nil
}

func hasReactor(ctx context.Context, hc model.HookContext, messageID, emoji, memberID string) (bool, error) {
	reactors, err := hc.Reactors(ctx, messageID, emoji)
	if err != nil {
		return false, err
	}
	for _, r := range reactors {
		if r.ID == memberID {
			return true, nil
		}
	}
	return false, nil
}
