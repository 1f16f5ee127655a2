// File: internal/flows/privatechat.go
package flows

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

const (
	privateRequestTerminal = "Enjoy the chat — this request channel will tidy itself up. 🔒"
	privateOpenPrefix      = "🔒 Private chat is open: "
	privateExtendAckPrefix = "⏳ "
	maxPrivateLifetime     = 7 * 24 * time.Hour
)

var (
	privateInviteeFbRe  = regexp.MustCompile(`^Inviting (<@\d+>) along\.$`)
	privateReasonFbRe   = regexp.MustCompile(`^Reason on record:\n> (.+)$`)
	privateLifetimeFbRe = regexp.MustCompile("^Lifetime set to `(.+)`\\.$")
	extendCmdRe         = regexp.MustCompile(`(?i)^extend\s+(\S+)$`)
)

// PrivateChatRequest negotiates a time-boxed private channel between the
// requesting member and someone they mention.
func PrivateChatRequest(d Deps) model.Flow {
	steps := []model.Step{
		{
			Kind:     model.KindQuestion,
			Name:     "invitee",
			Question: model.Text("Who's the private chat with? Mention them so I get the right person."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				id := firstMention(in.Message)
				switch {
				case id == "":
					return "I need a mention — type @ and pick the person.", nil
				case id == in.Member.ID:
					return "A private chat with yourself is just thinking — mention someone else.", nil
				}
				return "", nil
			},
			CleanAnswer: func(raw string) string { return "<@" + firstMention(raw) + ">" },
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Inviting %s along.", rc.Answers["invitee"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := privateInviteeFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "reason",
			Question: model.Text("What's the chat about? One line for the record."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				reason := strings.TrimSpace(in.Message)
				switch {
				case reason == "":
					return "One line on what this is about, please.", nil
				case !singleLine(reason):
					return "One line for the record — no essays needed.", nil
				case len([]rune(reason)) > 200:
					return "Keep the reason under 200 characters.", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Reason on record:\n> %s", rc.Answers["reason"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := privateReasonFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "lifetime",
			Question: model.Text("How long should it stay open? Something like `24h` or `3d` (7d max)."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				dur, err := parseLifetime(in.Message)
				if err != nil {
					return "I can do hours or days — try `24h` or `3d`.", nil
				}
				if dur <= 0 || dur > maxPrivateLifetime {
					return "Anything from an hour up to `7d` works.", nil
				}
				return "", nil
			},
			CleanAnswer: func(raw string) string {
				return strings.ToLower(strings.TrimSpace(strings.Trim(raw, "`")))
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Lifetime set to `%s`.", rc.Answers["lifetime"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := privateLifetimeFbRe.FindStringSubmatch(botText)
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
					"Here's the private chat I'll open:\n• With: %s\n• About: %s\n• For: `%s`\nReply `yes` and I'll set it up.",
					rc.Answers["invitee"], rc.Answers["reason"], rc.Answers["lifetime"],
				)
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "Here's the private chat I'll open:")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if parseYesNo(in.Message) != "yes" {
					return "Reply `yes` to open it, or edit an answer above first.", nil
				}
				return "", nil
			},
			CleanAnswer: func(string) string { return "yes" },
			Feedback:    model.Text("Opening the channel now."),
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				if botText == "Opening the channel now." {
					return "yes", true
				}
				return "", false
			},
		},
		model.ActionOnly(openPrivateChannel(d)),
	}

	return model.Flow{
		Kind:           "private-request",
		ChannelPrefix:  "chat-request-",
		Steps:          steps,
		DeleteKeyword:  deleteKeyword,
		TerminalText:   privateRequestTerminal,
		Timeout:        30 * time.Minute,
		WarningWindow:  10 * time.Minute,
		SoftMessageCap: 60,
		HardMessageCap: 100,
	}
}

// PrivateChannel is the opened chat itself: no steps to drive, only lifecycle.
// It carries two independent countdowns — the absolute expiry embedded in the
// topic, and the inactivity timeout — plus the `extend` command.
func PrivateChannel(d Deps) model.Flow {
	return model.Flow{
		Kind:           "private-chat",
		ChannelPrefix:  "private-",
		DeleteKeyword:  deleteKeyword,
		Timeout:        72 * time.Hour,
		WarningWindow:  12 * time.Hour,
		HardMessageCap: 0, // private chats are allowed to be chatty
		Hook:           privateChannelHook(d),
	}
}

// openPrivateChannel creates the private channel with overwrites for both
// members and drops a pointer into the request channel. The pointer doubles
// as the idempotency guard.
func openPrivateChannel(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		msgs, err := d.Chat.Messages(ctx, in.ChannelID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.FromBot && strings.HasPrefix(m.Content, privateOpenPrefix) {
				return nil
			}
		}

		lifetime, err := parseLifetime(in.Answers["lifetime"])
		if err != nil {
			return fmt.Errorf("recorded lifetime unparseable: %w", err)
		}
		invitee := firstMention(in.Answers["invitee"])
		ch, err := d.Chat.CreateChannel(ctx, adapter.CreateChannelInput{
			Name:      "private-" + strings.ToLower(in.Member.Username),
			Topic:     model.TopicWithExpiry(in.Member.ID, time.Now().UTC().Add(lifetime)),
			MemberIDs: []string{in.Member.ID, invitee},
		})
		if err != nil {
			return fmt.Errorf("create private channel: %w", err)
		}
		_, err = d.Chat.SendMessage(ctx, in.ChannelID,
			fmt.Sprintf("%s<#%s> — it closes itself when the time is up.", privateOpenPrefix, ch.ID))
		return err
	}
}

// privateChannelHook enforces the absolute expiry and handles `extend`.
func privateChannelHook(d Deps) model.SweepHook {
	return func(ctx context.Context, hc model.HookContext) (bool, error) {
		expiry, err := hc.Channel.Expiry()
		if err != nil {
			if errors.Is(err, domain.ErrNoExpiryMarker) {
				// Someone edited the topic out from under us; the channel is
				// unmanageable without it.
				d.Log.Error().Str("channel_id", hc.Channel.ID).Msg("private chat lost its expiry marker")
				return true, hc.DeleteChannel(ctx, "missing expiry metadata")
			}
			return true, hc.DeleteChannel(ctx, "unparseable expiry metadata")
		}
		if time.Now().UTC().After(expiry) {
			return true, hc.DeleteChannel(ctx, "private chat expired")
		}

		// Lifetime extension: the newest unacknowledged `extend <dur>` wins.
		req := latestUnackedExtend(hc.Messages)
		if req == nil {
			return false, nil
		}
		dur, err := parseLifetime(extendCmdRe.FindStringSubmatch(strings.TrimSpace(req.Content))[1])
		if err != nil || dur <= 0 || dur > maxPrivateLifetime {
			return true, hc.Send(ctx, privateExtendAckPrefix+"I couldn't read that — try `extend 24h` or `extend 2d`.")
		}
		newExpiry := expiry.Add(dur)
		topic, err := hc.Channel.WithExpiry(newExpiry)
		if err != nil {
			return false, err
		}
		if err := hc.SetTopic(ctx, topic); err != nil {
			return false, err
		}
		return true, hc.Send(ctx, fmt.Sprintf("%sExtended — this chat now runs until `%s`.",
			privateExtendAckPrefix, newExpiry.Format(time.RFC3339)))
	}
}

// latestUnackedExtend finds the newest member `extend` command with no ⏳
// acknowledgment after it.
func latestUnackedExtend(msgs []model.Message) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := &msgs[i]
		if m.FromBot {
			if strings.HasPrefix(m.Content, privateExtendAckPrefix) {
				return nil
			}
			continue
		}
		if extendCmdRe.MatchString(strings.TrimSpace(m.Content)) {
			return m
		}
	}
	return nil
}
