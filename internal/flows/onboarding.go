// File: internal/flows/onboarding.go
package flows

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

const onboardingTerminal = "You're all set — welcome to the community! 🌻"

var (
	onboardingNameFbRe  = regexp.MustCompile(`^Nice to meet you, \*\*(.+)\*\*! 🌻$`)
	onboardingEmailFbRe = regexp.MustCompile("^Got it, I'll use `(.+)` from here on\\.$")
)

// Onboarding is the welcome conversation every new member gets: name, email,
// newsletter opt-in, optional avatar, then the member role.
func Onboarding(d Deps) model.Flow {
	steps := []model.Step{
		{
			Kind: model.KindQuestion,
			Name: "name",
			Question: func(rc model.RenderContext) string {
				return fmt.Sprintf("Welcome to the garden, %s! 🌱 What should we call you?", rc.Member.Mention())
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "Welcome to the garden, ")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				name := strings.TrimSpace(in.Message)
				switch {
				case name == "":
					return "I need something to call you — what name should I use?", nil
				case !singleLine(name):
					return "One line is all I can fit on a name tag.", nil
				case len([]rune(name)) > 64:
					return "That name is a bit long — can you keep it under 64 characters?", nil
				}
				return "", nil
			},
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Nice to meet you, **%s**! 🌻", rc.Answers["name"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := onboardingNameFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "email",
			Question: model.Text("What's your email address? It stays between us — newsletter and account recovery only."),
			Validate: func(ctx context.Context, in model.ValidateInput) (string, error) {
				email := strings.ToLower(strings.TrimSpace(in.Message))
				if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
					return "That doesn't look like a valid email address — mind double-checking it?", nil
				}
				disposable, err := d.Verify.IsDisposable(ctx, email)
				if err != nil {
					return "", fmt.Errorf("disposable check: %w", err)
				}
				if disposable {
					return "Disposable addresses don't work here — please use one you'll keep.", nil
				}
				return "", nil
			},
			CleanAnswer: func(raw string) string { return strings.ToLower(strings.TrimSpace(raw)) },
			Feedback: func(rc model.RenderContext) string {
				return fmt.Sprintf("Got it, I'll use `%s` from here on.", rc.Answers["email"])
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				m := onboardingEmailFbRe.FindStringSubmatch(botText)
				if m == nil {
					return "", false
				}
				return m[1], true
			},
		},
		{
			Kind:     model.KindQuestion,
			Name:     "newsletter",
			Question: model.Text("Want the weekly newsletter? One email a week, no fluff. (yes/no)"),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if parseYesNo(in.Message) == "" {
					return "Just a plain yes or no works best here.", nil
				}
				return "", nil
			},
			CleanAnswer: parseYesNo,
			Feedback: func(rc model.RenderContext) string {
				if rc.Answers["newsletter"] == "yes" {
					return "You're on the newsletter list! 💌"
				}
				return "No newsletter then — you can always change your mind later."
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				switch botText {
				case "You're on the newsletter list! 💌":
					return "yes", true
				case "No newsletter then — you can always change your mind later.":
					return "no", true
				}
				return "", false
			},
			Action: syncNewsletter(d),
		},
		{
			Kind:       model.KindQuestion,
			Name:       "avatar",
			ShouldSkip: func(m model.Member) bool { return m.AvatarURL != "" },
			Question: func(rc model.RenderContext) string {
				return fmt.Sprintf("I made you a gravatar preview: %s — want to use it as your picture here? (yes/no)", gravatarURL(rc.Answers["email"]))
			},
			IsQuestionMessage: func(text string) bool {
				return strings.HasPrefix(text, "I made you a gravatar preview: ")
			},
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if parseYesNo(in.Message) == "" {
					return "Just a plain yes or no works best here.", nil
				}
				return "", nil
			},
			CleanAnswer: parseYesNo,
			Feedback: func(rc model.RenderContext) string {
				if rc.Answers["avatar"] == "yes" {
					return "Avatar sorted. ✨"
				}
				return "Sticking with the default avatar for now."
			},
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				switch botText {
				case "Avatar sorted. ✨":
					return "yes", true
				case "Sticking with the default avatar for now.":
					return "no", true
				}
				return "", false
			},
		},
		model.ActionOnly(grantMemberRole(d)),
		model.ActionOnly(recordOnboarding(d)),
		{
			Kind:     model.KindQuestion,
			Name:     "rules",
			Question: model.Text("Last thing: give #rules a read and reply `ready` when you are."),
			Validate: func(_ context.Context, in model.ValidateInput) (string, error) {
				if !strings.EqualFold(strings.Trim(strings.TrimSpace(in.Message), "`"), "ready") {
					return "No rush — reply `ready` once you've read #rules.", nil
				}
				return "", nil
			},
			CleanAnswer: func(string) string { return "ready" },
			Feedback:    model.Text("That's everything I needed. 🎉"),
			ParseAnswer: func(botText string, _ model.Member) (string, bool) {
				if botText == "That's everything I needed. 🎉" {
					return "ready", true
				}
				return "", false
			},
		},
	}

	return model.Flow{
		Kind:           "onboarding",
		ChannelPrefix:  "welcome-",
		Steps:          steps,
		DeleteKeyword:  deleteKeyword,
		TerminalText:   onboardingTerminal,
		Timeout:        time.Hour,
		WarningWindow:  15 * time.Minute,
		SoftMessageCap: 60,
		HardMessageCap: 100,
	}
}

// syncNewsletter brings the mailing list in line with the recorded answer.
// Safe under edit-mode replays: it reads before it writes.
func syncNewsletter(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		email := in.Answers["email"]
		wantSubscribed := in.Answers["newsletter"] == "yes"

		sub, err := d.List.Lookup(ctx, email)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("mailing list lookup: %w", err)
		}
		if sub != nil && sub.Subscribed == wantSubscribed {
			return nil
		}
		if sub == nil && !wantSubscribed {
			return nil
		}
		return d.List.Upsert(ctx, adapter.Subscriber{
			Email:      email,
			Subscribed: wantSubscribed,
			Tags:       []string{"community"},
		})
	}
}

// grantMemberRole hands out the member role exactly once.
func grantMemberRole(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		member, err := d.Chat.Member(ctx, in.Member.ID)
		if err != nil {
			return fmt.Errorf("member lookup: %w", err)
		}
		if member.HasRole(d.MemberRoleID) {
			return nil
		}
		return d.Chat.AddRole(ctx, in.Member.ID, d.MemberRoleID)
	}
}

// recordOnboarding writes a per-member completion record to the ledger; the
// per-member key is what keeps replays from double-counting.
func recordOnboarding(d Deps) func(context.Context, model.ActionInput) error {
	return func(ctx context.Context, in model.ActionInput) error {
		key := "onboarded:" + in.Member.ID
		if v, err := d.Ledger.Get(ctx, key); err == nil && v != "" {
			return nil
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("ledger read: %w", err)
		}
		return d.Ledger.Set(ctx, key, time.Now().UTC().Format(time.RFC3339))
	}
}
