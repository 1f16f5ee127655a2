// File: internal/usecase/driver_uc_test.go
package usecase_test

import (
	"context"
	"strings"
	"testing"

	"discord-community-bot/internal/usecase"
)

func TestConversationDriver_HappyPath(t *testing.T) {
	ctx := context.Background()
	chat := NewMockChat()
	chat.SeedChannel(surveyChannel())
	chat.SeedMember(surveyMember())
	calls := &fixtureCalls{}
	flow := surveyFlow(calls)
	ch := surveyChannel()

	uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

	say := func(content string) {
		t.Helper()
		msg := chat.SeedMemberMessage(ch.ID, "u1", content)
		if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
			t.Fatalf("HandleMessage(%q): %v", content, err)
		}
	}

	// First member message bootstraps the conversation.
	say("hello")
	if got := chat.LastBotMessage(ch.ID); got != "What is your name?" {
		t.Fatalf("expected opening question, got %q", got)
	}

	say("Alice")
	bot := chat.BotMessages(ch.ID)
	if bot[len(bot)-2] != "Name: **Alice**" {
		t.Errorf("expected name feedback, got %q", bot[len(bot)-2])
	}
	if bot[len(bot)-1] != "Hi Alice, what is your favorite color?" {
		t.Errorf("expected color question rendered with the name, got %q", bot[len(bot)-1])
	}

	// Rejected answer: error reply, no feedback, no progression.
	say("purple")
	if got := chat.LastBotMessage(ch.ID); got != "Anything but purple." {
		t.Fatalf("expected validation error, got %q", got)
	}
	if len(calls.ColorActions()) != 0 {
		t.Fatal("action must not run for a rejected answer")
	}

	// Retry after the error reply must validate against the same question even
	// though the latest bot message is the error text.
	say("Blue")
	bot = chat.BotMessages(ch.ID)
	if bot[len(bot)-2] != "Color: blue" {
		t.Errorf("expected normalised color feedback, got %q", bot[len(bot)-2])
	}
	if bot[len(bot)-1] != "Last one: what is your motto?" {
		t.Errorf("expected motto question, got %q", bot[len(bot)-1])
	}
	actions := calls.ColorActions()
	if len(actions) != 1 || actions[0].IsEdit {
		t.Fatalf("expected one forward-mode action run, got %+v", actions)
	}
	if calls.FinishRuns() != 1 {
		t.Fatalf("expected the action-only step to run once, ran %d times", calls.FinishRuns())
	}

	say(`Carpe diem`)
	if got := chat.LastBotMessage(ch.ID); got != "Survey complete, thanks!" {
		t.Fatalf("expected terminal message, got %q", got)
	}
}

func TestConversationDriver_DeleteKeyword(t *testing.T) {
	ctx := context.Background()
	chat := NewMockChat()
	chat.SeedChannel(surveyChannel())
	chat.SeedMember(surveyMember())
	flow := surveyFlow(nil)
	ch := surveyChannel()
	uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

	chat.SeedBotMessage(ch.ID, "What is your name?")
	msg := chat.SeedMemberMessage(ch.ID, "u1", "DELETE")
	if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(chat.Deleted) != 1 || chat.Deleted[0] != "ch1:requested by member" {
		t.Fatalf("expected channel deletion, got %v", chat.Deleted)
	}
}

func TestConversationDriver_EditGate(t *testing.T) {
	ctx := context.Background()
	chat := NewMockChat()
	chat.SeedChannel(surveyChannel())
	chat.SeedMember(surveyMember())
	flow := surveyFlow(nil)
	ch := surveyChannel()
	uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

	chat.SeedBotMessage(ch.ID, "What is your name?")
	chat.SeedMemberMessage(ch.ID, "u1", "Alice")
	chat.SeedBotMessage(ch.ID, "Name: **Alice**")
	chat.SeedBotMessage(ch.ID, "Hi Alice, what is your favorite color?")
	chat.SeedBotMessage(ch.ID, `⚠️ That edit broke something: Need a name. (step: name)`)

	gate := "You've got pending edit fixes above — sort those out first, then we can continue."

	msg := chat.SeedMemberMessage(ch.ID, "u1", "blue")
	if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := chat.LastBotMessage(ch.ID); got != gate {
		t.Fatalf("expected gate reminder, got %q", got)
	}

	// A second message while gated must not stack reminders.
	before := len(chat.BotMessages(ch.ID))
	msg = chat.SeedMemberMessage(ch.ID, "u1", "still blue")
	if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := len(chat.BotMessages(ch.ID)); got != before {
		t.Fatalf("expected no new bot message while gated, went from %d to %d", before, got)
	}
}

func TestConversationDriver_ReasksUnaskedQuestion(t *testing.T) {
	ctx := context.Background()
	chat := NewMockChat()
	chat.SeedChannel(surveyChannel())
	chat.SeedMember(surveyMember())
	flow := surveyFlow(nil)
	ch := surveyChannel()
	uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

	// Name is answered but the color question was never sent (crash between
	// feedback and question). The member's stray message must not be consumed
	// as a color answer.
	chat.SeedBotMessage(ch.ID, "What is your name?")
	chat.SeedMemberMessage(ch.ID, "u1", "Alice")
	chat.SeedBotMessage(ch.ID, "Name: **Alice**")

	msg := chat.SeedMemberMessage(ch.ID, "u1", "green")
	if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := chat.LastBotMessage(ch.ID); got != "Hi Alice, what is your favorite color?" {
		t.Fatalf("expected the color question to be asked, got %q", got)
	}
	for _, b := range chat.BotMessages(ch.ID) {
		if strings.HasPrefix(b, "Color: ") {
			t.Fatalf("stray message must not be recorded as an answer, found %q", b)
		}
	}
}

func TestConversationDriver_DropsDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	chat := NewMockChat()
	chat.SeedChannel(surveyChannel())
	chat.SeedMember(surveyMember())
	flow := surveyFlow(nil)
	ch := surveyChannel()
	uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

	chat.SeedBotMessage(ch.ID, "What is your name?")
	msg := chat.SeedMemberMessage(ch.ID, "u1", "Alice")
	chat.SeedBotMessage(ch.ID, "Name: **Alice**")
	chat.SeedBotMessage(ch.ID, "Hi Alice, what is your favorite color?")

	// A second delivery of an already-answered message must not be consumed
	// again as the answer to the next question.
	before := len(chat.BotMessages(ch.ID))
	if err := uc.HandleMessage(ctx, flow, ch, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	bot := chat.BotMessages(ch.ID)
	if len(bot) != before {
		t.Fatalf("duplicate delivery produced bot traffic: %v", bot[before:])
	}
	for _, b := range bot {
		if strings.HasPrefix(b, "Color: ") {
			t.Fatalf("duplicate delivery recorded as an answer: %q", b)
		}
	}
}

func TestConversationDriver_Resume(t *testing.T) {
	ctx := context.Background()

	t.Run("replays action region and asks the pending question", func(t *testing.T) {
		chat := NewMockChat()
		chat.SeedChannel(surveyChannel())
		chat.SeedMember(surveyMember())
		calls := &fixtureCalls{}
		flow := surveyFlow(calls)
		ch := surveyChannel()
		uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

		// Crash happened right after the color feedback was sent: the action
		// region and the motto question are missing.
		chat.SeedBotMessage(ch.ID, "What is your name?")
		chat.SeedMemberMessage(ch.ID, "u1", "Alice")
		chat.SeedBotMessage(ch.ID, "Name: **Alice**")
		chat.SeedBotMessage(ch.ID, "Hi Alice, what is your favorite color?")
		chat.SeedMemberMessage(ch.ID, "u1", "blue")
		chat.SeedBotMessage(ch.ID, "Color: blue")

		acted, err := uc.Resume(ctx, flow, ch)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if !acted {
			t.Fatal("expected Resume to act")
		}
		if got := chat.LastBotMessage(ch.ID); got != "Last one: what is your motto?" {
			t.Fatalf("expected motto question, got %q", got)
		}
		if len(calls.ColorActions()) != 1 {
			t.Fatalf("expected the color action to be replayed once, got %d", len(calls.ColorActions()))
		}
		if calls.FinishRuns() != 1 {
			t.Fatalf("expected the action-only step to be replayed once, got %d", calls.FinishRuns())
		}
	})

	t.Run("no-op when the current question is already out", func(t *testing.T) {
		chat := NewMockChat()
		chat.SeedChannel(surveyChannel())
		chat.SeedMember(surveyMember())
		flow := surveyFlow(nil)
		ch := surveyChannel()
		uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

		chat.SeedBotMessage(ch.ID, "What is your name?")

		acted, err := uc.Resume(ctx, flow, ch)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if acted {
			t.Fatal("expected Resume to be a no-op")
		}
	})

	t.Run("finishes a fully answered conversation missing its terminal", func(t *testing.T) {
		chat := NewMockChat()
		chat.SeedChannel(surveyChannel())
		chat.SeedMember(surveyMember())
		calls := &fixtureCalls{}
		flow := surveyFlow(calls)
		ch := surveyChannel()
		uc := usecase.NewConversationUseCase(chat, usecase.NewChannelLocks(), 0, newTestLogger())

		chat.SeedBotMessage(ch.ID, "Name: **Alice**")
		chat.SeedBotMessage(ch.ID, "Color: blue")
		chat.SeedBotMessage(ch.ID, `Motto: "Carpe diem"`)

		acted, err := uc.Resume(ctx, flow, ch)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if !acted {
			t.Fatal("expected Resume to act")
		}
		if got := chat.LastBotMessage(ch.ID); got != "Survey complete, thanks!" {
			t.Fatalf("expected terminal message, got %q", got)
		}

		// Second pass must not send it again.
		acted, err = uc.Resume(ctx, flow, ch)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if acted {
			t.Fatal("expected second Resume to be a no-op")
		}
	})
}
