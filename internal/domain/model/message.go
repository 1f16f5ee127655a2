package model

import "time"

// Message is a single chat message. Slices of messages handed to the engine
// are always ordered oldest first; the channel history is the only state the
// engine ever reads.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Timestamp time.Time
	FromBot   bool
}

// LastMessage returns the newest message of an oldest-first slice, or nil.
func LastMessage(msgs []Message) *Message {
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}

// LastBotMessage returns the newest bot-authored message, or nil.
func LastBotMessage(msgs []Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].FromBot {
			return &msgs[i]
		}
	}
	return nil
}

// ContainsBotMessage reports whether any bot message has exactly the given content.
func ContainsBotMessage(msgs []Message, content string) bool {
	for _, m := range msgs {
		if m.FromBot && m.Content == content {
			return true
		}
	}
	return false
}
