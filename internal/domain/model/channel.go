package model

import (
	"fmt"
	"regexp"
	"time"

	"discord-community-bot/internal/domain"
)

// Channel is an ephemeral conversation channel. Its topic carries the only
// metadata the engine persists outside of messages: the owning member id and,
// for private chats, the absolute expiry.
type Channel struct {
	ID    string
	Name  string
	Topic string
}

var (
	memberMarkerRe = regexp.MustCompile(`Member ID: "([^"]+)"`)
	expiryMarkerRe = regexp.MustCompile(`Expires: "([^"]+)"`)
)

// TopicWithMember renders a channel topic embedding the owning member id.
func TopicWithMember(memberID string) string {
	return fmt.Sprintf(`Member ID: "%s"`, memberID)
}

// TopicWithExpiry renders a topic embedding both the member id and an expiry.
func TopicWithExpiry(memberID string, expires time.Time) string {
	return fmt.Sprintf(`Member ID: "%s" | Expires: "%s"`, memberID, expires.UTC().Format(time.RFC3339))
}

// MemberID extracts the owning member id from the channel topic.
func (c Channel) MemberID() (string, error) {
	m := memberMarkerRe.FindStringSubmatch(c.Topic)
	if m == nil {
		return "", domain.ErrNoMemberMarker
	}
	return m[1], nil
}

// Expiry extracts the absolute end-of-life timestamp from the channel topic.
func (c Channel) Expiry() (time.Time, error) {
	m := expiryMarkerRe.FindStringSubmatch(c.Topic)
	if m == nil {
		return time.Time{}, domain.ErrNoExpiryMarker
	}
	t, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry marker: %w", err)
	}
	return t, nil
}

// WithExpiry returns the topic rewritten with a new expiry, preserving the
// member marker. Used by the private-chat extension command.
func (c Channel) WithExpiry(expires time.Time) (string, error) {
	id, err := c.MemberID()
	if err != nil {
		return "", err
	}
	return TopicWithExpiry(id, expires), nil
}
