// File: internal/flows/flows.go
//
// Step definitions for every conversation kind the bot runs. Each flow is
// plain data plus pure rendering/parsing functions; the only state any of
// them has is what the engine reconstructs from channel history.
package flows

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

// Deps is everything a step action or validator may reach out to.
type Deps struct {
	Chat         adapter.ChatPlatformAdapter
	List         adapter.MailingListAdapter
	Verify       adapter.EmailVerifierAdapter
	Ledger       adapter.LedgerAdapter
	MemberRoleID string
	Log          *zerolog.Logger
}

// All returns every flow the bot drives, in registration order.
func All(d Deps) []model.Flow {
	return []model.Flow{
		Onboarding(d),
		ClubApplication(d),
		Meetup(d),
		PrivateChatRequest(d),
		PrivateChannel(d),
	}
}

const deleteKeyword = "delete"

var (
	mentionRe  = regexp.MustCompile(`<@!?(\d+)>`)
	lifetimeRe = regexp.MustCompile(`^(\d+)([hd])$`)
)

// firstMention returns the id of the first user mention in the text, or "".
func firstMention(text string) string {
	m := mentionRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseYesNo normalises the usual spellings to "yes"/"no"; "" means neither.
func parseYesNo(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "yep", "yeah", "sure":
		return "yes"
	case "no", "n", "nope", "nah":
		return "no"
	}
	return ""
}

// parseLifetime reads `24h` / `3d` style durations.
func parseLifetime(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(strings.Trim(s, "`")))
	if m := lifetimeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		if m[2] == "d" {
			return time.Duration(n) * 24 * time.Hour, nil
		}
		return time.Duration(n) * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", hex.EncodeToString(sum[:]))
}

// singleLine rejects answers that would break the one-message-per-value
// persistence layout.
func singleLine(s string) bool {
	return !strings.ContainsAny(s, "\r\n")
}
