// File: internal/usecase/annotations.go
package usecase

import (
	"fmt"
	"regexp"

	"discord-community-bot/internal/domain/model"
)

// Edit-error annotations are ordinary bot messages with a fixed marker prefix
// and a machine-readable step tag. The tag, not the rendered error text, is
// what clearing matches on, so two steps with overlapping error strings can
// never misclear each other.
const editErrorPrefix = "⚠️ That edit broke something: "

var editErrorTagRe = regexp.MustCompile(`\(step: ([^)]+)\)$`)

func editErrorText(stepName, verdict string) string {
	return fmt.Sprintf("%s%s (step: %s)", editErrorPrefix, verdict, stepName)
}

// parseEditError returns the step tag of an annotation message, ok=false for
// any other message.
func parseEditError(text string) (string, bool) {
	if len(text) < len(editErrorPrefix) || text[:len(editErrorPrefix)] != editErrorPrefix {
		return "", false
	}
	m := editErrorTagRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// editErrorAnnotations returns every outstanding annotation in the channel.
func editErrorAnnotations(msgs []model.Message) []model.Message {
	var out []model.Message
	for _, m := range msgs {
		if !m.FromBot {
			continue
		}
		if _, ok := parseEditError(m.Content); ok {
			out = append(out, m)
		}
	}
	return out
}

// Fixed engine texts. These are matched verbatim against history, so they
// must stay stable across deployments.
const (
	textEditGate     = "You've got pending edit fixes above — sort those out first, then we can continue."
	textResume       = "Thanks for fixing that — now we can continue!"
	textTryLater     = "Something went wrong on my side — please try that again in a bit."
	textFarewell     = "Alright, cleaning this up. See you around! 👋"
	textSpamWarning  = "⚠️ This channel is getting noisy — it will be removed automatically if the message count keeps climbing."
	textIdleWarning  = "⏰ Still with us? This channel will be removed soon if there's no reply."
)
