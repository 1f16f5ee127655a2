// File: internal/domain/ports/adapter/integrations.go
package adapter

import "context"

// Subscriber is a mailing-list subscriber keyed by email.
type Subscriber struct {
	Email      string
	Subscribed bool
	Tags       []string
}

// MailingListAdapter is the port to the newsletter subscriber API.
// Lookup returns domain.ErrNotFound for unknown addresses.
type MailingListAdapter interface {
	Lookup(ctx context.Context, email string) (*Subscriber, error)
	Upsert(ctx context.Context, sub Subscriber) error
}

// EmailVerifierAdapter checks whether an address belongs to a disposable
// mail provider.
type EmailVerifierAdapter interface {
	IsDisposable(ctx context.Context, email string) (bool, error)
}

// LedgerAdapter is a tiny key/value store (gist-backed in production) used
// for cross-session counters. Reads are idempotent; writes are last-wins.
type LedgerAdapter interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
