// File: internal/infra/adapters/integrations/emailverify.go
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/ports/adapter"
)

var _ adapter.EmailVerifierAdapter = (*EmailVerifierClient)(nil)

// EmailVerifierClient checks addresses against a kickbox-style disposable
// domain API: GET /<domain> returns {"disposable": true|false}.
type EmailVerifierClient struct {
	baseURL string
	client  *http.Client
}

func NewEmailVerifierClient(baseURL string) (*EmailVerifierClient, error) {
	if baseURL == "" {
		return nil, errors.New("email verifier base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid email verifier base url: %w", err)
	}
	return &EmailVerifierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (e *EmailVerifierClient) IsDisposable(ctx context.Context, email string) (bool, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false, fmt.Errorf("%w: malformed address %q", domain.ErrInvalidArgument, email)
	}
	dom := strings.ToLower(email[at+1:])

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/"+url.PathEscape(dom), nil)
	resp, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: disposable check: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: disposable check http %d", domain.ErrExternalService, resp.StatusCode)
	}
	var out struct {
		Disposable bool `json:"disposable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: disposable check decode: %v", domain.ErrExternalService, err)
	}
	return out.Disposable, nil
}
