// File: internal/infra/adapters/integrations/gistledger.go
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/ports/adapter"
)

const gistAPIBase = "https://api.github.com/gists/"

var _ adapter.LedgerAdapter = (*GistLedger)(nil)

// GistLedger keeps a flat JSON object (key -> value) in one file of a private
// GitHub gist. Writes read-modify-write the whole file under a mutex; the
// ledger is low-traffic by design so last-wins is acceptable.
type GistLedger struct {
	gistID string
	token  string
	file   string
	client *http.Client

	mu sync.Mutex
}

func NewGistLedger(gistID, token, file string) (*GistLedger, error) {
	if gistID == "" || token == "" {
		return nil, errors.New("gist ledger requires gist id and token")
	}
	if file == "" {
		file = "ledger.json"
	}
	return &GistLedger{
		gistID: gistID,
		token:  token,
		file:   file,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *GistLedger) Get(ctx context.Context, key string) (string, error) {
	data, err := g.fetch(ctx)
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (g *GistLedger) Set(ctx context.Context, key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := g.fetch(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if data == nil {
		data = map[string]string{}
	}
	data[key] = value

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	payload := map[string]any{
		"files": map[string]any{
			g.file: map[string]string{"content": string(content)},
		},
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPatch, gistAPIBase+g.gistID, bytes.NewReader(b))
	g.auth(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ledger write: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ledger write http %d", domain.ErrExternalService, resp.StatusCode)
	}
	return nil
}

func (g *GistLedger) fetch(ctx context.Context) (map[string]string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, gistAPIBase+g.gistID, nil)
	g.auth(req)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger read: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ledger read http %d", domain.ErrExternalService, resp.StatusCode)
	}
	var out struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: ledger decode: %v", domain.ErrExternalService, err)
	}
	f, ok := out.Files[g.file]
	if !ok || f.Content == "" {
		return nil, domain.ErrNotFound
	}
	data := map[string]string{}
	if err := json.Unmarshal([]byte(f.Content), &data); err != nil {
		return nil, fmt.Errorf("parse ledger file: %w", err)
	}
	return data, nil
}

func (g *GistLedger) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
