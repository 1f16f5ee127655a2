// File: internal/infra/adapters/integrations/mailinglist.go
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"discord-community-bot/internal/domain"
	"discord-community-bot/internal/domain/ports/adapter"
)

var _ adapter.MailingListAdapter = (*MailingListClient)(nil)

// MailingListClient implements adapter.MailingListAdapter against a
// listmonk-style subscriber REST API.
type MailingListClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMailingListClient(baseURL, apiKey string) (*MailingListClient, error) {
	if baseURL == "" {
		return nil, errors.New("mailing list base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid mailing list base url: %w", err)
	}
	return &MailingListClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (m *MailingListClient) Lookup(ctx context.Context, email string) (*adapter.Subscriber, error) {
	endpoint := fmt.Sprintf("%s/api/subscribers?email=%s", m.baseURL, url.QueryEscape(email))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mailing list lookup: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: mailing list lookup http %d", domain.ErrExternalService, resp.StatusCode)
	}
	var out struct {
		Data []struct {
			Email  string   `json:"email"`
			Status string   `json:"status"`
			Tags   []string `json:"tags"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: mailing list decode: %v", domain.ErrExternalService, err)
	}
	if len(out.Data) == 0 {
		return nil, domain.ErrNotFound
	}
	s := out.Data[0]
	return &adapter.Subscriber{
		Email:      s.Email,
		Subscribed: s.Status == "enabled",
		Tags:       s.Tags,
	}, nil
}

func (m *MailingListClient) Upsert(ctx context.Context, sub adapter.Subscriber) error {
	status := "unsubscribed"
	if sub.Subscribed {
		status = "enabled"
	}
	payload := map[string]any{
		"email":  sub.Email,
		"status": status,
		"tags":   sub.Tags,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut, m.baseURL+"/api/subscribers", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: mailing list upsert: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: mailing list upsert http %d", domain.ErrExternalService, resp.StatusCode)
	}
	return nil
}
