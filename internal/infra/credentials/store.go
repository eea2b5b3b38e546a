// Package credentials keeps upstream API keys in the integration_tokens table
// so operators can rotate them without redeploying.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"promptvault/internal/infra"
	"promptvault/internal/sqlinline"
)

const (
	ProviderImage = "image"
)

var ErrEmptyKey = errors.New("api key is required")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// ImageAPIKey returns the stored image generation key, or "" when none is set.
func (s *Store) ImageAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderImage)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// SetImageAPIKey stores key for the image provider. baseURL and model are
// kept as properties for operators; empty values are omitted.
func (s *Store) SetImageAPIKey(ctx context.Context, key, baseURL, model string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	props := map[string]any{}
	if v := strings.TrimSpace(baseURL); v != "" {
		props["base_url"] = v
	}
	if v := strings.TrimSpace(model); v != "" {
		props["model"] = v
	}
	return s.upsert(ctx, ProviderImage, key, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("store %s token: %w", provider, err)
	}
	return nil
}
