package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RefreshMargin is how long before expiry a token stops being used.
const RefreshMargin = 600 * time.Second

// Credential is the persisted Trakt OAuth token record.
// Fields the token endpoint returns that are not modelled here are kept in
// Extra and written back unchanged.
type Credential struct {
	AccessToken  string
	RefreshToken string
	CreatedAt    *int64 // epoch seconds
	ExpiresIn    *int64 // seconds
	Extra        map[string]json.RawMessage
}

var credentialKeys = []string{"access_token", "refresh_token", "created_at", "expires_in"}

// HasExpiry reports whether both created_at and expires_in are known.
func (c *Credential) HasExpiry() bool {
	return c.CreatedAt != nil && c.ExpiresIn != nil
}

// ExpiresAt returns created_at + expires_in. Zero time when expiry metadata is missing.
func (c *Credential) ExpiresAt() time.Time {
	if !c.HasExpiry() {
		return time.Time{}
	}
	return time.Unix(*c.CreatedAt+*c.ExpiresIn, 0)
}

// Expired reports whether now is past the refresh margin before expiry.
// A credential without expiry metadata never expires.
func (c *Credential) Expired(now time.Time) bool {
	if !c.HasExpiry() {
		return false
	}
	return now.After(c.ExpiresAt().Add(-RefreshMargin))
}

// StampCreated sets created_at to now when the token endpoint omitted it.
func (c *Credential) StampCreated(now time.Time) {
	if c.CreatedAt != nil {
		return
	}
	ts := now.Unix()
	c.CreatedAt = &ts
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Credential
	if v, ok := raw["access_token"]; ok {
		if err := json.Unmarshal(v, &out.AccessToken); err != nil {
			return fmt.Errorf("access_token: %w", err)
		}
	}
	if v, ok := raw["refresh_token"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &out.RefreshToken); err != nil {
			return fmt.Errorf("refresh_token: %w", err)
		}
	}
	if v, ok := raw["created_at"]; ok && string(v) != "null" {
		n, err := decodeEpoch(v)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		out.CreatedAt = &n
	}
	if v, ok := raw["expires_in"]; ok && string(v) != "null" {
		n, err := decodeEpoch(v)
		if err != nil {
			return fmt.Errorf("expires_in: %w", err)
		}
		out.ExpiresIn = &n
	}

	for _, k := range credentialKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		out.Extra = raw
	}
	*c = out
	return nil
}

func (c Credential) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+len(credentialKeys))
	for k, v := range c.Extra {
		out[k] = v
	}
	out["access_token"] = c.AccessToken
	if c.RefreshToken != "" {
		out["refresh_token"] = c.RefreshToken
	}
	if c.CreatedAt != nil {
		out["created_at"] = *c.CreatedAt
	}
	if c.ExpiresIn != nil {
		out["expires_in"] = *c.ExpiresIn
	}
	return json.Marshal(out)
}

// decodeEpoch accepts integral JSON numbers, including ones written as floats.
func decodeEpoch(v json.RawMessage) (int64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	return int64(f), nil
}
