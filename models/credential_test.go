package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialExpired(t *testing.T) {
	created := int64(1_700_000_000)
	expires := int64(3600)
	cred := Credential{AccessToken: "a", CreatedAt: &created, ExpiresIn: &expires}

	t0 := time.Unix(created, 0)
	assert.False(t, cred.Expired(t0))
	assert.False(t, cred.Expired(t0.Add(3000*time.Second)), "exactly at the margin is still usable")
	assert.True(t, cred.Expired(t0.Add(3001*time.Second)))
	assert.Equal(t, t0.Add(time.Hour), cred.ExpiresAt())
}

func TestCredentialWithoutExpiryNeverExpires(t *testing.T) {
	created := int64(10)
	cases := []Credential{
		{AccessToken: "a"},
		{AccessToken: "a", CreatedAt: &created},
	}
	for _, c := range cases {
		assert.False(t, c.Expired(time.Now().Add(100*365*24*time.Hour)))
		assert.True(t, c.ExpiresAt().IsZero())
	}
}

func TestCredentialStampCreated(t *testing.T) {
	now := time.Unix(1234, 0)

	var c Credential
	c.StampCreated(now)
	require.NotNil(t, c.CreatedAt)
	assert.Equal(t, int64(1234), *c.CreatedAt)

	c.StampCreated(now.Add(time.Hour))
	assert.Equal(t, int64(1234), *c.CreatedAt, "existing created_at is kept")
}

func TestCredentialJSONPassthrough(t *testing.T) {
	in := `{"access_token":"tok","refresh_token":"ref","created_at":1700000000,"expires_in":7776000,"token_type":"bearer","scope":"public"}`

	var c Credential
	require.NoError(t, json.Unmarshal([]byte(in), &c))
	assert.Equal(t, "tok", c.AccessToken)
	assert.Equal(t, "ref", c.RefreshToken)
	require.True(t, c.HasExpiry())
	assert.Equal(t, int64(7776000), *c.ExpiresIn)
	assert.Len(t, c.Extra, 2)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestCredentialJSONMissingFields(t *testing.T) {
	var c Credential
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"tok"}`), &c))
	assert.False(t, c.HasExpiry())
	assert.Empty(t, c.RefreshToken)
	assert.Nil(t, c.Extra)
}
