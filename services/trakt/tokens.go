package trakt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sahara101/trakt2plexstatus/models"
)

var (
	// ErrAuthorization means no usable token could be obtained. Callers treat it as fatal.
	ErrAuthorization = errors.New("trakt authorization failed")
	// ErrNoRefreshToken means an expired credential cannot be refreshed.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// maxTokenPasses bounds the load/refresh/re-authorize cycle: a failed
// refresh deletes the credential file, so the second pass always authorizes.
const maxTokenPasses = 2

// TokenClient is the part of Client the token manager needs.
type TokenClient interface {
	AuthorizeURL(redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error)
	RefreshAccessToken(ctx context.Context, refreshToken, redirectURI string) (*models.Credential, error)
}

// TokenManager owns the Trakt credential file.
type TokenManager struct {
	client      TokenClient
	fs          afero.Fs
	path        string
	redirectURI string
	in          *bufio.Reader
	out         io.Writer
	now         func() time.Time
	logger      zerolog.Logger
}

// NewTokenManager creates a token manager prompting on stdin/stdout.
func NewTokenManager(client TokenClient, fsys afero.Fs, path, redirectURI string, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		client:      client,
		fs:          fsys,
		path:        path,
		redirectURI: redirectURI,
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		now:         time.Now,
		logger:      logger.With().Str("component", "trakt-token").Logger(),
	}
}

// SetPrompt replaces the interactive input and output.
func (m *TokenManager) SetPrompt(in io.Reader, out io.Writer) {
	m.in = bufio.NewReader(in)
	m.out = out
}

// SetClock replaces the time source.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}

// Token returns a usable access token, refreshing or re-authorizing as needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	for pass := 1; pass <= maxTokenPasses; pass++ {
		cred, err := m.load()
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Info().Str("path", m.path).Msg("trakt token file not found, starting authorization")
			return m.authorize(ctx)
		}
		if err != nil {
			m.logger.Error().Err(err).Str("path", m.path).Msg("trakt token file unreadable, re-authorization required")
			if err := m.discard(); err != nil {
				return "", err
			}
			continue
		}

		if !cred.HasExpiry() {
			m.logger.Warn().Msg("trakt token has no expiry metadata, using it as is")
			return cred.AccessToken, nil
		}

		if !cred.Expired(m.now()) {
			m.logger.Debug().Time("expires_at", cred.ExpiresAt()).Msg("trakt token loaded")
			return cred.AccessToken, nil
		}

		m.logger.Info().Time("expires_at", cred.ExpiresAt()).Msg("trakt token expired or about to expire, refreshing")
		token, err := m.refresh(ctx, cred)
		if err == nil {
			return token, nil
		}
		if !refreshRejected(err) {
			return "", fmt.Errorf("refresh trakt token: %w", err)
		}
		m.logger.Error().Err(err).Msg("trakt token refresh failed, re-authorization required")
		if err := m.discard(); err != nil {
			return "", err
		}
	}
	return "", ErrAuthorization
}

func (m *TokenManager) authorize(ctx context.Context) (string, error) {
	fmt.Fprintf(m.out, "Please visit this URL to authorize: %s\n", m.client.AuthorizeURL(m.redirectURI))
	fmt.Fprint(m.out, "Enter the code from the website: ")

	line, err := m.in.ReadString('\n')
	code := strings.TrimSpace(line)
	if code == "" {
		if err == nil {
			err = errors.New("empty authorization code")
		}
		return "", fmt.Errorf("%w: read code: %w", ErrAuthorization, err)
	}

	cred, err := m.client.ExchangeCode(ctx, code, m.redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	if cred.AccessToken == "" {
		return "", fmt.Errorf("%w: token response has no access_token", ErrAuthorization)
	}
	cred.StampCreated(m.now())

	if err := m.save(cred); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	m.logger.Info().Msg("trakt authentication successful")
	return cred.AccessToken, nil
}

// refreshRejected reports whether Trakt declined the refresh, as opposed to
// the request never completing.
func refreshRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrNoRefreshToken)
}

func (m *TokenManager) refresh(ctx context.Context, cred *models.Credential) (string, error) {
	if cred.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	fresh, err := m.client.RefreshAccessToken(ctx, cred.RefreshToken, m.redirectURI)
	if err != nil {
		return "", err
	}
	if fresh.AccessToken == "" {
		return "", errors.New("refresh response has no access_token")
	}
	fresh.StampCreated(m.now())

	if err := m.save(fresh); err != nil {
		return "", err
	}
	m.logger.Info().Msg("trakt token refreshed successfully")
	return fresh.AccessToken, nil
}

func (m *TokenManager) load() (*models.Credential, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return nil, err
	}
	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if cred.AccessToken == "" {
		return nil, errors.New("token file has no access_token")
	}
	return &cred, nil
}

// save writes the credential through a temp file and rename so a crash never
// leaves a truncated token file behind.
func (m *TokenManager) save(cred *models.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	tmp, err := afero.TempFile(m.fs, dir, ".trakt-token-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		m.fs.Remove(tmpName)
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		m.fs.Remove(tmpName)
		return fmt.Errorf("close token file: %w", err)
	}
	if err := m.fs.Chmod(tmpName, 0o600); err != nil {
		m.logger.Debug().Err(err).Msg("chmod token file")
	}
	if err := m.fs.Rename(tmpName, m.path); err != nil {
		m.fs.Remove(tmpName)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (m *TokenManager) discard() error {
	if err := m.fs.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
