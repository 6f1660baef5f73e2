// Package config loads the run configuration from a YAML file with
// environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sahara101/trakt2plexstatus/models"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "shows_status.yml"

const (
	defaultListName      = "Next Airing"
	defaultRedirectURI   = "urn:ietf:wg:oauth:2.0:oob"
	defaultMutationPause = time.Second
	defaultTraktRate     = 3.0

	// LibraryPlaceholder is substituted with the lower-cased library name in YAML_FILE_TEMPLATE.
	LibraryPlaceholder = "{library}"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config mirrors shows_status.yml. Every scalar can be overridden by an
// environment variable of the same name.
type Config struct {
	Libraries []string          `yaml:"LIBRARIES" env:"LIBRARIES, overwrite"`
	TZ        string            `yaml:"TZ" env:"TZ, overwrite"`
	Colors    map[string]string `yaml:"COLORS"`
	LogFile   string            `yaml:"LOG_FILE" env:"LOG_FILE, overwrite"`
	FontPath  string            `yaml:"FONT_PATH" env:"FONT_PATH, overwrite"`

	TraktTokenFile    string `yaml:"TRAKT_TOKEN_FILE" env:"TRAKT_TOKEN_FILE, overwrite"`
	TraktClientID     string `yaml:"TRAKT_CLIENT_ID" env:"TRAKT_CLIENT_ID, overwrite"`
	TraktClientSecret string `yaml:"TRAKT_CLIENT_SECRET" env:"TRAKT_CLIENT_SECRET, overwrite"`
	TraktUsername     string `yaml:"TRAKT_USERNAME" env:"TRAKT_USERNAME, overwrite"`
	RedirectURI       string `yaml:"REDIRECT_URI" env:"REDIRECT_URI, overwrite"`

	PlexURL   string `yaml:"PLEX_URL" env:"PLEX_URL, overwrite"`
	PlexToken string `yaml:"PLEX_TOKEN" env:"PLEX_TOKEN, overwrite"`

	YAMLOutputDir    string `yaml:"YAML_OUTPUT_DIR" env:"YAML_OUTPUT_DIR, overwrite"`
	YAMLFileTemplate string `yaml:"YAML_FILE_TEMPLATE" env:"YAML_FILE_TEMPLATE, overwrite"`
	CollectionsDir   string `yaml:"COLLECTIONS_DIR" env:"COLLECTIONS_DIR, overwrite"`

	// MutationPause 0 disables the pause; TraktRateLimit 0 disables rate limiting.
	ListName       string        `yaml:"LIST_NAME" env:"LIST_NAME, overwrite"`
	MutationPause  time.Duration `yaml:"MUTATION_PAUSE" env:"MUTATION_PAUSE, overwrite"`
	TraktRateLimit float64       `yaml:"TRAKT_RATE_LIMIT" env:"TRAKT_RATE_LIMIT, overwrite"`
}

// Load reads path from fsys and applies process environment overrides.
func Load(ctx context.Context, fsys afero.Fs, path string) (*Config, error) {
	return LoadWith(ctx, fsys, path, envconfig.OsLookuper())
}

// LoadWith is Load with an explicit environment source.
func LoadWith(ctx context.Context, fsys afero.Fs, path string, env envconfig.Lookuper) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Numeric defaults are set before decoding so an explicit zero is kept.
	cfg := Config{
		MutationPause:  defaultMutationPause,
		TraktRateLimit: defaultTraktRate,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: env}); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListName == "" {
		c.ListName = defaultListName
	}
	if c.RedirectURI == "" {
		c.RedirectURI = defaultRedirectURI
	}

	colors := make(map[string]string, len(c.Colors)+1)
	for k, v := range c.Colors {
		colors[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	if _, ok := colors[models.ColorUnknown]; !ok {
		colors[models.ColorUnknown] = models.DefaultColor
	}
	c.Colors = colors

	libs := c.Libraries[:0]
	for _, l := range c.Libraries {
		if l = strings.TrimSpace(l); l != "" {
			libs = append(libs, l)
		}
	}
	c.Libraries = libs
}

// Validate checks required keys, the time zone and the output directories.
func (c *Config) Validate(fsys afero.Fs) error {
	var errs []error

	required := []struct {
		key, value string
	}{
		{"TZ", c.TZ},
		{"LOG_FILE", c.LogFile},
		{"FONT_PATH", c.FontPath},
		{"TRAKT_TOKEN_FILE", c.TraktTokenFile},
		{"TRAKT_CLIENT_ID", c.TraktClientID},
		{"TRAKT_CLIENT_SECRET", c.TraktClientSecret},
		{"TRAKT_USERNAME", c.TraktUsername},
		{"PLEX_URL", c.PlexURL},
		{"PLEX_TOKEN", c.PlexToken},
		{"YAML_OUTPUT_DIR", c.YAMLOutputDir},
		{"YAML_FILE_TEMPLATE", c.YAMLFileTemplate},
		{"COLLECTIONS_DIR", c.CollectionsDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	if len(c.Libraries) == 0 {
		errs = append(errs, errors.New("LIBRARIES must list at least one library"))
	}
	if c.TZ != "" {
		if _, err := time.LoadLocation(c.TZ); err != nil {
			errs = append(errs, fmt.Errorf("TZ %q: %w", c.TZ, err))
		}
	}
	if c.YAMLFileTemplate != "" && !strings.Contains(c.YAMLFileTemplate, LibraryPlaceholder) {
		errs = append(errs, fmt.Errorf("YAML_FILE_TEMPLATE must contain %s", LibraryPlaceholder))
	}
	for _, key := range models.RequiredColors {
		if c.Colors[key] == "" {
			errs = append(errs, fmt.Errorf("COLORS.%s is required", key))
		}
	}
	if c.MutationPause < 0 {
		errs = append(errs, errors.New("MUTATION_PAUSE must not be negative"))
	}
	if c.TraktRateLimit < 0 {
		errs = append(errs, errors.New("TRAKT_RATE_LIMIT must not be negative"))
	}

	for _, d := range []struct{ key, path string }{
		{"YAML_OUTPUT_DIR", c.YAMLOutputDir},
		{"COLLECTIONS_DIR", c.CollectionsDir},
	} {
		if d.path == "" {
			continue
		}
		ok, err := afero.DirExists(fsys, d.path)
		if err != nil || !ok {
			errs = append(errs, fmt.Errorf("%s does not exist: %s", d.key, d.path))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Location returns the configured display time zone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
