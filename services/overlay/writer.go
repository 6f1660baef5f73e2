// Package overlay writes the per-library status overlay files consumed by Kometa.
package overlay

//go:generate mockgen -source=writer.go -destination=mock_catalog_test.go -package=overlay

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sahara101/trakt2plexstatus/config"
	"github.com/sahara101/trakt2plexstatus/models"
	"github.com/sahara101/trakt2plexstatus/services/status"
)

// Fixed overlay geometry
const (
	backHeight = 90
	backWidth  = 1000
	fontSize   = 70
	fontColor  = "#FFFFFF"
)

// Catalog lists the shows of a library.
type Catalog interface {
	LibraryShows(ctx context.Context, library string) ([]models.Show, error)
}

// Resolver resolves one show.
type Resolver interface {
	Resolve(ctx context.Context, show models.Show) status.Resolution
}

// Descriptor is the overlay file layout.
type Descriptor struct {
	Overlays map[string]Entry `yaml:"overlays"`
}

// Entry is one show's overlay.
type Entry struct {
	Overlay    Style  `yaml:"overlay"`
	PlexSearch Search `yaml:"plex_search"`
}

// Style is the overlay's look. Field order matches the keys' sorted order.
type Style struct {
	BackColor        string `yaml:"back_color"`
	BackHeight       int    `yaml:"back_height"`
	BackWidth        int    `yaml:"back_width"`
	Color            string `yaml:"color"`
	Font             string `yaml:"font"`
	FontSize         int    `yaml:"font_size"`
	HorizontalAlign  string `yaml:"horizontal_align"`
	HorizontalOffset int    `yaml:"horizontal_offset"`
	Name             string `yaml:"name"`
	VerticalAlign    string `yaml:"vertical_align"`
	VerticalOffset   int    `yaml:"vertical_offset"`
}

// Search selects the show by exact title.
type Search struct {
	All struct {
		Title string `yaml:"title"`
	} `yaml:"all"`
}

// Report summarises one library.
type Report struct {
	Library  string
	Path     string
	Shows    int
	Resolved int
	Skipped  map[status.SkipReason]int
	Airing   []models.AiringEntry // in catalog order
}

// Writer builds and writes overlay files.
type Writer struct {
	catalog  Catalog
	resolver Resolver
	fs       afero.Fs
	dir      string
	template string
	logger   zerolog.Logger
}

// NewWriter creates a writer. template must contain config.LibraryPlaceholder.
func NewWriter(catalog Catalog, resolver Resolver, fsys afero.Fs, dir, template string, logger zerolog.Logger) *Writer {
	return &Writer{
		catalog:  catalog,
		resolver: resolver,
		fs:       fsys,
		dir:      dir,
		template: template,
		logger:   logger.With().Str("component", "overlay").Logger(),
	}
}

// Path returns the overlay file for library.
func (w *Writer) Path(library string) string {
	name := strings.ReplaceAll(w.template, config.LibraryPlaceholder, strings.ToLower(library))
	return filepath.Join(w.dir, name)
}

// Key returns the overlay key for a show title in library.
func Key(library, title string) string {
	return fmt.Sprintf("%s_Status_%s", library, strings.ReplaceAll(title, " ", "_"))
}

// NewEntry builds the overlay entry for a resolved show.
func NewEntry(title string, res models.StatusResult) Entry {
	e := Entry{
		Overlay: Style{
			BackColor:        res.BackColor,
			BackHeight:       backHeight,
			BackWidth:        backWidth,
			Color:            fontColor,
			Font:             res.Font,
			FontSize:         fontSize,
			HorizontalAlign:  "center",
			HorizontalOffset: 0,
			Name:             fmt.Sprintf("text(%s)", res.TextContent),
			VerticalAlign:    "top",
			VerticalOffset:   0,
		},
	}
	e.PlexSearch.All.Title = title
	return e
}

// WriteLibrary resolves every show in library and overwrites its overlay file.
func (w *Writer) WriteLibrary(ctx context.Context, library string) (*Report, error) {
	logger := w.logger.With().Str("library", library).Logger()
	logger.Info().Msg("processing library")

	shows, err := w.catalog.LibraryShows(ctx, library)
	if err != nil {
		return nil, fmt.Errorf("list shows of %s: %w", library, err)
	}

	report := &Report{
		Library: library,
		Path:    w.Path(library),
		Shows:   len(shows),
		Skipped: make(map[status.SkipReason]int),
	}
	desc := Descriptor{Overlays: make(map[string]Entry, len(shows))}

	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := w.resolver.Resolve(ctx, show)
		if res.Skipped() {
			report.Skipped[res.Skip]++
			continue
		}

		// Duplicate titles share a key; the later show wins.
		desc.Overlays[Key(library, show.Title)] = NewEntry(show.Title, *res.Result)
		report.Resolved++
		if res.Airing != nil {
			report.Airing = append(report.Airing, *res.Airing)
		}
		logger.Debug().Str("show", show.Title).Str("status", res.Result.TextContent).Msg("processed show")
	}

	data, err := encode(desc)
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(w.fs, report.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write overlay file: %w", err)
	}

	logger.Info().Str("path", report.Path).Int("overlays", len(desc.Overlays)).Int("airing", len(report.Airing)).Msg("overlay file written")
	return report, nil
}

func encode(desc Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(desc); err != nil {
		return nil, fmt.Errorf("encode overlay yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode overlay yaml: %w", err)
	}
	return buf.Bytes(), nil
}
