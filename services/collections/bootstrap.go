// Package collections seeds the Kometa collection file that points at the
// Next Airing list. Files are only ever created, never rewritten.
package collections

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sahara101/trakt2plexstatus/internal/slug"
)

const (
	fileSuffix = "-next-airing.yml"
	posterPath = "config/assets/Next Airing/poster.jpg"
)

// Collection is one Kometa collection definition.
type Collection struct {
	TraktList       string `yaml:"trakt_list"`
	FilePoster      string `yaml:"file_poster"`
	CollectionOrder string `yaml:"collection_order"`
	VisibleHome     bool   `yaml:"visible_home"`
	VisibleShared   bool   `yaml:"visible_shared"`
	SyncMode        string `yaml:"sync_mode"`
}

// File is the collection file layout.
type File struct {
	Collections map[string]Collection `yaml:"collections"`
}

// Bootstrapper creates missing collection files.
type Bootstrapper struct {
	fs       afero.Fs
	dir      string
	username string
	listName string
	logger   zerolog.Logger
}

// NewBootstrapper creates a bootstrapper writing into dir. username and
// listName identify the tracking list every collection follows.
func NewBootstrapper(fsys afero.Fs, dir, username, listName string, logger zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{
		fs:       fsys,
		dir:      dir,
		username: username,
		listName: listName,
		logger:   logger.With().Str("component", "collections").Logger(),
	}
}

// Path returns the collection file for library.
func (b *Bootstrapper) Path(library string) string {
	return filepath.Join(b.dir, slug.FileName(library)+fileSuffix)
}

// ListURL is the public URL of the tracking list, ranked ascending.
func (b *Bootstrapper) ListURL() string {
	return fmt.Sprintf("https://trakt.tv/users/%s/lists/%s?sort=rank,asc", b.username, slug.Make(b.listName))
}

// Build returns the collection definition for library.
func (b *Bootstrapper) Build(library string) File {
	return File{Collections: map[string]Collection{
		fmt.Sprintf("%s %s", b.listName, library): {
			TraktList:       b.ListURL(),
			FilePoster:      posterPath,
			CollectionOrder: "custom",
			VisibleHome:     true,
			VisibleShared:   true,
			SyncMode:        "sync",
		},
	}}
}

// EnsureCollectionFile writes the collection file for library unless one
// already exists. created is false when an existing file was left alone.
func (b *Bootstrapper) EnsureCollectionFile(library string) (created bool, path string, err error) {
	path = b.Path(library)
	logger := b.logger.With().Str("library", library).Str("path", path).Logger()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b.Build(library)); err != nil {
		return false, path, fmt.Errorf("encode collection yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, path, fmt.Errorf("encode collection yaml: %w", err)
	}

	f, err := b.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		logger.Debug().Msg("collection file already exists")
		return false, path, nil
	}
	if err != nil {
		return false, path, fmt.Errorf("create collection file: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return false, path, fmt.Errorf("write collection file: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, path, fmt.Errorf("close collection file: %w", err)
	}

	logger.Info().Msg("collection file created")
	return true, path, nil
}
