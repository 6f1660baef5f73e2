package collections

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnsureCollectionFileCreates(t *testing.T) {
	fsys := afero.NewMemMapFs()
	b := NewBootstrapper(fsys, "/collections", "jdoe", "Next Airing", zerolog.Nop())

	created, path, err := b.EnsureCollectionFile("TV Shows")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "/collections/tv-shows-next-airing.yml", path)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)

	var file File
	require.NoError(t, yaml.Unmarshal(data, &file))
	require.Contains(t, file.Collections, "Next Airing TV Shows")

	c := file.Collections["Next Airing TV Shows"]
	assert.Equal(t, "https://trakt.tv/users/jdoe/lists/next-airing?sort=rank,asc", c.TraktList)
	assert.Equal(t, "config/assets/Next Airing/poster.jpg", c.FilePoster)
	assert.Equal(t, "custom", c.CollectionOrder)
	assert.True(t, c.VisibleHome)
	assert.True(t, c.VisibleShared)
	assert.Equal(t, "sync", c.SyncMode)
}

func TestEnsureCollectionFileLeavesExisting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	b := NewBootstrapper(fsys, "/collections", "jdoe", "Next Airing", zerolog.Nop())

	_, path, err := b.EnsureCollectionFile("Anime")
	require.NoError(t, err)

	edited := []byte("collections:\n  Mine: {}\n")
	require.NoError(t, afero.WriteFile(fsys, path, edited, 0o644))

	created, again, err := b.EnsureCollectionFile("Anime")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, path, again)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, edited, data)
}

func TestEnsureCollectionFileMissingDir(t *testing.T) {
	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	b := NewBootstrapper(fsys, "/collections", "jdoe", "Next Airing", zerolog.Nop())

	created, _, err := b.EnsureCollectionFile("Anime")
	require.Error(t, err)
	assert.False(t, created)
}

func TestListURLUsesListSlug(t *testing.T) {
	b := NewBootstrapper(afero.NewMemMapFs(), "/c", "jdoe", "Prochaine Diffusion É", zerolog.Nop())
	assert.Equal(t, "https://trakt.tv/users/jdoe/lists/prochaine-diffusion-e?sort=rank,asc", b.ListURL())
}
