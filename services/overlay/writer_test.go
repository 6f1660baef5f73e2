package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"

	"github.com/sahara101/trakt2plexstatus/models"
	"github.com/sahara101/trakt2plexstatus/services/status"
)

func resolved(kind status.Kind, text, color string) status.Resolution {
	return status.Resolution{
		Kind:   kind,
		Result: &models.StatusResult{TextContent: text, BackColor: color, Font: "fonts/bold.ttf"},
	}
}

func readDescriptor(t *testing.T, fsys afero.Fs, path string) Descriptor {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	var desc Descriptor
	require.NoError(t, yaml.Unmarshal(data, &desc))
	return desc
}

func TestWriteLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	resolver := NewMockResolver(ctrl)
	fsys := afero.NewMemMapFs()

	shows := []models.Show{
		{Title: "Breaking Bad"},
		{Title: "The Bear"},
		{Title: "No Guid"},
	}
	aired := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	airing := resolved(status.KindAiring, "AIRING 02/05", "#006400")
	airing.Airing = &models.AiringEntry{TraktID: 30, Title: "The Bear", FirstAired: aired}

	catalog.EXPECT().LibraryShows(gomock.Any(), "TV Shows").Return(shows, nil)
	resolver.EXPECT().Resolve(gomock.Any(), shows[0]).Return(resolved(status.KindEnded, "E N D E D", "#000000"))
	resolver.EXPECT().Resolve(gomock.Any(), shows[1]).Return(airing)
	resolver.EXPECT().Resolve(gomock.Any(), shows[2]).Return(status.Resolution{Kind: status.KindSkipped, Skip: status.SkipNoProviderID})

	w := NewWriter(catalog, resolver, fsys, "/overlays", "{library}_status.yml", zerolog.Nop())
	report, err := w.WriteLibrary(context.Background(), "TV Shows")
	require.NoError(t, err)

	assert.Equal(t, "/overlays/tv shows_status.yml", report.Path)
	assert.Equal(t, 3, report.Shows)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, 1, report.Skipped[status.SkipNoProviderID])
	require.Len(t, report.Airing, 1)
	assert.Equal(t, 30, report.Airing[0].TraktID)

	desc := readDescriptor(t, fsys, report.Path)
	require.Len(t, desc.Overlays, 2)

	bb := desc.Overlays["TV Shows_Status_Breaking_Bad"]
	assert.Equal(t, "text(E N D E D)", bb.Overlay.Name)
	assert.Equal(t, "#000000", bb.Overlay.BackColor)
	assert.Equal(t, 90, bb.Overlay.BackHeight)
	assert.Equal(t, 1000, bb.Overlay.BackWidth)
	assert.Equal(t, 70, bb.Overlay.FontSize)
	assert.Equal(t, "#FFFFFF", bb.Overlay.Color)
	assert.Equal(t, "center", bb.Overlay.HorizontalAlign)
	assert.Equal(t, "top", bb.Overlay.VerticalAlign)
	assert.Equal(t, "fonts/bold.ttf", bb.Overlay.Font)
	assert.Equal(t, "Breaking Bad", bb.PlexSearch.All.Title)

	assert.Equal(t, "text(AIRING 02/05)", desc.Overlays["TV Shows_Status_The_Bear"].Overlay.Name)
}

func TestWriteLibraryOverwritesAndKeepsLastDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	resolver := NewMockResolver(ctrl)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/overlays/anime_status.yml", []byte("stale: true\n"), 0o644))

	dupes := []models.Show{{Title: "Dororo", RatingKey: "1"}, {Title: "Dororo", RatingKey: "2"}}
	catalog.EXPECT().LibraryShows(gomock.Any(), "Anime").Return(dupes, nil)
	resolver.EXPECT().Resolve(gomock.Any(), dupes[0]).Return(resolved(status.KindEnded, "E N D E D", "#000000"))
	resolver.EXPECT().Resolve(gomock.Any(), dupes[1]).Return(resolved(status.KindCanceled, "C A N C E L L E D", "#FF0000"))

	w := NewWriter(catalog, resolver, fsys, "/overlays", "{library}_status.yml", zerolog.Nop())
	report, err := w.WriteLibrary(context.Background(), "Anime")
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, report.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	desc := readDescriptor(t, fsys, report.Path)
	require.Len(t, desc.Overlays, 1)
	assert.Equal(t, "#FF0000", desc.Overlays["Anime_Status_Dororo"].Overlay.BackColor)
}

func TestWriteLibraryCatalogError(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	fsys := afero.NewMemMapFs()

	catalog.EXPECT().LibraryShows(gomock.Any(), "Missing").Return(nil, errors.New("plex library \"Missing\" not found"))

	w := NewWriter(catalog, NewMockResolver(ctrl), fsys, "/overlays", "{library}.yml", zerolog.Nop())
	_, err := w.WriteLibrary(context.Background(), "Missing")
	require.ErrorContains(t, err, "list shows of Missing")

	exists, _ := afero.Exists(fsys, "/overlays/missing.yml")
	assert.False(t, exists)
}

func TestWriteLibraryEmptyLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := NewMockCatalog(ctrl)
	fsys := afero.NewMemMapFs()
	catalog.EXPECT().LibraryShows(gomock.Any(), "Kids").Return(nil, nil)

	w := NewWriter(catalog, NewMockResolver(ctrl), fsys, "/o", "{library}.yml", zerolog.Nop())
	report, err := w.WriteLibrary(context.Background(), "Kids")
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, report.Path)
	require.NoError(t, err)
	assert.Equal(t, "overlays: {}\n", string(data))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "TV Shows_Status_The_Last_of_Us", Key("TV Shows", "The Last of Us"))
}
