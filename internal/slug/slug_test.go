package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Next Airing":       "next-airing",
		"  Next   Airing  ": "next-airing",
		"Séries à venir":    "series-a-venir",
		"TV Shows (4K)":     "tv-shows-4k",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "tv-shows", FileName("TV Shows"))
	assert.Equal(t, "anime_4k", FileName("Anime_4K"))
}
