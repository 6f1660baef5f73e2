package models

import (
	"sort"
	"strings"
	"time"
)

// Color table keys. The configured table must carry every key except
// ColorUnknown, which falls back to white.
const (
	ColorEnded           = "ENDED"
	ColorCancelled       = "CANCELLED"
	ColorReturning       = "RETURNING"
	ColorSeasonFinale    = "SEASON_FINALE"
	ColorMidSeasonFinale = "MID_SEASON_FINALE"
	ColorFinalEpisode    = "FINAL_EPISODE"
	ColorSeasonPremiere  = "SEASON_PREMIERE"
	ColorAiring          = "AIRING"
	ColorUnknown         = "UNKNOWN"

	DefaultColor = "#FFFFFF"
)

// RequiredColors lists the keys a color table must define.
var RequiredColors = []string{
	ColorEnded,
	ColorCancelled,
	ColorReturning,
	ColorSeasonFinale,
	ColorMidSeasonFinale,
	ColorFinalEpisode,
	ColorSeasonPremiere,
	ColorAiring,
}

// EpisodeType is Trakt's episode_type for an upcoming episode.
type EpisodeType string

const (
	EpisodeSeriesFinale    EpisodeType = "series_finale"
	EpisodeSeasonFinale    EpisodeType = "season_finale"
	EpisodeMidSeasonFinale EpisodeType = "mid_season_finale"
	EpisodeSeasonPremiere  EpisodeType = "season_premiere"
	EpisodeOther           EpisodeType = "other"
)

// ParseEpisodeType normalises a Trakt episode_type; unrecognised values map to EpisodeOther.
func ParseEpisodeType(s string) EpisodeType {
	switch t := EpisodeType(strings.ToLower(strings.TrimSpace(s))); t {
	case EpisodeSeriesFinale, EpisodeSeasonFinale, EpisodeMidSeasonFinale, EpisodeSeasonPremiere:
		return t
	default:
		return EpisodeOther
	}
}

// StatusResult is the overlay label for one show.
type StatusResult struct {
	TextContent string
	BackColor   string // hex
	Font        string // path
}

// AiringEntry is a show with a known upcoming air date.
type AiringEntry struct {
	TraktID     int
	Title       string
	FirstAired  time.Time // UTC
	EpisodeType EpisodeType
}

// SortAiring returns a copy of entries ordered by FirstAired, oldest first.
// Entries with the same air date keep their input order.
func SortAiring(entries []AiringEntry) []AiringEntry {
	out := make([]AiringEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FirstAired.Before(out[j].FirstAired)
	})
	return out
}

// TraktIDs returns the Trakt ids of entries in order.
func TraktIDs(entries []AiringEntry) []int {
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TraktID)
	}
	return ids
}
