// Package status maps a catalog show to its overlay label via Trakt.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahara101/trakt2plexstatus/models"
	"github.com/sahara101/trakt2plexstatus/services/trakt"
)

// ProviderNamespace is the catalog guid namespace matched against Trakt's id search.
const ProviderNamespace = "tmdb"

// Trakt show statuses handled explicitly
const (
	statusEnded     = "ended"
	statusCanceled  = "canceled"
	statusReturning = "returning series"
)

// Tracker is the part of the Trakt client the resolver needs.
type Tracker interface {
	SearchTMDB(ctx context.Context, accessToken, tmdbID string) ([]trakt.SearchResult, error)
	GetShow(ctx context.Context, accessToken string, traktID int) (*trakt.ShowDetails, error)
	GetNextEpisode(ctx context.Context, accessToken string, traktID int) (*trakt.Episode, error)
}

// Kind classifies a resolution.
type Kind string

const (
	KindSkipped   Kind = "skipped"
	KindEnded     Kind = "ended"
	KindCanceled  Kind = "canceled"
	KindAiring    Kind = "airing"    // returning, next episode has an air date
	KindReturning Kind = "returning" // returning, no dated next episode
	KindUnknown   Kind = "unknown"
)

// SkipReason says why a show got no overlay.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipNoProviderID    SkipReason = "no provider id"
	SkipNoTrackingMatch SkipReason = "no tracking match"
	SkipLookupFailed    SkipReason = "lookup failed"
)

// Resolution is the outcome for one show. Result is nil iff Kind is KindSkipped;
// Airing is set only for KindAiring.
type Resolution struct {
	Kind   Kind
	Skip   SkipReason
	Result *models.StatusResult
	Airing *models.AiringEntry
	Err    error // lookup error behind SkipLookupFailed
}

// Skipped reports whether the show produced no overlay.
func (r Resolution) Skipped() bool {
	return r.Kind == KindSkipped
}

// Resolver resolves show statuses for one run.
type Resolver struct {
	tracker     Tracker
	accessToken string
	colors      map[string]string
	font        string
	loc         *time.Location
	logger      zerolog.Logger
}

// NewResolver creates a resolver. colors is keyed by the models.Color* names.
func NewResolver(tracker Tracker, accessToken string, colors map[string]string, font string, loc *time.Location, logger zerolog.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		tracker:     tracker,
		accessToken: accessToken,
		colors:      colors,
		font:        font,
		loc:         loc,
		logger:      logger.With().Str("component", "status").Logger(),
	}
}

func skipped(reason SkipReason, err error) Resolution {
	return Resolution{Kind: KindSkipped, Skip: reason, Err: err}
}

// Resolve looks the show up on Trakt and builds its label.
func (r *Resolver) Resolve(ctx context.Context, show models.Show) Resolution {
	logger := r.logger.With().Str("show", show.Title).Logger()
	logger.Debug().Msg("processing show")

	tmdbID := show.ProviderID(ProviderNamespace)
	if tmdbID == "" {
		logger.Debug().Msg("no tmdb guid, skipping")
		return skipped(SkipNoProviderID, nil)
	}

	results, err := r.tracker.SearchTMDB(ctx, r.accessToken, tmdbID)
	if err != nil {
		logger.Debug().Err(err).Str("tmdb", tmdbID).Msg("trakt search failed")
		return skipped(SkipLookupFailed, err)
	}
	traktID := firstShowID(results)
	if traktID == 0 {
		logger.Debug().Str("tmdb", tmdbID).Msg("no trakt show for tmdb id")
		return skipped(SkipNoTrackingMatch, nil)
	}

	details, err := r.tracker.GetShow(ctx, r.accessToken, traktID)
	if err != nil {
		logger.Debug().Err(err).Int("trakt", traktID).Msg("trakt show lookup failed")
		return skipped(SkipLookupFailed, err)
	}

	res := r.classify(ctx, show, traktID, details.Status)
	logger.Debug().Str("status", res.Result.TextContent).Str("kind", string(res.Kind)).Msg("finished processing show")
	return res
}

func (r *Resolver) classify(ctx context.Context, show models.Show, traktID int, rawStatus string) Resolution {
	status := strings.ToLower(strings.TrimSpace(rawStatus))

	switch status {
	case statusEnded:
		return r.result(KindEnded, "E N D E D", models.ColorEnded)
	case statusCanceled:
		return r.result(KindCanceled, "C A N C E L L E D", models.ColorCancelled)
	case statusReturning:
		return r.returning(ctx, show, traktID, status)
	default:
		return r.unknown(status)
	}
}

// unknown labels a show UNKNOWN, colored by its upper-cased status.
func (r *Resolver) unknown(status string) Resolution {
	color, ok := r.colors[strings.ToUpper(status)]
	if !ok || color == "" {
		color = r.color(models.ColorUnknown)
	}
	return Resolution{
		Kind:   KindUnknown,
		Result: &models.StatusResult{TextContent: "UNKNOWN", BackColor: color, Font: r.font},
	}
}

// returning labels a returning show. No next-episode record gives RETURNING;
// a record without a usable air date gives UNKNOWN.
func (r *Resolver) returning(ctx context.Context, show models.Show, traktID int, status string) Resolution {
	episode, err := r.tracker.GetNextEpisode(ctx, r.accessToken, traktID)
	if err != nil {
		r.logger.Debug().Err(err).Int("trakt", traktID).Msg("next episode lookup failed")
	}
	if err != nil || episode == nil {
		return r.result(KindReturning, "R E T U R N I N G", models.ColorReturning)
	}
	if episode.FirstAired == "" {
		r.logger.Debug().Int("trakt", traktID).Msg("next episode has no air date")
		return r.unknown(status)
	}

	aired, err := time.Parse(time.RFC3339, episode.FirstAired)
	if err != nil {
		r.logger.Debug().Err(err).Str("first_aired", episode.FirstAired).Msg("unparseable air date")
		return r.unknown(status)
	}
	aired = aired.UTC()
	date := aired.In(r.loc).Format("02/01")

	epType := models.ParseEpisodeType(episode.EpisodeType)
	label, colorKey := airingLabel(epType)

	res := r.result(KindAiring, fmt.Sprintf("%s %s", label, date), colorKey)
	res.Airing = &models.AiringEntry{
		TraktID:     traktID,
		Title:       show.Title,
		FirstAired:  aired,
		EpisodeType: epType,
	}
	return res
}

func airingLabel(t models.EpisodeType) (label, colorKey string) {
	switch t {
	case models.EpisodeSeasonFinale:
		return "SEASON FINALE", models.ColorSeasonFinale
	case models.EpisodeMidSeasonFinale:
		return "MID SEASON FINALE", models.ColorMidSeasonFinale
	case models.EpisodeSeriesFinale:
		return "FINAL EPISODE", models.ColorFinalEpisode
	case models.EpisodeSeasonPremiere:
		return "SEASON PREMIERE", models.ColorSeasonPremiere
	default:
		return "AIRING", models.ColorAiring
	}
}

func (r *Resolver) result(kind Kind, text, colorKey string) Resolution {
	return Resolution{
		Kind:   kind,
		Result: &models.StatusResult{TextContent: text, BackColor: r.color(colorKey), Font: r.font},
	}
}

func (r *Resolver) color(key string) string {
	if c := r.colors[key]; c != "" {
		return c
	}
	if c := r.colors[models.ColorUnknown]; c != "" {
		return c
	}
	return models.DefaultColor
}

func firstShowID(results []trakt.SearchResult) int {
	for _, res := range results {
		if res.Show != nil && res.Show.IDs.Trakt != 0 {
			return res.Show.IDs.Trakt
		}
	}
	return 0
}
