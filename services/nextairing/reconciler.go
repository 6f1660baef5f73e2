// Package nextairing keeps the remote Next Airing list in air-date order.
package nextairing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/sahara101/trakt2plexstatus/internal/pace"
	"github.com/sahara101/trakt2plexstatus/models"
	"github.com/sahara101/trakt2plexstatus/services/trakt"
)

// ListDescription is set on lists created by the reconciler.
const ListDescription = "List of shows with their next airing episodes."

// ErrListNotVisible is returned when a created list never shows up in the
// owner's lists.
var ErrListNotVisible = errors.New("created list not visible")

// Trakt is the subset of the tracking API the reconciler needs.
type Trakt interface {
	GetUserProfile(ctx context.Context, accessToken string) (*trakt.UserProfile, error)
	GetUserLists(ctx context.Context, accessToken, user string) ([]trakt.UserList, error)
	CreateList(ctx context.Context, accessToken, user string, list trakt.UserList) (*trakt.UserList, error)
	GetAllListItems(ctx context.Context, accessToken, user, list string) ([]trakt.ListItem, error)
	AddListShows(ctx context.Context, accessToken, user, list string, traktIDs []int) error
	RemoveListShows(ctx context.Context, accessToken, user, list string, traktIDs []int) error
}

// Outcome describes one reconciliation.
type Outcome struct {
	Slug    string
	Created bool
	Changed bool
	Removed int
	Added   int
}

// Reconciler replaces the list contents only when they differ from the
// desired order.
type Reconciler struct {
	client      Trakt
	accessToken string
	pacer       pace.Pacer
	lookupDelay time.Duration
	fold        cases.Caser
	logger      zerolog.Logger
}

// NewReconciler creates a reconciler. pacer runs after every mutating call.
func NewReconciler(client Trakt, accessToken string, pacer pace.Pacer, logger zerolog.Logger) *Reconciler {
	if pacer == nil {
		pacer = pace.None
	}
	return &Reconciler{
		client:      client,
		accessToken: accessToken,
		pacer:       pacer,
		lookupDelay: time.Second,
		fold:        cases.Fold(),
		logger:      logger.With().Str("component", "nextairing").Logger(),
	}
}

// Reconcile makes the list named name hold entries sorted by first air date.
func (r *Reconciler) Reconcile(ctx context.Context, name string, entries []models.AiringEntry) (Outcome, error) {
	profile, err := r.client.GetUserProfile(ctx, r.accessToken)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve list owner: %w", err)
	}
	user := profile.IDs.Slug
	if user == "" {
		user = profile.Username
	}

	listSlug, created, err := r.EnsureList(ctx, user, name)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Slug: listSlug, Created: created}
	logger := r.logger.With().Str("list", listSlug).Logger()

	desired := models.TraktIDs(models.SortAiring(entries))

	items, err := r.client.GetAllListItems(ctx, r.accessToken, user, listSlug)
	if err != nil {
		return out, fmt.Errorf("fetch list items: %w", err)
	}
	current := showIDs(items)

	if slices.Equal(current, desired) {
		logger.Info().Int("shows", len(current)).Msg("list already up to date")
		return out, nil
	}
	out.Changed = true

	// A failed remove does not stop the add; both errors are returned.
	var errs []error
	if len(current) > 0 {
		if err := r.client.RemoveListShows(ctx, r.accessToken, user, listSlug, current); err != nil {
			logger.Error().Err(err).Msg("failed to clear list")
			errs = append(errs, fmt.Errorf("clear list: %w", err))
		} else {
			out.Removed = len(current)
		}
		if err := r.pacer.Wait(ctx); err != nil {
			return out, errors.Join(append(errs, err)...)
		}
	}

	if len(desired) > 0 {
		if err := r.client.AddListShows(ctx, r.accessToken, user, listSlug, desired); err != nil {
			logger.Error().Err(err).Msg("failed to fill list")
			errs = append(errs, fmt.Errorf("fill list: %w", err))
		} else {
			out.Added = len(desired)
		}
		if err := r.pacer.Wait(ctx); err != nil {
			return out, errors.Join(append(errs, err)...)
		}
	}

	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	logger.Info().Int("removed", out.Removed).Int("added", out.Added).Msg("list updated")
	return out, nil
}

// EnsureList returns the slug of user's list called name, creating it if needed.
func (r *Reconciler) EnsureList(ctx context.Context, user, name string) (listSlug string, created bool, err error) {
	lists, err := r.client.GetUserLists(ctx, r.accessToken, user)
	if err != nil {
		return "", false, fmt.Errorf("fetch lists: %w", err)
	}
	if s, ok := r.match(lists, name); ok {
		return s, false, nil
	}

	r.logger.Info().Str("name", name).Msg("creating list")
	list, err := r.client.CreateList(ctx, r.accessToken, user, trakt.UserList{
		Name:           name,
		Description:    ListDescription,
		Privacy:        "public",
		DisplayNumbers: false,
		AllowComments:  false,
	})
	if err != nil {
		return "", false, fmt.Errorf("create list: %w", err)
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return "", true, err
	}
	if list != nil && list.IDs.Slug != "" {
		return list.IDs.Slug, true, nil
	}

	// New lists can take a moment to appear in the owner's lists.
	listSlug, err = retry.DoWithData(func() (string, error) {
		lists, err := r.client.GetUserLists(ctx, r.accessToken, user)
		if err != nil {
			return "", err
		}
		if s, ok := r.match(lists, name); ok {
			return s, nil
		}
		return "", ErrListNotVisible
	},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(r.lookupDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", true, fmt.Errorf("find list %q after creating it: %w", name, err)
	}
	return listSlug, true, nil
}

func (r *Reconciler) match(lists []trakt.UserList, name string) (string, bool) {
	want := r.fold.String(name)
	for _, l := range lists {
		if r.fold.String(l.Name) == want {
			return l.IDs.Slug, true
		}
	}
	return "", false
}

func showIDs(items []trakt.ListItem) []int {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		if item.Show != nil {
			ids = append(ids, item.Show.IDs.Trakt)
		}
	}
	return ids
}
