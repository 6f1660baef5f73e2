// Package runner drives one sync run across every configured library.
package runner

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sahara101/trakt2plexstatus/models"
	"github.com/sahara101/trakt2plexstatus/services/nextairing"
	"github.com/sahara101/trakt2plexstatus/services/overlay"
)

// OverlayWriter writes a library's overlay file.
type OverlayWriter interface {
	WriteLibrary(ctx context.Context, library string) (*overlay.Report, error)
}

// CollectionSeeder creates a library's collection file if missing.
type CollectionSeeder interface {
	EnsureCollectionFile(library string) (created bool, path string, err error)
}

// ListReconciler syncs the remote list with the airing entries.
type ListReconciler interface {
	Reconcile(ctx context.Context, name string, entries []models.AiringEntry) (nextairing.Outcome, error)
}

// Summary is the result of a run.
type Summary struct {
	Reports            []*overlay.Report
	FailedLibraries    []string
	CollectionsCreated []string
	Airing             []models.AiringEntry // accumulated in library then catalog order
	List               nextairing.Outcome
	ListErr            error
}

// Runner processes libraries in order, then reconciles the list once.
type Runner struct {
	libraries   []string
	listName    string
	overlays    OverlayWriter
	collections CollectionSeeder
	list        ListReconciler
	logger      zerolog.Logger
}

// New creates a runner.
func New(libraries []string, listName string, overlays OverlayWriter, collections CollectionSeeder, list ListReconciler, logger zerolog.Logger) *Runner {
	return &Runner{
		libraries:   libraries,
		listName:    listName,
		overlays:    overlays,
		collections: collections,
		list:        list,
		logger:      logger.With().Str("component", "runner").Logger(),
	}
}

// Run processes every library. Library and list failures are logged and
// recorded in the summary; only cancellation aborts the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for _, library := range r.libraries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		report, err := r.overlays.WriteLibrary(ctx, library)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			r.logger.Error().Err(err).Str("library", library).Msg("failed to write overlays")
			sum.FailedLibraries = append(sum.FailedLibraries, library)
		} else {
			sum.Reports = append(sum.Reports, report)
			sum.Airing = append(sum.Airing, report.Airing...)
		}

		created, path, err := r.collections.EnsureCollectionFile(library)
		switch {
		case err != nil:
			r.logger.Error().Err(err).Str("library", library).Msg("failed to create collection file")
		case created:
			sum.CollectionsCreated = append(sum.CollectionsCreated, path)
		}
	}

	r.logger.Info().Int("airing", len(sum.Airing)).Msg("updating next airing list")
	sum.List, sum.ListErr = r.list.Reconcile(ctx, r.listName, sum.Airing)
	if sum.ListErr != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		r.logger.Error().Err(sum.ListErr).Msg("failed to update next airing list")
	}

	r.logger.Info().
		Int("libraries", len(sum.Reports)).
		Int("failed", len(sum.FailedLibraries)).
		Bool("list_changed", sum.List.Changed).
		Msg("run complete")
	return sum, nil
}
