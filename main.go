// Command trakt2plexstatus writes Kometa status overlays for Plex TV libraries
// from Trakt show data and keeps a Trakt list of upcoming episodes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sahara101/trakt2plexstatus/config"
	"github.com/sahara101/trakt2plexstatus/internal/logging"
	"github.com/sahara101/trakt2plexstatus/internal/pace"
	"github.com/sahara101/trakt2plexstatus/services/collections"
	"github.com/sahara101/trakt2plexstatus/services/nextairing"
	"github.com/sahara101/trakt2plexstatus/services/overlay"
	"github.com/sahara101/trakt2plexstatus/services/plex"
	"github.com/sahara101/trakt2plexstatus/services/runner"
	"github.com/sahara101/trakt2plexstatus/services/status"
	"github.com/sahara101/trakt2plexstatus/services/trakt"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	fsys := afero.NewOsFs()

	cfg, err := config.Load(ctx, fsys, configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(fsys); err != nil {
		return err
	}

	logger, closer, err := logging.Setup(logging.Options{
		File:    cfg.LogFile,
		Console: os.Stdout,
		RunID:   uuid.NewString(),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info().Str("config", configPath).Strs("libraries", cfg.Libraries).Msg("starting run")

	traktClient := trakt.NewClient(cfg.TraktClientID, cfg.TraktClientSecret)
	traktClient.SetLimiter(trakt.NewLimiter(cfg.TraktRateLimit))

	tokens := trakt.NewTokenManager(traktClient, fsys, cfg.TraktTokenFile, cfg.RedirectURI, logger)
	token, err := tokens.Token(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("trakt authorization failed")
		return err
	}

	plexClient := plex.NewClient(cfg.PlexURL, cfg.PlexToken)
	resolver := status.NewResolver(traktClient, token, cfg.Colors, cfg.FontPath, cfg.Location(), logger)
	writer := overlay.NewWriter(plexClient, resolver, fsys, cfg.YAMLOutputDir, cfg.YAMLFileTemplate, logger)
	seeder := collections.NewBootstrapper(fsys, cfg.CollectionsDir, cfg.TraktUsername, cfg.ListName, logger)
	reconciler := nextairing.NewReconciler(traktClient, token, pace.Fixed(cfg.MutationPause), logger)

	sum, err := runner.New(cfg.Libraries, cfg.ListName, writer, seeder, reconciler, logger).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("run interrupted")
		}
		return err
	}

	logSummary(logger, sum)
	return nil
}

func logSummary(logger zerolog.Logger, sum runner.Summary) {
	for _, r := range sum.Reports {
		logger.Info().
			Str("library", r.Library).
			Int("shows", r.Shows).
			Int("resolved", r.Resolved).
			Interface("skipped", r.Skipped).
			Msg("library summary")
	}
	if len(sum.FailedLibraries) > 0 {
		logger.Warn().Strs("libraries", sum.FailedLibraries).Msg("libraries without overlays")
	}
}
