package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sha1n/uuid-backfill/internal/backfill"
	"github.com/sha1n/uuid-backfill/internal/config"
	"github.com/sha1n/uuid-backfill/internal/identity"
	"github.com/sha1n/uuid-backfill/internal/report"
	"github.com/spf13/pflag"
)

// ErrFilesFailed is returned in strict mode when at least one file failed.
var ErrFilesFailed = errors.New("one or more files failed")

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	Stdout        io.Writer
	Stderr        io.Writer
	WriteFile     backfill.WriteFunc // Optional: for testing write failures
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// RunWithDeps processes the given files with the provided dependencies.
// Per-file failures are reported and only turn into an error in strict mode.
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, programName string, paths []string) error {
	stdout, stderr := params.Stdout, params.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	if len(paths) == 0 {
		report.NewPrinter(stdout, backfill.DefaultField, false).Usage(programName)
		return nil
	}

	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs go to stderr so they never mix with the report
	logger := config.NewLogger(stderr, settings)
	slog.SetDefault(logger)
	config.LogWithLogger(settings, logger)

	b, err := newBackfiller(settings, logger, params.WriteFile)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(stdout, settings.Field, !settings.NoColor)
	summary, err := b.Run(ctx, paths, printer)
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	printer.Summary(summary)

	logger.Debug("Run complete",
		"files", summary.Files,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
		"added", summary.Added)

	if settings.Strict && summary.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrFilesFailed, summary.Failed, summary.Files)
	}
	return nil
}

// BackfillOptions maps settings onto Backfiller options.
func BackfillOptions(settings *config.Settings, logger *slog.Logger) (backfill.Options, error) {
	gen, err := identity.ForVersion(settings.UUIDVersion)
	if err != nil {
		return backfill.Options{}, err
	}
	return backfill.Options{
		Field:       settings.Field,
		Generator:   gen,
		Indent:      settings.Indent,
		DryRun:      settings.DryRun,
		LockDir:     settings.LockDir,
		LockTimeout: settings.LockTimeout,
		Logger:      logger,
	}, nil
}

func newBackfiller(settings *config.Settings, logger *slog.Logger, write backfill.WriteFunc) (*backfill.Backfiller, error) {
	opts, err := BackfillOptions(settings, logger)
	if err != nil {
		return nil, err
	}
	opts.WriteFile = write
	return backfill.New(opts), nil
}
