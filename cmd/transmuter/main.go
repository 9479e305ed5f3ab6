// Command transmuter upgrades a persisted world directory's on-disk
// schema to a target version.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to the driver via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - WT_LOG configures per-component verbosity
package main

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Earthcomputer/world-transmuter-cli/internal/logging"
	"github.com/Earthcomputer/world-transmuter-cli/internal/version"
	"github.com/Earthcomputer/world-transmuter-cli/internal/world"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // filtering is done by logging.DirectiveFilter
	})
	filter := logging.NewDirectiveFilter(baseHandler, envOr("WT_LOG", "info"))
	logger := slog.New(filter).With("run", uuid.NewString())

	var allowSnapshots bool
	var dryRun bool

	rootCmd := &cobra.Command{
		Use:   "transmuter <world> <to_version>",
		Short: "Upgrade a world's on-disk schema to a target version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(logger, args[0], args[1], allowSnapshots, dryRun)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().BoolVarP(&allowSnapshots, "allow-snapshots", "s", false, "permit targeting a snapshot version")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "read and transform but never write")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// run performs one migration. All preflight failures (unknown target
// version, snapshot without --allow-snapshots, unreadable level.dat) are
// logged and terminate the run with a nil error, so the process exits 0;
// a non-zero exit is reserved for CLI argument errors raised by cobra.
func run(logger *slog.Logger, worldDir, toVersionName string, allowSnapshots, dryRun bool) error {
	entry, ok := version.LookupByName(toVersionName)
	if !ok {
		logger.Error("unknown version", "name", toVersionName)
		return nil
	}
	if entry.Classification == version.Snapshot && !allowSnapshots {
		logger.Error("refusing to target a snapshot without --allow-snapshots", "name", entry.Name)
		return nil
	}

	opts := world.Options{
		ToVersion: entry.ID,
		DryRun:    dryRun,
		Logger:    logger,
	}

	if err := world.Upgrade(worldDir, opts); err != nil {
		logger.Error("upgrade failed", "error", err)
		return nil
	}

	logger.Info("done")
	return nil
}
