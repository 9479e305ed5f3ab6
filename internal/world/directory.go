package world

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/record"
)

// advancementsAndStatsVersion is the epoch both the advancements and
// stats JSON directories are assumed to start at when a file carries no
// DataVersion of its own.
const advancementsAndStatsVersion = 1343

// UpgradePlayerData fans out over every `*.dat` file in `<world>/playerdata`
// through the binary codec and the player type converter.
func UpgradePlayerData(worldDir string, opts Options) {
	upgradeDatDirectory(filepath.Join(worldDir, "playerdata"), convert.Player, opts)
}

// UpgradeAdvancements fans out over `<world>/advancements/*.json`, pretty-printed.
func UpgradeAdvancements(worldDir string, opts Options) {
	upgradeJSONDirectory(filepath.Join(worldDir, "advancements"), convert.Advancements, true, opts)
}

// UpgradeStats fans out over `<world>/stats/*.json`, compact.
func UpgradeStats(worldDir string, opts Options) {
	upgradeJSONDirectory(filepath.Join(worldDir, "stats"), convert.Stats, false, opts)
}

func upgradeDatDirectory(dir string, kind convert.Kind, opts Options) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			opts.Logger.Error("failed to read directory", "dir", dir, "error", err)
		}
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match, _ := doublestar.Match("*.dat", entry.Name()); !match {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			upgradeOneDatFile(path, kind, opts)
			return nil
		})
	}
	_ = g.Wait()
}

func upgradeOneDatFile(path string, kind convert.Kind, opts Options) {
	root, err := readDataFile(path)
	if err != nil {
		logDataFileReadError(opts.Logger, path, path, err)
		return
	}

	if !record.Upgrade(convert.For(kind), root, func() string { return path }, opts.ToVersion, 99, opts.Logger) {
		return
	}

	if !opts.DryRun {
		if err := writeDataFile(path, root); err != nil {
			opts.Logger.Error("failed to write file", "path", path, "error", err)
		}
	}
}

func upgradeJSONDirectory(dir string, kind convert.Kind, pretty bool, opts Options) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			opts.Logger.Error("failed to read directory", "dir", dir, "error", err)
		}
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match, _ := doublestar.Match("*.json", entry.Name()); !match {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			upgradeOneJSONFile(path, kind, pretty, opts)
			return nil
		})
	}
	_ = g.Wait()
}

func upgradeOneJSONFile(path string, kind convert.Kind, pretty bool, opts Options) {
	raw, err := os.ReadFile(path)
	if err != nil {
		opts.Logger.Error("failed to read file", "path", path, "error", err)
		return
	}

	compound, err := nbt.ParseCompound(raw)
	if err != nil {
		opts.Logger.Error("failed to parse json file", "path", path, "error", err)
		return
	}

	if !record.Upgrade(convert.For(kind), compound, func() string { return path }, opts.ToVersion, advancementsAndStatsVersion, opts.Logger) {
		return
	}

	if opts.DryRun {
		return
	}

	out, err := nbt.StringifyCompound(compound, pretty)
	if err != nil {
		opts.Logger.Error("failed to stringify json file", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		opts.Logger.Error("failed to write file", "path", path, "error", err)
	}
}
