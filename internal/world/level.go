package world

import (
	"path/filepath"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/version"
)

// worldGenSettingsRelocateVersion is the first target version at which the
// seven legacy top-level generator keys move under Data/WorldGenSettings.
const worldGenSettingsRelocateVersion = 2554

var legacyGeneratorKeys = [...]string{
	"RandomSeed",
	"generatorName",
	"generatorOptions",
	"generatorVersion",
	"legacy_custom_options",
	"MapFeatures",
	"BonusChest",
}

// updateLevelData applies the level.dat-specific conversion: drop the
// stray legacy Player tag, run the level type converter, stamp
// DataVersion, and (for recent enough targets) relocate the legacy
// generator keys into Data/WorldGenSettings before running that type
// converter too.
func updateLevelData(data nbt.Compound, fromVersion, toVersion uint32) {
	delete(data, "Player")

	convert.For(convert.Level)()(data, fromVersion, toVersion)
	data["DataVersion"] = nbt.Int(toVersion)

	if toVersion >= worldGenSettingsRelocateVersion {
		wgs := data.EnsureCompound("WorldGenSettings")
		for _, key := range legacyGeneratorKeys {
			if v, ok := data[key]; ok {
				wgs[key] = v
				delete(data, key)
			}
		}
		convert.For(convert.WorldGenSettings)()(wgs, fromVersion, toVersion)
	}
}

// UpgradeLevelDat upgrades `<world>/level.dat`. On success it returns the
// Data compound advanced to the catalog's latest known version (used by
// the dimension driver to resolve custom dimensions and generator
// types), regardless of whether the target-advanced copy could be
// written to disk. A nil compound with ok == false is a fatal preflight
// failure (unreadable or undecodable level.dat, a missing Data child, or
// an unrecognized DataVersion) that must abort the run.
func UpgradeLevelDat(worldDir string, opts Options) (latest nbt.Compound, ok bool) {
	path := filepath.Join(worldDir, "level.dat")
	root, err := readDataFile(path)
	if err != nil {
		opts.Logger.Error("failed to read level.dat", "path", path, "error", err)
		return nil, false
	}

	data := root.GetCompound("Data")
	if data == nil {
		opts.Logger.Error("missing Data tag in level.dat")
		return nil, false
	}

	latestVersion := version.Latest().ID

	fromVersion := uint32(99)
	if v, okV := data.GetInt32("DataVersion"); okV {
		fromVersion = uint32(v)
	}
	delete(data, "DataVersion")

	entry, known := version.LookupByID(fromVersion)
	if !known {
		opts.Logger.Warn("level.dat had unrecognized data version", "dataVersion", fromVersion)
		return nil, false
	}

	if entry.ID > opts.ToVersion {
		// Disk stays untouched, but dimension discovery still needs a
		// usable, fully-advanced copy.
		opts.Logger.Warn("cannot downgrade level.dat", "from", entry.Name)
		latestCopy := data.Clone()
		updateLevelData(latestCopy, entry.ID, latestVersion)
		return latestCopy, true
	}

	targetCopy := data
	updateLevelData(targetCopy, entry.ID, opts.ToVersion)

	if !opts.DryRun {
		if err := writeDataFile(path, root); err != nil {
			opts.Logger.Error("failed to write level.dat", "error", err)
		}
	}

	latestCopy := targetCopy.Clone()
	updateLevelData(latestCopy, opts.ToVersion, latestVersion)
	return latestCopy, true
}
