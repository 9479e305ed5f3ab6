package world

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
)

// firstRaidsVersion (v1912) is the first target version at which raids
// existed at all; below it the raids upgrader is a pure no-op.
const firstRaidsVersion = 1912

// raidsNetherRenameVersion (v2972) is the target version at which the
// nether's raids file is renamed from raids_nether.dat to raids.dat.
const raidsNetherRenameVersion = 2972

// UpgradeRaids upgrades the raids saved-data file for one dimension,
// picking the dimension-specific on-disk name and performing the nether
// rename when the target crosses raidsNetherRenameVersion.
func UpgradeRaids(dimensionDir, dimID string, opts Options) {
	if opts.ToVersion < firstRaidsVersion {
		return
	}

	switch dimID {
	case "minecraft:the_end":
		upgradeDataFile(dimensionDir, "raids_end", convert.SavedDataRaids, opts)
	case "minecraft:the_nether":
		upgradeNetherRaids(dimensionDir, opts)
	default:
		upgradeDataFile(dimensionDir, "raids", convert.SavedDataRaids, opts)
	}
}

// upgradeNetherRaids handles the nether's rename window: a rename
// failure of any kind (including the source being absent) abandons the
// raids upgrade for this run without falling through to the name-based
// upgrade below; only a successful rename (or dry-run, which never
// renames) falls through.
func upgradeNetherRaids(dimensionDir string, opts Options) {
	if opts.ToVersion >= raidsNetherRenameVersion && !dataFileExists(dimensionDir, "raids") {
		if opts.DryRun {
			// Can't simulate the rename, so upgrade raids_nether.dat in
			// place to still produce a realistic post-migration record.
			upgradeDataFile(dimensionDir, "raids_nether", convert.SavedDataRaids, opts)
		} else {
			fromPath := filepath.Join(dimensionDir, "data", "raids_nether.dat")
			toPath := filepath.Join(dimensionDir, "data", "raids.dat")
			if err := os.Rename(fromPath, toPath); err != nil {
				if !os.IsNotExist(err) {
					opts.Logger.Error("failed to rename raids_nether.dat to raids.dat", "error", err)
				}
				return
			}
		}
	}

	name := "raids"
	if opts.ToVersion < raidsNetherRenameVersion {
		name = "raids_nether"
	}
	upgradeDataFile(dimensionDir, name, convert.SavedDataRaids, opts)
}

// UpgradeScoreboard upgrades `<world>/data/scoreboard.dat`.
func UpgradeScoreboard(worldDir string, opts Options) {
	upgradeDataFile(worldDir, "scoreboard", convert.SavedDataScoreboard, opts)
}

// UpgradeRandomSequences upgrades `<world>/data/random_sequences.dat`.
func UpgradeRandomSequences(worldDir string, opts Options) {
	upgradeDataFile(worldDir, "random_sequences", convert.SavedDataRandomSequences, opts)
}

// UpgradeMaps upgrades every `map_<i>.dat` for 0 <= i <= the counter in
// `<world>/data/idcounts.dat`. idcounts.dat itself is only consulted for
// that counter, never converted or rewritten. Missing idcounts.dat means
// no maps were ever allocated, so the whole thing is silently skipped;
// missing individual map files are likewise ignored.
func UpgradeMaps(worldDir string, opts Options) {
	path := filepath.Join(worldDir, "data", "idcounts.dat")
	root, err := readDataFile(path)
	if err != nil {
		logDataFileReadError(opts.Logger, "idcounts", path, err)
		return
	}

	mapCount, ok := root.GetInt32("map")
	if !ok {
		return
	}

	for i := int32(0); i <= mapCount; i++ {
		upgradeDataFile(worldDir, fmt.Sprintf("map_%d", i), convert.SavedDataMapData, opts)
	}
}
