package world

import "fmt"

// Upgrade runs the world driver: the top-level sequence a single
// invocation of the tool performs against one world directory. It halts
// early only on a fatal preflight failure reading level.dat; every later
// phase's failures are logged and skipped per-file or per-chunk, never
// aborting the run.
func Upgrade(worldDir string, opts Options) error {
	opts.Logger.Info("upgrading level.dat")
	levelData, ok := UpgradeLevelDat(worldDir, opts.withComponent("level"))
	if !ok {
		return fmt.Errorf("world: could not read or parse level.dat in %s", worldDir)
	}

	if opts.ToVersion >= advancementsAndStatsVersion {
		opts.Logger.Info("upgrading advancements")
		UpgradeAdvancements(worldDir, opts.withComponent("advancements"))
		opts.Logger.Info("upgrading stats")
		UpgradeStats(worldDir, opts.withComponent("stats"))
	}

	opts.Logger.Info("upgrading playerdata")
	UpgradePlayerData(worldDir, opts.withComponent("playerdata"))

	opts.Logger.Info("upgrading dimensions")
	UpgradeDimensions(worldDir, levelData, opts)

	opts.Logger.Info("upgrading scoreboard")
	UpgradeScoreboard(worldDir, opts.withComponent("saveddata"))
	opts.Logger.Info("upgrading random sequences")
	UpgradeRandomSequences(worldDir, opts.withComponent("saveddata"))
	opts.Logger.Info("upgrading maps")
	UpgradeMaps(worldDir, opts.withComponent("maps"))

	return nil
}
