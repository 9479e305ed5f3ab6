package world

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
)

// defaultGeneratorType is substituted whenever a dimension's generator
// type cannot be resolved from level.dat.
const defaultGeneratorType = "minecraft:noise"

// builtinDimensionForms lists every spelling of the three hard-coded
// dimensions that must be excluded from custom-dimension discovery,
// both namespaced and un-namespaced.
var builtinDimensionForms = map[string]struct{}{
	"minecraft:overworld":  {},
	"overworld":            {},
	"minecraft:the_nether": {},
	"the_nether":           {},
	"minecraft:the_end":    {},
	"the_end":              {},
}

// Dimension is one dimension folder the dimension driver will visit:
// the three builtins plus any custom dimension declared in level.dat.
type Dimension struct {
	ID  string
	Dir string
}

// DiscoverDimensions returns the overworld, nether, and end, in that
// order, followed by every custom dimension key under
// Data/WorldGenSettings/dimensions that isn't one of the six builtin
// spellings. Custom dimensions are visited in sorted key order for
// determinism; their on-disk folder is `<world>/<namespace>/<path
// components split on '/'>`.
func DiscoverDimensions(worldDir string, levelData nbt.Compound) []Dimension {
	dims := []Dimension{
		{ID: "minecraft:overworld", Dir: worldDir},
		{ID: "minecraft:the_nether", Dir: filepath.Join(worldDir, "DIM-1")},
		{ID: "minecraft:the_end", Dir: filepath.Join(worldDir, "DIM1")},
	}

	dimensions := worldGenDimensions(levelData)
	keys := make([]string, 0, len(dimensions))
	for key := range dimensions {
		if _, builtin := builtinDimensionForms[key]; builtin {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		dims = append(dims, Dimension{ID: key, Dir: customDimensionDir(worldDir, key)})
	}
	return dims
}

func worldGenDimensions(levelData nbt.Compound) nbt.Compound {
	wgs := levelData.GetCompound("WorldGenSettings")
	if wgs == nil {
		return nil
	}
	return wgs.GetCompound("dimensions")
}

// customDimensionDir resolves a namespaced dimension key, e.g.
// "mymod:deep_caves/layer1", to its world-relative folder.
func customDimensionDir(worldDir, key string) string {
	namespace, path, ok := strings.Cut(key, ":")
	if !ok {
		namespace, path = "minecraft", key
	}
	parts := append([]string{worldDir, namespace}, strings.Split(path, "/")...)
	return filepath.Join(parts...)
}

// resolveGeneratorType looks up a dimension's generator type from
// level.dat's Data/WorldGenSettings/dimensions/<id>/generator/type,
// falling back to defaultGeneratorType on any missing step.
func resolveGeneratorType(levelData nbt.Compound, dimID string) string {
	dimensions := worldGenDimensions(levelData)
	if dimensions == nil {
		return defaultGeneratorType
	}
	dim := dimensions.GetCompound(dimID)
	if dim == nil {
		return defaultGeneratorType
	}
	generator := dim.GetCompound("generator")
	if generator == nil {
		return defaultGeneratorType
	}
	if t, ok := generator.GetString("type"); ok {
		return t
	}
	return defaultGeneratorType
}

// UpgradeDimensions runs the dimension driver: every builtin and custom
// dimension, in order entities/world/poi/raids, then deletes the legacy
// world-global structure files once every dimension has had the chance
// to back-fill from them.
func UpgradeDimensions(worldDir string, levelData nbt.Compound, opts Options) {
	for _, dim := range DiscoverDimensions(worldDir, levelData) {
		opts.Logger.Info("upgrading dimension", "dimension", dim.ID)
		generatorType := resolveGeneratorType(levelData, dim.ID)

		UpgradeEntities(dim.Dir, opts.withComponent("entities"))
		UpgradeChunks(dim.ID, generatorType, worldDir, dim.Dir, opts.withComponent("chunk"))
		UpgradePOI(dim.Dir, opts.withComponent("poi"))
		UpgradeRaids(dim.Dir, dim.ID, opts.withComponent("raids"))
	}

	if !opts.DryRun {
		DeleteLegacyDatFiles(worldDir, opts.withComponent("chunk"))
	}
}
