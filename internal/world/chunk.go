package world

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/record"
	"github.com/Earthcomputer/world-transmuter-cli/internal/region"
)

// legacyStructureDatFiles are the world-global monolithic structure files
// (not their `_index` companions) that only ever existed below
// lastMonolithStructureDataVersion; once every dimension has back-filled
// from them they serve no further purpose.
var legacyStructureDatFiles = []string{
	"Monument", "Stronghold", "Village", "Mineshaft", "Temple", "Mansion",
	"Fortress", "EndCity",
}

// separateEntitiesVersion (v2681) is the boundary at which entities move
// out of world chunks into a sibling entities/ region folder.
const separateEntitiesVersion = 2681

// firstPOIVersion (v1937) is the first target version with a poi/ layer.
const firstPOIVersion = 1937

type noState struct{}

// UpgradeEntities upgrades every chunk in `<dimension>/entities`. A no-op
// below the entity-separation boundary.
func UpgradeEntities(dimensionDir string, opts Options) {
	if opts.ToVersion < separateEntitiesVersion {
		return
	}
	upgradeRegions(filepath.Join(dimensionDir, "entities"), opts,
		func(chunkX, chunkZ int32, root nbt.Compound, _ *noState) bool {
			return record.Upgrade(convert.For(convert.EntityChunk), root, chunkLabel(chunkX, chunkZ), opts.ToVersion, separateEntitiesVersion, opts.Logger)
		},
		func() *noState { return &noState{} },
		nil,
	)
}

// UpgradePOI upgrades every chunk in `<dimension>/poi`. A no-op below
// the first POI version, or if the directory does not exist.
func UpgradePOI(dimensionDir string, opts Options) {
	if opts.ToVersion < firstPOIVersion {
		return
	}
	poiPath := filepath.Join(dimensionDir, "poi")
	if _, err := os.Stat(poiPath); err != nil {
		if !os.IsNotExist(err) {
			opts.Logger.Error("error checking if poi exists, skipping", "error", err)
		}
		return
	}
	upgradeRegions(poiPath, opts,
		func(chunkX, chunkZ int32, root nbt.Compound, _ *noState) bool {
			return record.Upgrade(convert.For(convert.PoiChunk), root, chunkLabel(chunkX, chunkZ), opts.ToVersion, firstPOIVersion, opts.Logger)
		},
		func() *noState { return &noState{} },
		nil,
	)
}

func chunkLabel(x, z int32) func() string {
	return func() string { return fmt.Sprintf("chunk at %d, %d", x, z) }
}

// UpgradeChunks upgrades the world chunks of one dimension: each chunk
// runs a two-phase conversion (with the legacy-structure back-fill
// spliced between the phases when crossing the monolith boundary), then
// an optional entity extraction into a sibling entities/ region folder.
func UpgradeChunks(dimID, generatorType, worldDir, dimensionDir string, opts Options) {
	if !opts.DryRun && opts.ToVersion >= separateEntitiesVersion {
		if err := os.Mkdir(filepath.Join(dimensionDir, "entities"), 0o755); err != nil && !os.IsExist(err) {
			opts.Logger.Error("failed to create entity region dir", "error", err)
		}
	}

	getHandler := sync.OnceValue(func() *legacyStructureHandler {
		return getLegacyStructureHandler(worldDir, dimID, opts)
	})

	upgradeRegions(filepath.Join(dimensionDir, "region"), opts,
		func(chunkX, chunkZ int32, root nbt.Compound, entityFolder *region.Folder) bool {
			return upgradeOneChunk(chunkX, chunkZ, root, dimID, generatorType, entityFolder, getHandler, opts)
		},
		func() *region.Folder { return region.Open(filepath.Join(dimensionDir, "entities")) },
		func(f *region.Folder) { f.Close() },
	)
}

func upgradeOneChunk(
	chunkX, chunkZ int32,
	root nbt.Compound,
	dimID, generatorType string,
	entityFolder *region.Folder,
	getHandler func() *legacyStructureHandler,
	opts Options,
) bool {
	fromVersion := root.GetInt32Default("DataVersion", 99)
	v := uint32(fromVersion)

	if v < lastMonolithStructureDataVersion {
		target := uint32(lastMonolithStructureDataVersion)
		if opts.ToVersion < target {
			target = opts.ToVersion
		}
		if !record.Upgrade(convert.For(convert.Chunk), root, chunkLabel(chunkX, chunkZ), target, 99, opts.Logger) {
			return false
		}
		if opts.ToVersion < lastMonolithStructureDataVersion {
			return true
		}
		if level := root.GetCompound("Level"); level != nil {
			if has, _ := level.GetBool("hasLegacyStructureData"); has {
				// Constructing the handler scans up to eight auxiliary
				// files, so it only happens once a chunk actually needs it.
				if handler := getHandler(); handler != nil {
					handler.updateFromLegacy(root)
				}
			}
		}
	}

	root["__context"] = nbt.Compound{
		"dimension": nbt.String(dimID),
		"generator": nbt.String(generatorType),
	}
	if !record.Upgrade(convert.For(convert.Chunk), root, chunkLabel(chunkX, chunkZ), opts.ToVersion, 99, opts.Logger) {
		delete(root, "__context")
		return false
	}
	delete(root, "__context")

	if !opts.DryRun && v < separateEntitiesVersion && opts.ToVersion >= separateEntitiesVersion {
		if !extractEntities(chunkX, chunkZ, root, entityFolder, opts.Logger) {
			return false
		}
	}

	return true
}

// extractEntities lifts the chunk's entity list out into a sibling
// entities/ region folder, only for a chunk that has reached full
// generation: pre-flattening chunks carry their entities at
// Level.Entities, later ones at the root's entities. Returns false
// (meaning: do not persist the world chunk) if writing the entity chunk
// fails, so a chunk's entities are never silently lost.
func extractEntities(chunkX, chunkZ int32, root nbt.Compound, entityFolder *region.Folder, logger *slog.Logger) bool {
	var entities nbt.Value
	if level := root.GetCompound("Level"); level != nil {
		if !isFullStatus(level) {
			return true
		}
		if v, has := level["Entities"]; has {
			entities = v
			delete(level, "Entities")
		}
	} else {
		if !isFullStatus(root) {
			return true
		}
		if v, has := root["entities"]; has {
			entities = v
			delete(root, "entities")
		}
	}
	if entities == nil {
		return true
	}

	if err := entityFolder.SetChunk(chunkX, chunkZ, nbt.Compound{"Entities": entities}); err != nil {
		logger.Error("failed to write entity chunk", "x", chunkX, "z", chunkZ, "error", err)
		return false
	}
	return true
}

func isFullStatus(c nbt.Compound) bool {
	s, ok := c.GetString("Status")
	return ok && (s == "full" || s == "minecraft:full")
}

// DeleteLegacyDatFiles removes the world-global legacy structure files
// once they have served their purpose as back-fill sources for every
// dimension. The `_index` companions are left alone.
func DeleteLegacyDatFiles(worldDir string, opts Options) {
	for _, key := range legacyStructureDatFiles {
		deleteLegacyDatFile(worldDir, key, opts)
	}
}

func deleteLegacyDatFile(worldDir, key string, opts Options) {
	path := filepath.Join(worldDir, "data", key+".dat")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		opts.Logger.Error("failed to delete legacy structure file", "name", key, "error", err)
	}
}

