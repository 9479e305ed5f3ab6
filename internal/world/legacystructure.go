package world

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/record"
)

// lastMonolithStructureDataVersion is the last DataVersion at which
// structure data lived in the world-global legacy .dat files instead of
// per-chunk Structures fields.
const lastMonolithStructureDataVersion = 1493

var currentToLegacyMap = map[string]string{
	"Village":        "Village",
	"Mineshaft":      "Mineshaft",
	"Mansion":        "Mansion",
	"Igloo":          "Temple",
	"Desert_Pyramid": "Temple",
	"Jungle_Pyramid": "Temple",
	"Swamp_Hut":      "Temple",
	"Stronghold":     "Stronghold",
	"Monument":       "Monument",
	"Fortress":       "Fortress",
	"EndCity":        "EndCity",
}

var legacyToCurrentMap = map[string]string{
	"Iglu": "Igloo",
	"TeDP": "Desert_Pyramid",
	"TeJP": "Jungle_Pyramid",
	"TeSH": "Swamp_Hut",
}

var oldStructureRegistryKeys = map[string]struct{}{
	"pillager_outpost": {}, "mineshaft": {}, "mansion": {}, "jungle_pyramid": {},
	"desert_pyramid": {}, "igloo": {}, "ruined_portal": {}, "shipwreck": {},
	"swamp_hut": {}, "stronghold": {}, "monument": {}, "ocean_ruin": {},
	"fortress": {}, "endcity": {}, "buried_treasure": {}, "village": {},
	"nether_fossil": {}, "bastion_remnant": {},
}

var overworldLegacyKeys = []string{"Monument", "Stronghold", "Village", "Mineshaft", "Temple", "Mansion"}
var overworldCurrentKeys = []string{"Village", "Mineshaft", "Mansion", "Igloo", "Desert_Pyramid", "Jungle_Pyramid", "Swamp_Hut", "Monument"}
var netherKeys = []string{"Fortress"}
var endKeys = []string{"EndCity"}

type chunkPos struct{ X, Z int32 }

func packChunkPos(x, z int32) int64 {
	return int64(uint64(uint32(x)) | uint64(uint32(z))<<32)
}

// legacyStructureHandler is the in-memory index over a dimension's legacy
// monolithic structure files, used to back-fill per-chunk Structures
// fields when chunks cross the monolith boundary.
type legacyStructureHandler struct {
	hasLegacyData bool
	dataMap       map[string]map[chunkPos]nbt.Compound
	indexMap      map[string]*structureFeatureIndex
	currentKeys   []string
}

// getLegacyStructureHandler builds the handler for dimID, or returns nil
// for a dimension the legacy format never covered.
func getLegacyStructureHandler(worldDir, dimID string, opts Options) *legacyStructureHandler {
	switch dimID {
	case "minecraft:overworld":
		return newLegacyStructureHandler(worldDir, overworldLegacyKeys, overworldCurrentKeys, opts)
	case "minecraft:the_nether":
		return newLegacyStructureHandler(worldDir, netherKeys, netherKeys, opts)
	case "minecraft:the_end":
		return newLegacyStructureHandler(worldDir, endKeys, endKeys, opts)
	default:
		opts.Logger.Error("custom dimension had too old chunk version", "dimension", dimID)
		return nil
	}
}

func newLegacyStructureHandler(worldDir string, legacyKeys, currentKeys []string, opts Options) *legacyStructureHandler {
	h := &legacyStructureHandler{
		dataMap:     make(map[string]map[chunkPos]nbt.Compound),
		indexMap:    make(map[string]*structureFeatureIndex),
		currentKeys: currentKeys,
	}
	h.populateCaches(worldDir, legacyKeys, opts)
	for _, key := range currentKeys {
		if _, ok := h.dataMap[key]; ok {
			h.hasLegacyData = true
			break
		}
	}
	return h
}

func (h *legacyStructureHandler) populateCaches(worldDir string, legacyKeys []string, opts Options) {
	for _, legacyKey := range legacyKeys {
		path := filepath.Join(worldDir, "data", legacyKey+".dat")
		data, err := readDataFile(path)
		if err != nil {
			logDataFileReadError(opts.Logger, legacyKey, path, err)
			continue
		}

		name := legacyKey
		if !record.Upgrade(convert.For(convert.SavedDataStructureFeatureIndices), data, func() string { return name + ".dat" }, lastMonolithStructureDataVersion, 99, opts.Logger) {
			continue
		}

		dataChild := data.GetCompound("data")
		if dataChild == nil {
			continue
		}
		features := dataChild.GetCompound("Features")
		if len(features) == 0 {
			continue
		}

		indexKey := legacyKey + "_index"
		index, ok := loadStructureFeatureIndex(worldDir, indexKey, opts)
		if !ok {
			continue
		}

		var chunks []chunkPos
		for _, featureVal := range features {
			feature, ok := featureVal.(nbt.Compound)
			if !ok {
				continue
			}
			pos := chunkPos{feature.GetInt32Default("ChunkX", 0), feature.GetInt32Default("ChunkZ", 0)}
			chunks = append(chunks, pos)

			if children := feature.GetList("Children"); children != nil && len(children.Values) > 0 {
				if firstChild, ok := children.Values[0].(nbt.Compound); ok {
					if id, ok := firstChild.GetString("id"); ok {
						if renamed, ok := legacyToCurrentMap[id]; ok {
							feature["id"] = nbt.String(renamed)
						}
					}
				}
			}

			if id, ok := feature.GetString("id"); ok {
				bucket := h.dataMap[id]
				if bucket == nil {
					bucket = make(map[chunkPos]nbt.Compound)
					h.dataMap[id] = bucket
				}
				bucket[pos] = feature
			}
		}

		if len(index.all) > 0 {
			h.indexMap[legacyKey] = index
		} else {
			synthesized := newStructureFeatureIndex()
			for _, pos := range chunks {
				synthesized.addIndex(pos.X, pos.Z)
			}
			h.indexMap[legacyKey] = synthesized
		}
	}
}

// updateFromLegacy back-fills Level.Structures.Starts and
// Level.Structures.References for one chunk from the legacy index.
func (h *legacyStructureHandler) updateFromLegacy(chunk nbt.Compound) {
	level := chunk.GetCompound("Level")
	if level == nil {
		return
	}
	chunkX := level.GetInt32Default("xPos", 0)
	chunkZ := level.GetInt32Default("zPos", 0)

	structures := level.EnsureCompound("Structures")

	if h.isUnhandledStructureStart(chunkX, chunkZ) {
		h.updateStructureStart(structures, chunkX, chunkZ)
	}

	references := structures.EnsureCompound("References")
	for _, currentKey := range h.currentKeys {
		_, isOld := oldStructureRegistryKeys[strings.ToLower(currentKey)]
		if _, isLongArray := references[currentKey].(nbt.LongArray); isLongArray || !isOld {
			continue
		}
		var starts nbt.LongArray
		for x := chunkX - 8; x <= chunkX+8; x++ {
			for z := chunkZ - 8; z <= chunkZ+8; z++ {
				if h.hasLegacyStart(x, z, currentKey) {
					starts = append(starts, packChunkPos(x, z))
				}
			}
		}
		references[currentKey] = starts
	}
}

func (h *legacyStructureHandler) isUnhandledStructureStart(chunkX, chunkZ int32) bool {
	if !h.hasLegacyData {
		return false
	}
	for _, currentKey := range h.currentKeys {
		if _, ok := h.dataMap[currentKey]; !ok {
			continue
		}
		if h.indexMap[currentToLegacyMap[currentKey]].hasUnhandledIndex(chunkX, chunkZ) {
			return true
		}
	}
	return false
}

func (h *legacyStructureHandler) updateStructureStart(structures nbt.Compound, chunkX, chunkZ int32) {
	starts := structures.EnsureCompound("Starts")
	for _, currentKey := range h.currentKeys {
		bucket, ok := h.dataMap[currentKey]
		if !ok {
			continue
		}
		if !h.indexMap[currentToLegacyMap[currentKey]].hasUnhandledIndex(chunkX, chunkZ) {
			continue
		}
		if feature, ok := bucket[chunkPos{chunkX, chunkZ}]; ok {
			starts[currentKey] = feature.Clone()
		}
	}
}

func (h *legacyStructureHandler) hasLegacyStart(x, z int32, typ string) bool {
	if !h.hasLegacyData {
		return false
	}
	if _, ok := h.dataMap[typ]; !ok {
		return false
	}
	return h.indexMap[currentToLegacyMap[typ]].hasStartIndex(x, z)
}

// structureFeatureIndex is the All/Remaining chunk-coordinate pair a
// `<Key>_index.dat` packs as long-arrays.
type structureFeatureIndex struct {
	all       map[chunkPos]struct{}
	remaining map[chunkPos]struct{}
}

func newStructureFeatureIndex() *structureFeatureIndex {
	return &structureFeatureIndex{all: make(map[chunkPos]struct{}), remaining: make(map[chunkPos]struct{})}
}

func (s *structureFeatureIndex) addIndex(x, z int32) {
	s.all[chunkPos{x, z}] = struct{}{}
	s.remaining[chunkPos{x, z}] = struct{}{}
}

func (s *structureFeatureIndex) hasStartIndex(x, z int32) bool {
	_, ok := s.all[chunkPos{x, z}]
	return ok
}

func (s *structureFeatureIndex) hasUnhandledIndex(x, z int32) bool {
	_, ok := s.remaining[chunkPos{x, z}]
	return ok
}

func unpackChunkPos(packed int64) chunkPos {
	u := uint64(packed)
	return chunkPos{int32(uint32(u)), int32(uint32(u >> 32))}
}

func loadStructureFeatureIndex(worldDir, indexKey string, opts Options) (*structureFeatureIndex, bool) {
	path := filepath.Join(worldDir, "data", indexKey+".dat")
	data, err := readDataFile(path)
	switch {
	case err == nil:
		// loaded
	case os.IsNotExist(err):
		data = nbt.New()
	case errors.Is(err, errUndecodable):
		opts.Logger.Error("failed to parse index file", "name", indexKey)
		return nil, false
	default:
		opts.Logger.Error("failed to read index file", "name", indexKey, "error", err)
		return nil, false
	}

	if !record.Upgrade(convert.For(convert.SavedDataStructureFeatureIndices), data, func() string { return indexKey + ".dat" }, lastMonolithStructureDataVersion, 99, opts.Logger) {
		return nil, false
	}

	index := newStructureFeatureIndex()
	if arr, ok := data["All"].(nbt.LongArray); ok {
		for _, v := range arr {
			index.all[unpackChunkPos(v)] = struct{}{}
		}
	}
	if arr, ok := data["Remaining"].(nbt.LongArray); ok {
		for _, v := range arr {
			index.remaining[unpackChunkPos(v)] = struct{}{}
		}
	}
	return index, true
}
