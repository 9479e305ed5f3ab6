// Package convert provides the per-record-kind type converters: opaque
// functions invoked with (record, from_version, to_version) that advance
// a record's schema in place. The driver's job is to locate, decode,
// shard, and re-encode artifacts; it is not the converter's job to know
// the hundreds of individual field migrations a real game schema has
// accumulated release over release. Each accessor below is the seam
// where a full schema-history library would be wired in.
package convert

import (
	"sync"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/record"
)

// Kind identifies one of the record shapes the driver upgrades.
type Kind int

const (
	Level Kind = iota
	WorldGenSettings
	Player
	Advancements
	Stats
	Chunk
	EntityChunk
	PoiChunk
	SavedDataRaids
	SavedDataMapData
	SavedDataScoreboard
	SavedDataRandomSequences
	SavedDataStructureFeatureIndices
)

var registry = map[Kind]func() record.Converter{
	Level:                            lazy(identity),
	WorldGenSettings:                 lazy(identity),
	Player:                           lazy(identity),
	Advancements:                     lazy(identity),
	Stats:                            lazy(identity),
	Chunk:                            lazy(identity),
	EntityChunk:                      lazy(identity),
	PoiChunk:                         lazy(identity),
	SavedDataRaids:                   lazy(identity),
	SavedDataMapData:                 lazy(identity),
	SavedDataScoreboard:              lazy(identity),
	SavedDataRandomSequences:         lazy(identity),
	SavedDataStructureFeatureIndices: lazy(identity),
}

// For selects the lazily-constructed converter for kind. Callers pass
// this, partially applied, as the type-selector argument to
// record.Upgrade and only pay construction cost on first use.
func For(kind Kind) func() record.Converter {
	return registry[kind]
}

func lazy(c record.Converter) func() record.Converter {
	once := sync.OnceValue(func() record.Converter { return c })
	return once
}

// identity leaves the record's fields untouched: the field-by-field
// schema migration belongs to the full converter library, not here.
func identity(nbt.Compound, uint32, uint32) {}
