package convert

import (
	"reflect"
	"testing"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
)

func TestForReturnsStableConverterAcrossCalls(t *testing.T) {
	a := For(Chunk)
	b := For(Chunk)
	// Both accessors must resolve to the same lazily-constructed value.
	root := nbt.Compound{}
	a()(root, 1, 2)
	b()(root, 1, 2)
	if reflect.ValueOf(a()).Pointer() != reflect.ValueOf(b()).Pointer() {
		t.Fatal("accessors for the same kind resolved to different converters")
	}
}

func TestAllKindsAreRegistered(t *testing.T) {
	kinds := []Kind{
		Level, WorldGenSettings, Player, Advancements, Stats, Chunk,
		EntityChunk, PoiChunk, SavedDataRaids, SavedDataMapData,
		SavedDataScoreboard, SavedDataRandomSequences,
		SavedDataStructureFeatureIndices,
	}
	for _, k := range kinds {
		if For(k) == nil {
			t.Fatalf("kind %d has no registered converter", k)
		}
	}
}
