package world

import (
	"path/filepath"
	"testing"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/region"
)

// A full chunk below the entity-separation version loses its
// Level.Entities list and gains a sibling entity chunk carrying the
// same list.
func TestUpgradeChunksExtractsEntitiesAcrossSeparationBoundary(t *testing.T) {
	dir := t.TempDir()

	entities := &nbt.List{Elem: nbt.TagCompound, Values: []nbt.Value{
		nbt.Compound{"id": nbt.String("minecraft:pig")},
		nbt.Compound{"id": nbt.String("minecraft:cow")},
	}}
	chunk := nbt.Compound{
		"DataVersion": nbt.Int(2500),
		"Level": nbt.Compound{
			"Status":   nbt.String("full"),
			"xPos":     nbt.Int(0),
			"zPos":     nbt.Int(0),
			"Entities": entities,
		},
	}

	regionFolder := region.Open(filepath.Join(dir, "region"))
	if err := regionFolder.SetChunk(0, 0, chunk); err != nil {
		t.Fatal(err)
	}
	regionFolder.Close()

	opts := Options{ToVersion: 2681, Logger: testLogger(t)}
	UpgradeChunks("minecraft:overworld", "minecraft:noise", dir, dir, opts)

	worldFolder := region.Open(filepath.Join(dir, "region"))
	defer worldFolder.Close()
	worldChunk, err := worldFolder.GetChunk(0, 0)
	if err != nil {
		t.Fatalf("reading world chunk: %v", err)
	}
	if level := worldChunk.GetCompound("Level"); level != nil {
		if _, ok := level["Entities"]; ok {
			t.Fatal("world chunk should no longer carry Entities")
		}
	}

	entityFolder := region.Open(filepath.Join(dir, "entities"))
	defer entityFolder.Close()
	entityChunk, err := entityFolder.GetChunk(0, 0)
	if err != nil {
		t.Fatalf("reading entity chunk: %v", err)
	}
	got, ok := entityChunk["Entities"].(*nbt.List)
	if !ok {
		t.Fatal("entity chunk missing Entities list")
	}
	if len(got.Values) != 2 {
		t.Fatalf("entity chunk has %d entities, want 2", len(got.Values))
	}
}

// A chunk that never reached full generation keeps its entity list in
// place across the separation boundary.
func TestUpgradeChunksRetainsEntitiesForNonFullChunk(t *testing.T) {
	dir := t.TempDir()
	chunk := nbt.Compound{
		"DataVersion": nbt.Int(2500),
		"Level": nbt.Compound{
			"Status": nbt.String("carver"),
			"xPos":   nbt.Int(0),
			"zPos":   nbt.Int(0),
			"Entities": &nbt.List{Elem: nbt.TagCompound, Values: []nbt.Value{
				nbt.Compound{"id": nbt.String("minecraft:pig")},
			}},
		},
	}

	regionFolder := region.Open(filepath.Join(dir, "region"))
	if err := regionFolder.SetChunk(0, 0, chunk); err != nil {
		t.Fatal(err)
	}
	regionFolder.Close()

	opts := Options{ToVersion: 2681, Logger: testLogger(t)}
	UpgradeChunks("minecraft:overworld", "minecraft:noise", dir, dir, opts)

	worldFolder := region.Open(filepath.Join(dir, "region"))
	defer worldFolder.Close()
	worldChunk, err := worldFolder.GetChunk(0, 0)
	if err != nil {
		t.Fatalf("reading world chunk: %v", err)
	}
	level := worldChunk.GetCompound("Level")
	if level == nil {
		t.Fatal("missing Level")
	}
	if _, ok := level["Entities"].(*nbt.List); !ok {
		t.Fatal("non-full chunk should retain its entity list in place")
	}
}

// The transient __context child must never reach disk.
func TestUpgradeChunksScrubsContext(t *testing.T) {
	dir := t.TempDir()
	chunk := nbt.Compound{
		"DataVersion": nbt.Int(3120),
		"Level": nbt.Compound{
			"Status": nbt.String("full"),
			"xPos":   nbt.Int(5),
			"zPos":   nbt.Int(-3),
		},
	}
	regionFolder := region.Open(filepath.Join(dir, "region"))
	if err := regionFolder.SetChunk(5, -3, chunk); err != nil {
		t.Fatal(err)
	}
	regionFolder.Close()

	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeChunks("minecraft:overworld", "minecraft:noise", dir, dir, opts)

	worldFolder := region.Open(filepath.Join(dir, "region"))
	defer worldFolder.Close()
	got, err := worldFolder.GetChunk(5, -3)
	if err != nil {
		t.Fatalf("reading chunk: %v", err)
	}
	if _, ok := got["__context"]; ok {
		t.Fatal("__context must be scrubbed before persistence")
	}
	if v, _ := got.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("DataVersion = %d, want 3700", v)
	}
}

// A chunk whose DataVersion exceeds any known version is left untouched
// and does not abort the rest of the region.
func TestUpgradeChunksUnknownVersionIsSkipped(t *testing.T) {
	dir := t.TempDir()
	bad := nbt.Compound{
		"DataVersion": nbt.Int(99999),
		"Level":       nbt.Compound{"Status": nbt.String("full"), "xPos": nbt.Int(0), "zPos": nbt.Int(0)},
	}
	good := nbt.Compound{
		"DataVersion": nbt.Int(3120),
		"Level":       nbt.Compound{"Status": nbt.String("full"), "xPos": nbt.Int(1), "zPos": nbt.Int(0)},
	}

	regionFolder := region.Open(filepath.Join(dir, "region"))
	if err := regionFolder.SetChunk(0, 0, bad); err != nil {
		t.Fatal(err)
	}
	if err := regionFolder.SetChunk(1, 0, good); err != nil {
		t.Fatal(err)
	}
	regionFolder.Close()

	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeChunks("minecraft:overworld", "minecraft:noise", dir, dir, opts)

	worldFolder := region.Open(filepath.Join(dir, "region"))
	defer worldFolder.Close()

	untouched, err := worldFolder.GetChunk(0, 0)
	if err != nil {
		t.Fatalf("reading chunk (0,0): %v", err)
	}
	if v, _ := untouched.GetInt32("DataVersion"); v != 99999 {
		t.Fatalf("chunk with unknown version should be untouched, DataVersion = %d", v)
	}

	upgraded, err := worldFolder.GetChunk(1, 0)
	if err != nil {
		t.Fatalf("reading chunk (1,0): %v", err)
	}
	if v, _ := upgraded.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("sibling chunk should still upgrade, DataVersion = %d", v)
	}
}
