package world

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil))
}

func writeTestDatFile(t *testing.T, dimFolder, name string, root nbt.Compound) {
	t.Helper()
	dataDir := filepath.Join(dimFolder, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dataDir, name+".dat")
	if err := nbt.WriteNamedRecord(path, nbt.NamedRecord{Root: root}); err != nil {
		t.Fatal(err)
	}
}

func readTestDatFile(t *testing.T, dimFolder, name string) (nbt.Compound, bool) {
	t.Helper()
	path := filepath.Join(dimFolder, "data", name+".dat")
	rec, ok, err := nbt.ReadNamedRecord(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false
		}
		t.Fatal(err)
	}
	return rec.Root, ok
}

func TestUpgradeRaidsSkippedBelowFirstRaidsVersion(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 1900, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:overworld", opts)

	root, _ := readTestDatFile(t, dir, "raids")
	if v, _ := root.GetInt32("DataVersion"); v != 99 {
		t.Fatalf("file should be untouched below firstRaidsVersion, DataVersion = %d", v)
	}
}

func TestUpgradeRaidsEndUsesRaidsEndName(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids_end", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_end", opts)

	root, ok := readTestDatFile(t, dir, "raids_end")
	if !ok {
		t.Fatal("raids_end.dat should still exist")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("DataVersion = %d, want 3700", v)
	}
}

func TestUpgradeRaidsNetherBeforeRenameVersion(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids_nether", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 2500, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_nether", opts)

	if _, ok := readTestDatFile(t, dir, "raids"); ok {
		t.Fatal("raids.dat should not exist before the rename version")
	}
	root, ok := readTestDatFile(t, dir, "raids_nether")
	if !ok {
		t.Fatal("raids_nether.dat should still exist")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 2500 {
		t.Fatalf("DataVersion = %d, want 2500", v)
	}
}

// Starting from raids_nether.dat only, targeting >= 2972 renames it to
// raids.dat and upgrades the renamed file.
func TestUpgradeRaidsNetherRenameMovesFile(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids_nether", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_nether", opts)

	if _, ok := readTestDatFile(t, dir, "raids_nether"); ok {
		t.Fatal("raids_nether.dat should have been renamed away")
	}
	root, ok := readTestDatFile(t, dir, "raids")
	if !ok {
		t.Fatal("raids.dat should exist after the rename")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("DataVersion = %d, want 3700", v)
	}
}

func TestUpgradeRaidsNetherRenameSkippedWhenDestinationExists(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids_nether", nbt.Compound{"DataVersion": nbt.Int(99), "marker": nbt.String("old")})
	writeTestDatFile(t, dir, "raids", nbt.Compound{"DataVersion": nbt.Int(99), "marker": nbt.String("new")})
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_nether", opts)

	if _, ok := readTestDatFile(t, dir, "raids_nether"); !ok {
		t.Fatal("raids_nether.dat should be left alone when raids.dat already exists")
	}
	root, ok := readTestDatFile(t, dir, "raids")
	if !ok {
		t.Fatal("raids.dat should still exist")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("raids.dat DataVersion = %d, want 3700", v)
	}
	if m, _ := root.GetString("marker"); m != "new" {
		t.Fatalf("raids.dat should be the pre-existing file, got marker %q", m)
	}
}

func TestUpgradeRaidsNetherRenameAbsentSourceIsSilentNoOp(t *testing.T) {
	dir := t.TempDir()
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_nether", opts)

	if _, ok := readTestDatFile(t, dir, "raids"); ok {
		t.Fatal("raids.dat should not materialize from nothing")
	}
}

func TestUpgradeRaidsNetherDryRunUpgradesInPlace(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids_nether", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 3700, DryRun: true, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:the_nether", opts)

	if _, ok := readTestDatFile(t, dir, "raids"); ok {
		t.Fatal("dry-run must never rename or create raids.dat")
	}
	root, ok := readTestDatFile(t, dir, "raids_nether")
	if !ok {
		t.Fatal("raids_nether.dat should still exist after dry-run")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 99 {
		t.Fatalf("dry-run must not persist changes, DataVersion = %d", v)
	}
}

func TestUpgradeRaidsOverworldUsesRaidsName(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "raids", nbt.Compound{"DataVersion": nbt.Int(99)})
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeRaids(dir, "minecraft:overworld", opts)

	root, ok := readTestDatFile(t, dir, "raids")
	if !ok {
		t.Fatal("raids.dat should still exist")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("DataVersion = %d, want 3700", v)
	}
}

// idcounts.dat{map:2} with map_0 and map_2 present and map_1 missing:
// map_1's absence must not be an error and must not block map_2 from
// upgrading.
func TestUpgradeMapsSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "idcounts", nbt.Compound{"map": nbt.Int(2)})
	writeTestDatFile(t, dir, "map_0", nbt.Compound{"DataVersion": nbt.Int(99)})
	writeTestDatFile(t, dir, "map_2", nbt.Compound{"DataVersion": nbt.Int(99)})

	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeMaps(dir, opts)

	for _, name := range []string{"map_0", "map_2"} {
		root, ok := readTestDatFile(t, dir, name)
		if !ok {
			t.Fatalf("%s.dat should still exist", name)
		}
		if v, _ := root.GetInt32("DataVersion"); v != 3700 {
			t.Fatalf("%s.dat DataVersion = %d, want 3700", name, v)
		}
	}
	if _, ok := readTestDatFile(t, dir, "map_1"); ok {
		t.Fatal("map_1.dat should not have been created")
	}
}

// idcounts.dat is only consulted for its counter: a DataVersion in it,
// even an unrecognized one, must neither block the map files from
// upgrading nor cause the file itself to be rewritten.
func TestUpgradeMapsIgnoresIdcountsDataVersion(t *testing.T) {
	dir := t.TempDir()
	writeTestDatFile(t, dir, "idcounts", nbt.Compound{"DataVersion": nbt.Int(99999), "map": nbt.Int(0)})
	writeTestDatFile(t, dir, "map_0", nbt.Compound{"DataVersion": nbt.Int(99)})

	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeMaps(dir, opts)

	root, ok := readTestDatFile(t, dir, "map_0")
	if !ok {
		t.Fatal("map_0.dat should still exist")
	}
	if v, _ := root.GetInt32("DataVersion"); v != 3700 {
		t.Fatalf("map_0.dat DataVersion = %d, want 3700", v)
	}

	idcounts, _ := readTestDatFile(t, dir, "idcounts")
	if v, _ := idcounts.GetInt32("DataVersion"); v != 99999 {
		t.Fatalf("idcounts.dat must be left untouched, DataVersion = %d", v)
	}
}

func TestUpgradeMapsNoIdCountsIsNoOp(t *testing.T) {
	dir := t.TempDir()
	opts := Options{ToVersion: 3700, Logger: testLogger(t)}
	UpgradeMaps(dir, opts) // must not panic

	if _, ok := readTestDatFile(t, dir, "map_0"); ok {
		t.Fatal("no map files should be created when idcounts.dat is absent")
	}
}
