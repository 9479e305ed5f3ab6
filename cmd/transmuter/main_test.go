package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
)

func testRunLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// An unknown target version is logged and terminates the run without a
// process error (exit 0); only CLI argument errors exit non-zero.
func TestRunUnknownVersion(t *testing.T) {
	logger, buf := testRunLogger()
	if err := run(logger, t.TempDir(), "9.99.9", false, false); err != nil {
		t.Fatalf("unknown version must not become a process error: %v", err)
	}
	if !strings.Contains(buf.String(), "unknown version") {
		t.Fatalf("expected an unknown-version log event, got: %s", buf)
	}
}

func TestRunSnapshotWithoutFlag(t *testing.T) {
	logger, buf := testRunLogger()
	if err := run(logger, t.TempDir(), "20w21a", false, false); err != nil {
		t.Fatalf("snapshot refusal must not become a process error: %v", err)
	}
	if !strings.Contains(buf.String(), "allow-snapshots") {
		t.Fatalf("expected a snapshot-refusal log event, got: %s", buf)
	}
}

func TestRunMissingLevelDat(t *testing.T) {
	logger, buf := testRunLogger()
	if err := run(logger, t.TempDir(), "1.20.4", false, false); err != nil {
		t.Fatalf("a failed upgrade must not become a process error: %v", err)
	}
	if !strings.Contains(buf.String(), "upgrade failed") {
		t.Fatalf("expected an upgrade-failed log event, got: %s", buf)
	}
}

// With --allow-snapshots, a snapshot target passes preflight and the
// world is actually upgraded.
func TestRunSnapshotAllowed(t *testing.T) {
	dir := t.TempDir()
	root := nbt.Compound{"Data": nbt.Compound{"DataVersion": nbt.Int(1343)}}
	if err := nbt.WriteNamedRecord(filepath.Join(dir, "level.dat"), nbt.NamedRecord{Root: root}); err != nil {
		t.Fatal(err)
	}

	logger, buf := testRunLogger()
	if err := run(logger, dir, "20w21a", true, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "done") {
		t.Fatalf("expected the run to complete, got: %s", buf)
	}

	rec, found, err := nbt.ReadNamedRecord(filepath.Join(dir, "level.dat"))
	if err != nil || !found {
		t.Fatalf("failed to read back level.dat: found=%v err=%v", found, err)
	}
	data := rec.Root.GetCompound("Data")
	if v, _ := data.GetInt32("DataVersion"); v != 2554 {
		t.Fatalf("level.dat DataVersion = %d, want 2554", v)
	}
}
