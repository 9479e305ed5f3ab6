// Package world implements the migration driver: the orchestration
// layer that discovers persisted artifacts in a world directory,
// sequences their conversion, and drives parallel region-file
// processing.
package world

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Earthcomputer/world-transmuter-cli/internal/convert"
	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/record"
)

// Options carries the run-wide settings every upgrader in this package
// needs: the target version, whether to skip all writes, and the logger
// to report progress and errors through.
type Options struct {
	ToVersion uint32
	DryRun    bool
	Logger    *slog.Logger
}

// withComponent returns a copy of o whose logger tags every record with
// the named driver phase, so WT_LOG directives can raise or lower one
// component's verbosity.
func (o Options) withComponent(name string) Options {
	o.Logger = o.Logger.With("component", name)
	return o
}

var errUndecodable = errors.New("world: file present but undecodable")

// readDataFile loads the named record at path, returning errUndecodable
// (not an os error) when the file exists but the codec could not parse
// it, so callers can tell that apart from a missing file.
func readDataFile(path string) (nbt.Compound, error) {
	rec, ok, err := nbt.ReadNamedRecord(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errUndecodable
	}
	return rec.Root, nil
}

func writeDataFile(path string, root nbt.Compound) error {
	return nbt.WriteNamedRecord(path, nbt.NamedRecord{Root: root})
}

// upgradeDataFile runs one `<name>.dat` file under dimFolder/data through
// the record upgrader for kind, writing it back unless dryRun. Absence is
// silent, a decode failure or other read error is logged and treated as
// "not upgraded", and the default from-version is always 99 for this
// family of files.
func upgradeDataFile(dimFolder, name string, kind convert.Kind, opts Options) {
	path := filepath.Join(dimFolder, "data", name+".dat")
	root, err := readDataFile(path)
	if err != nil {
		logDataFileReadError(opts.Logger, name, path, err)
		return
	}

	if !record.Upgrade(convert.For(kind), root, func() string { return name }, opts.ToVersion, 99, opts.Logger) {
		return
	}

	if !opts.DryRun {
		if err := writeDataFile(path, root); err != nil {
			opts.Logger.Error("failed to write data file", "name", name, "path", path, "error", err)
		}
	}
}

func logDataFileReadError(logger *slog.Logger, name, path string, err error) {
	switch {
	case os.IsNotExist(err):
		// optional file, not present: nothing to report
	case errors.Is(err, errUndecodable):
		logger.Error("failed to parse data file", "name", name, "path", path)
	default:
		logger.Error("failed to read data file", "name", name, "path", path, "error", err)
	}
}

func dataFileExists(dimFolder, name string) bool {
	_, err := os.Stat(filepath.Join(dimFolder, "data", name+".dat"))
	return err == nil
}
