// Package record implements the record upgrader: the one piece of state
// machine shared by every artifact kind. It knows nothing about any
// particular record's shape; it only knows how to read a DataVersion,
// refuse a downgrade, hand off to the caller-selected type converter,
// and stamp the result.
package record

import (
	"log/slog"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/version"
)

// Converter is the external type-conversion collaborator's signature:
// it mutates root in place, advancing it from fromID to toID.
type Converter func(root nbt.Compound, fromID, toID uint32)

// Upgrade runs one record through the shared upgrade sequence:
//
//  1. remove DataVersion, interpreting it as unsigned 32-bit (default if
//     absent);
//  2. resolve it against the version catalog, refusing an unknown version;
//  3. refuse a downgrade (fromID > toVersion);
//  4. invoke the converter returned by selectConverter and stamp
//     DataVersion = toVersion.
//
// Upgrade reports whether the record was actually converted. On a false
// return the record has had DataVersion removed in memory but the caller
// must not persist it — the on-disk bytes must stay byte-identical for a
// record this upgrader declines to touch.
func Upgrade(
	selectConverter func() Converter,
	root nbt.Compound,
	name func() string,
	toVersion uint32,
	defaultFromVersion uint32,
	logger *slog.Logger,
) bool {
	fromVersion := defaultFromVersion
	if v, ok := root.GetInt32("DataVersion"); ok {
		fromVersion = uint32(v)
	}
	delete(root, "DataVersion")

	if _, ok := version.LookupByID(fromVersion); !ok {
		logger.Warn("unknown version", "event", "UnknownVersion", "name", name(), "dataVersion", fromVersion)
		return false
	}

	if fromVersion > toVersion {
		logger.Warn("cannot downgrade", "event", "DowngradeRefused", "name", name(), "from", fromVersion, "to", toVersion)
		return false
	}

	convert := selectConverter()
	convert(root, fromVersion, toVersion)
	root["DataVersion"] = nbt.Int(toVersion)
	return true
}
