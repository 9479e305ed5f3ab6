// Package version implements the version catalog: a mapping between
// version names and numeric DataVersion ids, classified as release or
// snapshot. The migration driver depends only on the three lookups
// below; this package's catalog.go is the one place that would need
// updating to track a newer game version.
package version

import "fmt"

// Classification distinguishes a stable release from a pre-release or
// development snapshot. The CLI refuses to target a snapshot unless
// -s/--allow-snapshots is given.
type Classification int

const (
	Release Classification = iota
	Snapshot
)

func (c Classification) String() string {
	if c == Snapshot {
		return "snapshot"
	}
	return "release"
}

// Entry is one row of the catalog.
type Entry struct {
	ID             uint32
	Name           string
	Classification Classification
}

// catalog is deliberately a literal table, not a generated one; it is
// sorted by ID for readability (lookup is by map, not position).
var catalog = []Entry{
	{99, "15w32a", Snapshot},
	{169, "15w34d", Snapshot},
	{184, "1.9", Release},
	{510, "1.11", Release},
	{819, "1.12", Release},
	{1139, "17w13a", Snapshot},
	{1343, "1.12.2", Release},
	{1400, "17w47a", Snapshot},
	{1493, "18w20c", Snapshot},
	{1631, "1.13", Release},
	{1912, "18w47a", Snapshot},
	{1937, "19w11a", Snapshot},
	{1952, "1.14", Release},
	{2230, "1.15", Release},
	{2500, "1.16.1", Release},
	{2554, "20w21a", Snapshot},
	{2586, "1.16.2", Release},
	{2681, "20w45a", Snapshot},
	{2724, "1.16.5", Release},
	{2730, "21w03a", Snapshot},
	{2844, "1.17", Release},
	{2865, "1.17.1", Release},
	{2972, "1.18.2-pre2", Snapshot},
	{2975, "1.18.2", Release},
	{3105, "1.18.2-rc1", Snapshot},
	{3120, "1.19", Release},
	{3218, "1.19.2", Release},
	{3337, "1.19.4", Release},
	{3465, "1.20", Release},
	{3578, "1.20.2", Release},
	{3698, "1.20.3", Release},
	{3700, "1.20.4", Release},
}

var (
	byID   = make(map[uint32]Entry, len(catalog))
	byName = make(map[string]Entry, len(catalog))
	latest Entry
)

func init() {
	for _, e := range catalog {
		if existing, ok := byID[e.ID]; ok {
			panic(fmt.Sprintf("version: duplicate id %d (%q and %q)", e.ID, existing.Name, e.Name))
		}
		if existing, ok := byName[e.Name]; ok {
			panic(fmt.Sprintf("version: duplicate name %q (ids %d and %d)", e.Name, existing.ID, e.ID))
		}
		byID[e.ID] = e
		byName[e.Name] = e
		if e.ID > latest.ID {
			latest = e
		}
	}
}

// LookupByID returns the catalog entry for a numeric DataVersion, if known.
func LookupByID(id uint32) (Entry, bool) {
	e, ok := byID[id]
	return e, ok
}

// LookupByName returns the catalog entry for a version name, if known.
func LookupByName(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Latest returns the highest-id entry in the catalog.
func Latest() Entry {
	return latest
}
