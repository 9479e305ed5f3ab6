package world

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
	"github.com/Earthcomputer/world-transmuter-cli/internal/region"
)

// chunkHook is the region-folder upgrader's per-chunk callback: given
// the chunk's coordinate, its record, and the worker's private state, it
// mutates root in place and reports whether the chunk should be written
// back.
type chunkHook[S any] func(chunkX, chunkZ int32, root nbt.Compound, state *S) bool

// upgradeRegions walks one region folder: enumerate the chunks present,
// shard them by region file, process shards concurrently with a
// per-worker region handle and per-worker auxiliary state, and write
// back the chunks the hook approves. The sharding guarantees no two
// workers ever touch the same region file.
func upgradeRegions[S any](regionsDir string, opts Options, hook chunkHook[S], initState func() *S, closeState func(*S)) {
	lister := region.Open(regionsDir)
	positions, numListErrors := lister.AllChunkPositions()
	lister.Close()
	if numListErrors > 0 {
		opts.Logger.Error("errors listing chunks", "count", numListErrors)
	}

	shards := make(map[shardKey][]region.Pos)
	for _, pos := range positions {
		key := shardKey{pos.X >> region.ShardBits, pos.Z >> region.ShardBits}
		shards[key] = append(shards[key], pos)
	}

	var numErrors atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, chunks := range shards {
		chunks := chunks
		g.Go(func() error {
			folder := region.Open(regionsDir)
			defer folder.Close()
			state := initState()
			if closeState != nil {
				defer closeState(state)
			}

			for _, pos := range chunks {
				root, err := folder.GetChunk(pos.X, pos.Z)
				if err != nil {
					if err != region.ErrChunkNotFound {
						opts.Logger.Error("error reading chunk", "x", pos.X, "z", pos.Z, "error", err)
					}
					numErrors.Add(1)
					continue
				}

				if hook(pos.X, pos.Z, root, state) && !opts.DryRun {
					if err := folder.SetChunk(pos.X, pos.Z, root); err != nil {
						opts.Logger.Error("error writing chunk", "x", pos.X, "z", pos.Z, "error", err)
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := numErrors.Load(); n > 0 {
		opts.Logger.Error("encountered errors while upgrading chunks", "count", n)
	}
}

type shardKey struct{ X, Z int32 }
