// Package region implements the chunk-grid region container: a folder
// of `r.<x>.<z>.mca` files, each holding up to 32×32 chunks addressed by
// chunk coordinate, with a sector table at the head of each file and
// zlib-compressed chunk payloads.
package region

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Earthcomputer/world-transmuter-cli/internal/nbt"
)

// ShardBits is the log2 of the region file's chunk-grid width. Chunks
// sharing (chunkX>>ShardBits, chunkZ>>ShardBits) live in the same region
// file; the world driver's concurrent region-folder upgrader shards its
// work by exactly this quantity so two workers never touch the same file.
const ShardBits = 5

const (
	regionWidth  = 1 << ShardBits // 32
	sectorSize   = 4096
	headerBytes  = 2 * regionWidth * regionWidth * 4 // location table + timestamp table
	maxChunkSize = 32 << 20                          // sanity cap, not a format limit
)

// Pos is a chunk coordinate, in chunks (not regions), relative to the
// dimension's origin.
type Pos struct {
	X, Z int32
}

// ErrChunkNotFound is returned by GetChunk when the region file exists but
// has no data for the requested coordinate.
var ErrChunkNotFound = errors.New("region: chunk not found")

// Folder is one open handle onto a region folder: a directory containing
// zero or more `r.<x>.<z>.mca` files. A Folder is not safe for concurrent
// use from multiple goroutines; the migration driver's sharding guarantees
// each Folder instance only ever has one region file touched by one
// worker at a time.
type Folder struct {
	dir   string
	files map[regionCoord]*regionFile
}

type regionCoord struct{ X, Z int32 }

// Open returns a handle onto dir. The directory need not exist yet; it is
// created lazily on first write.
func Open(dir string) *Folder {
	return &Folder{dir: dir, files: make(map[regionCoord]*regionFile)}
}

// Close releases all file handles opened by this Folder.
func (f *Folder) Close() error {
	var firstErr error
	for _, rf := range f.files {
		if err := rf.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.files = make(map[regionCoord]*regionFile)
	return firstErr
}

// AllChunkPositions lists every chunk with data present in the folder. A
// missing directory is treated as "no chunks", not an error. numErrors
// counts individual region files that could not be read; those files
// simply contribute no positions.
func (f *Folder) AllChunkPositions() (positions []Pos, numErrors int) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0
		}
		return nil, 1
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rx, rz, ok := parseRegionFileName(entry.Name())
		if !ok {
			continue
		}
		rf, err := f.open(rx, rz, false)
		if err != nil {
			numErrors++
			continue
		}
		for lz := int32(0); lz < regionWidth; lz++ {
			for lx := int32(0); lx < regionWidth; lx++ {
				if rf.hasChunk(lx, lz) {
					positions = append(positions, Pos{X: rx*regionWidth + lx, Z: rz*regionWidth + lz})
				}
			}
		}
	}
	return positions, numErrors
}

// GetChunk reads the chunk at (x, z). ErrChunkNotFound is returned if the
// region file exists but has no data there.
func (f *Folder) GetChunk(x, z int32) (nbt.Compound, error) {
	rx, rz := x>>ShardBits, z>>ShardBits
	rf, err := f.open(rx, rz, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrChunkNotFound
		}
		return nil, err
	}
	lx, lz := mod(x, regionWidth), mod(z, regionWidth)
	if !rf.hasChunk(lx, lz) {
		return nil, ErrChunkNotFound
	}
	return rf.readChunk(lx, lz)
}

// SetChunk writes (or overwrites) the chunk at (x, z), creating the
// region folder and file on demand.
func (f *Folder) SetChunk(x, z int32, root nbt.Compound) error {
	rx, rz := x>>ShardBits, z>>ShardBits
	rf, err := f.open(rx, rz, true)
	if err != nil {
		return err
	}
	lx, lz := mod(x, regionWidth), mod(z, regionWidth)
	return rf.writeChunk(lx, lz, root)
}

func mod(v, m int32) int32 {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

func (f *Folder) open(rx, rz int32, create bool) (*regionFile, error) {
	key := regionCoord{rx, rz}
	if rf, ok := f.files[key]; ok {
		return rf, nil
	}

	path := filepath.Join(f.dir, regionFileName(rx, rz))
	flag := os.O_RDWR
	if create {
		if err := os.MkdirAll(f.dir, 0o755); err != nil {
			return nil, fmt.Errorf("region: create folder: %w", err)
		}
		flag |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}

	rf, err := loadRegionFile(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	f.files[key] = rf
	return rf, nil
}

func regionFileName(rx, rz int32) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

func parseRegionFileName(name string) (rx, rz int32, ok bool) {
	if !strings.HasPrefix(name, "r.") || !strings.HasSuffix(name, ".mca") {
		return 0, 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, "r."), ".mca")
	parts := strings.Split(middle, ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, err1 := strconv.ParseInt(parts[0], 10, 32)
	z, err2 := strconv.ParseInt(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return int32(x), int32(z), true
}

// regionFile is one open `.mca` file plus its in-memory location table.
type regionFile struct {
	file     *os.File
	location [regionWidth * regionWidth]uint32 // (sectorOffset<<8)|sectorCount, 0 = absent
	size     int64                             // current file size in bytes
}

func loadRegionFile(file *os.File) (*regionFile, error) {
	rf := &regionFile{file: file}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	rf.size = info.Size()

	if rf.size < headerBytes {
		return rf, nil // brand-new or truncated file: treat as empty
	}

	header := make([]byte, regionWidth*regionWidth*4)
	if _, err := file.ReadAt(header, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("region: read location table: %w", err)
	}
	for i := 0; i < regionWidth*regionWidth; i++ {
		rf.location[i] = binary.BigEndian.Uint32(header[i*4 : i*4+4])
	}
	return rf, nil
}

func index(lx, lz int32) int {
	return int(lz*regionWidth + lx)
}

func (rf *regionFile) hasChunk(lx, lz int32) bool {
	return rf.location[index(lx, lz)] != 0
}

func (rf *regionFile) readChunk(lx, lz int32) (nbt.Compound, error) {
	entry := rf.location[index(lx, lz)]
	offsetSectors := entry >> 8
	sectorCount := entry & 0xff
	if sectorCount == 0 {
		return nil, ErrChunkNotFound
	}

	buf := make([]byte, int64(sectorCount)*sectorSize)
	if _, err := rf.file.ReadAt(buf, int64(offsetSectors)*sectorSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("region: read chunk sectors: %w", err)
	}

	length := binary.BigEndian.Uint32(buf[:4])
	if length < 1 || int64(length) > int64(len(buf)-4) {
		return nil, fmt.Errorf("region: corrupt chunk length %d", length)
	}
	compressionType := buf[4]
	payload := buf[5 : 4+length]

	var plain []byte
	switch compressionType {
	case 1: // gzip
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: open compressed chunk: %w", err)
		}
		defer gr.Close()
		plain, err = io.ReadAll(io.LimitReader(gr, maxChunkSize))
		if err != nil {
			return nil, fmt.Errorf("region: decompress chunk: %w", err)
		}
	case 2: // zlib
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: open compressed chunk: %w", err)
		}
		defer zr.Close()
		plain, err = io.ReadAll(io.LimitReader(zr, maxChunkSize))
		if err != nil {
			return nil, fmt.Errorf("region: decompress chunk: %w", err)
		}
	case 3: // uncompressed
		plain = payload
	default:
		return nil, fmt.Errorf("region: unknown compression type %d", compressionType)
	}

	rec, err := nbt.Decode(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("region: decode chunk nbt: %w", err)
	}
	return rec.Root, nil
}

func (rf *regionFile) writeChunk(lx, lz int32, root nbt.Compound) error {
	var plain bytes.Buffer
	if err := nbt.Encode(&plain, nbt.NamedRecord{Root: root}); err != nil {
		return fmt.Errorf("region: encode chunk nbt: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain.Bytes()); err != nil {
		return fmt.Errorf("region: compress chunk: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("region: compress chunk: %w", err)
	}

	payload := compressed.Bytes()
	sectorCount := (5 + len(payload) + sectorSize - 1) / sectorSize
	if sectorCount > 0xff {
		return fmt.Errorf("region: chunk too large (%d sectors)", sectorCount)
	}

	if err := rf.ensureHeaderAllocated(); err != nil {
		return err
	}

	// Always append new sectors at EOF; previously occupied sectors for
	// this chunk (if any) are simply abandoned. This keeps the writer
	// single-pass and correct without a free-space allocator, which this
	// offline batch tool has no need for.
	offsetSectors := (rf.size + sectorSize - 1) / sectorSize
	if offsetSectors*sectorSize != rf.size {
		rf.size = offsetSectors * sectorSize
	}

	block := make([]byte, sectorCount*sectorSize)
	binary.BigEndian.PutUint32(block[:4], uint32(len(payload)+1))
	block[4] = 2 // zlib
	copy(block[5:], payload)

	if _, err := rf.file.WriteAt(block, rf.size); err != nil {
		return fmt.Errorf("region: write chunk sectors: %w", err)
	}
	rf.size += int64(len(block))

	entry := (uint32(offsetSectors) << 8) | uint32(sectorCount)
	rf.location[index(lx, lz)] = entry
	return rf.writeLocationEntry(lx, lz, entry)
}

func (rf *regionFile) ensureHeaderAllocated() error {
	if rf.size >= headerBytes {
		return nil
	}
	pad := make([]byte, headerBytes-rf.size)
	if _, err := rf.file.WriteAt(pad, rf.size); err != nil {
		return fmt.Errorf("region: allocate header: %w", err)
	}
	rf.size = headerBytes
	return nil
}

func (rf *regionFile) writeLocationEntry(lx, lz int32, entry uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], entry)
	off := int64(index(lx, lz)) * 4
	_, err := rf.file.WriteAt(buf[:], off)
	return err
}
