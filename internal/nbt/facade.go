package nbt

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = [2]byte{0x1f, 0x8b}

// ReadNamedRecord reads a .dat-style file, auto-detecting gzip framing by
// peeking the first two bytes. Returns (zero, false, nil) on a decode
// failure so callers can distinguish "file absent" (os.IsNotExist) from
// "file present but undecodable" (zero record, false, nil error).
func ReadNamedRecord(path string) (NamedRecord, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NamedRecord{}, false, err
	}

	var body []byte
	if len(raw) >= 2 && raw[0] == gzipMagic[0] && raw[1] == gzipMagic[1] {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return NamedRecord{}, false, nil
		}
		defer gr.Close()
		body, err = io.ReadAll(gr)
		if err != nil {
			return NamedRecord{}, false, nil
		}
	} else {
		body = raw
	}

	rec, err := Decode(bytes.NewReader(body))
	if err != nil {
		return NamedRecord{}, false, nil
	}
	return rec, true, nil
}

// WriteNamedRecord always gzip-wraps the record. Compression level is
// fixed so that repeated encodes of the same logical content are
// byte-identical.
func WriteNamedRecord(path string, rec NamedRecord) error {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("nbt: create gzip writer: %w", err)
	}
	if err := Encode(gw, rec); err != nil {
		return fmt.Errorf("nbt: encode record: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("nbt: close gzip writer: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
