// Package usdz packages a USD layer and its referenced assets (textures,
// additional layers) into a USDZ archive: an uncompressed ZIP with every
// entry's payload starting on a 64-byte boundary, which is what lets
// consumers mmap the archive and hand entries straight to USD/image
// decoders without a copy. Grounded on the publicly documented USDZ
// packaging constraint (store-only, 64-byte-aligned payloads) rather than
// any file in the example pack, since none of the retrieved repos link a
// USD toolchain; stdlib archive/zip's raw-writer path (`CreateRaw`, added
// for exactly this kind of byte-exact packaging) is used instead of a
// bespoke zip encoder so the local/central-directory records themselves
// stay spec-correct, with this package only responsible for the alignment
// padding USDZ adds on top.
package usdz

import (
	"archive/zip"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Entry is one file to add to the archive: Name is the in-archive path
// (forward-slash separated), Data its raw bytes.
type Entry struct {
	Name string
	Data []byte
}

const alignment = 64

// zipLocalHeaderFixedSize is the fixed portion of a ZIP local file header
// (signature, version, flags, method, time, date, crc32, two sizes, name
// length, extra length), per PKWARE's APPNOTE.TXT §4.3.7 — used to compute
// how much Extra padding makes this entry's payload start 64-byte aligned.
const zipLocalHeaderFixedSize = 30

// Write packages entries into a USDZ archive at path. The first entry is
// conventionally the root USD layer (spec.md §6's saved .usda/.usdc), but
// Write itself is agnostic to ordering beyond what the caller supplies.
func Write(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("usdz: create %s: %w", path, err)
	}
	if err := WriteTo(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo packages entries into w, the same as Write but against an
// arbitrary io.Writer (used by tests, and by callers assembling the
// archive in memory before a final copy).
func WriteTo(w io.Writer, entries []Entry) error {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, e := range entries {
		// zip.Writer buffers its output; flush so cw.n is the offset at
		// which this entry's local header starts.
		if err := zw.Flush(); err != nil {
			return fmt.Errorf("usdz: flush before %s: %w", e.Name, err)
		}
		headerSize := zipLocalHeaderFixedSize + len(e.Name)
		dataStart := cw.n + int64(headerSize)
		pad := int((alignment - (dataStart % alignment)) % alignment)

		hdr := &zip.FileHeader{
			Name:               e.Name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(e.Data),
			CompressedSize64:   uint64(len(e.Data)),
			UncompressedSize64: uint64(len(e.Data)),
		}
		if pad > 0 {
			hdr.Extra = make([]byte, pad)
		}

		fw, err := zw.CreateRaw(hdr)
		if err != nil {
			return fmt.Errorf("usdz: write header for %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("usdz: write data for %s: %w", e.Name, err)
		}
	}

	return zw.Close()
}

// countingWriter tracks how many bytes have been flushed to w, the only
// way to learn a future entry's file offset since zip.Writer doesn't
// expose it directly.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
