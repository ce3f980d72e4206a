package usdz

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestWriteToAlignsEveryEntryTo64Bytes(t *testing.T) {
	entries := []Entry{
		{Name: "asset.usda", Data: []byte("#usda 1.0\n")},
		{Name: "textures/a.png", Data: bytes.Repeat([]byte{0xAB}, 137)},
		{Name: "textures/b.jpg", Data: bytes.Repeat([]byte{0xCD}, 5000)},
	}

	var buf bytes.Buffer
	if err := WriteTo(&buf, entries); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != len(entries) {
		t.Fatalf("got %d files, want %d", len(zr.File), len(entries))
	}
	for i, f := range zr.File {
		off, err := f.DataOffset()
		if err != nil {
			t.Fatalf("DataOffset(%s): %v", f.Name, err)
		}
		if off%64 != 0 {
			t.Errorf("entry %d (%s) data offset %d not 64-byte aligned", i, f.Name, off)
		}
		if f.Method != zip.Store {
			t.Errorf("entry %d (%s) method = %d, want Store", i, f.Name, f.Method)
		}

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open(%s): %v", f.Name, err)
		}
		var got bytes.Buffer
		if _, err := got.ReadFrom(rc); err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		rc.Close()
		if !bytes.Equal(got.Bytes(), entries[i].Data) {
			t.Errorf("entry %d (%s) round-tripped data mismatch", i, f.Name)
		}
	}
}

func TestWriteToEmptyEntriesProducesValidArchive(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, nil); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 0 {
		t.Errorf("got %d files, want 0", len(zr.File))
	}
}
