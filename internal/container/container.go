// Package container implements the two concrete glTF input streams (plain
// on-disk glTF+resources, and GLB) behind one capability interface, plus
// data-URI decoding and path sanitization. Grounded on
// engine/loader/gltf_parser.go's Parse/parseGLB/loadDataURI, generalized to
// the capability-set design spec.md §9 recommends in place of the source's
// inheritance hierarchy (disk/GLB/memory stream subclasses).
package container

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

// MimeKind is the small enum data URIs and glTF images decode their MIME
// string into (spec.md §4.1 "Data URIs").
type MimeKind int

const (
	MimeUnknown MimeKind = iota
	MimeJPEG
	MimePNG
	MimeBMP
	MimeGIF
	MimeOther // "image/*" not otherwise recognized
)

var mimeTable = map[string]MimeKind{
	"image/jpeg": MimeJPEG,
	"image/jpg":  MimeJPEG,
	"image/png":  MimePNG,
	"image/bmp":  MimeBMP,
	"image/gif":  MimeGIF,
}

// ClassifyMime maps a MIME string to the closed enum, falling back to
// MimeOther for any other "image/*" token and MimeUnknown otherwise.
func ClassifyMime(mime string) MimeKind {
	if k, ok := mimeTable[strings.ToLower(mime)]; ok {
		return k
	}
	if strings.HasPrefix(mime, "image/") {
		return MimeOther
	}
	return MimeUnknown
}

// Source is the uniform read surface both concrete readers (disk, GLB)
// satisfy, per spec.md §4.1. Buffer/image payloads are served by ID; the
// container does not interpret them.
type Source interface {
	// JSONText returns the glTF JSON document bytes.
	JSONText() ([]byte, error)

	// ReadBuffer returns start..start+limit of the numbered buffer, resolving
	// external files, embedded data URIs, or the GLB BIN chunk as needed.
	ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error)

	// ReadImage returns the raw bytes and MIME kind for an image source,
	// either a URI (possibly data:) or empty (caller resolves a bufferView).
	ReadImage(uri string, declaredMime string) ([]byte, MimeKind, error)

	// IsInputPath reports whether path names one of this source's own input
	// files, so the writer can avoid clobbering inputs in place.
	IsInputPath(path string) bool

	// WriteBinary writes raw bytes (e.g. a re-encoded/extracted texture) to
	// path, sanitizing reserved characters first.
	WriteBinary(path string, data []byte) error
}

var (
	ErrInvalidGLBMagic   = errors.New("container: invalid GLB magic number")
	ErrInvalidGLBVersion = errors.New("container: unsupported GLB version")
	ErrMissingJSONChunk  = errors.New("container: GLB file has no JSON chunk")
	ErrInvalidDataURI    = errors.New("container: malformed data URI")
)

// reservedPathChars are replaced with '_' before a retry lookup, per
// spec.md §4.1 "Path sanitization".
const reservedPathChars = `<>:"|?*`

// SanitizePath replaces reserved filesystem characters with '_'.
func SanitizePath(p string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedPathChars, r) {
			return '_'
		}
		return r
	}, p)
}

// openResource opens path, retrying with the sanitized form if the original
// is not found. Diagnostics (only the unsanitized name) are the caller's
// responsibility; this just supplies the bytes.
func openResource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	sanitized := SanitizePath(path)
	if sanitized == path {
		return nil, err
	}
	data2, err2 := os.ReadFile(sanitized)
	if err2 != nil {
		return nil, err
	}
	return data2, nil
}

// DataURI decodes a "data:<mime>;base64,<content>" URI. Base-64 padding is
// standard; any byte outside the base64 alphabet (besides '=' padding) is an
// error, matching spec.md §8's Base-64 boundary behaviors.
func DataURI(uri string) (data []byte, mime string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", ErrInvalidDataURI
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", ErrInvalidDataURI
	}
	header := uri[len("data:"):comma]
	payload := uri[comma+1:]

	parts := strings.Split(header, ";")
	mime = parts[0]
	isBase64 := false
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, mime, fmt.Errorf("%w: non-base64 data URI unsupported", ErrInvalidDataURI)
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, mime, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return decoded, mime, nil
}

// --- Disk source ---

// Disk is a Source backed by a loose .gltf file plus sibling resource files.
type Disk struct {
	baseDir  string
	jsonPath string
}

// NewDisk opens a plain glTF file; resource URIs resolve relative to its
// directory.
func NewDisk(path string) *Disk {
	return &Disk{baseDir: filepath.Dir(path), jsonPath: path}
}

func (d *Disk) JSONText() ([]byte, error) {
	return openResource(d.jsonPath)
}

func (d *Disk) ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error) {
	data, err := d.readBufferURI(uri)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", bufferIndex, err)
	}
	return slice(data, start, limit)
}

func (d *Disk) readBufferURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := DataURI(uri)
		return data, err
	}
	return openResource(filepath.Join(d.baseDir, uri))
}

func (d *Disk) ReadImage(uri string, declaredMime string) ([]byte, MimeKind, error) {
	if strings.HasPrefix(uri, "data:") {
		data, mime, err := DataURI(uri)
		if err != nil {
			return nil, MimeUnknown, err
		}
		return data, ClassifyMime(mime), nil
	}
	data, err := openResource(filepath.Join(d.baseDir, uri))
	if err != nil {
		return nil, MimeUnknown, err
	}
	return data, ClassifyMime(declaredMime), nil
}

func (d *Disk) IsInputPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	jsonAbs, _ := filepath.Abs(d.jsonPath)
	if abs == jsonAbs {
		return true
	}
	dirAbs, _ := filepath.Abs(d.baseDir)
	rel, err := filepath.Rel(dirAbs, abs)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func (d *Disk) WriteBinary(path string, data []byte) error {
	return os.WriteFile(SanitizePath(path), data, 0o644)
}

// --- GLB source ---

// GLB is a Source backed by a single .glb container: a 12-byte header
// followed by length-prefixed chunks. Grounded on
// engine/loader/gltf_parser.go's parseGLB, generalized behind Source so the
// orchestrator never branches on container kind.
type GLB struct {
	baseDir  string
	path     string
	jsonData []byte
	binChunk []byte
}

// OpenGLB reads and frames a .glb file (or in-memory GLB bytes via
// OpenGLBBytes). External resource URIs, if any, resolve relative to dir.
func OpenGLB(path string) (*GLB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := OpenGLBBytes(data)
	if err != nil {
		return nil, err
	}
	g.baseDir = filepath.Dir(path)
	g.path = path
	return g, nil
}

// OpenGLBBytes frames an in-memory GLB buffer (e.g. read from a network
// stream); external buffer/image URIs, if any, cannot be resolved.
func OpenGLBBytes(data []byte) (*GLB, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("container: GLB file too small (%d bytes)", len(data))
	}
	r := bytes.NewReader(data)
	var magic, version, length uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != gltfasset.GLBMagic {
		return nil, ErrInvalidGLBMagic
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != gltfasset.GLBVersion {
		return nil, ErrInvalidGLBVersion
	}
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}

	g := &GLB{}
	first := true
	for {
		var chunkLen, chunkType uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("container: reading chunk header: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkType); err != nil {
			return nil, fmt.Errorf("container: reading chunk type: %w", err)
		}
		payload := make([]byte, chunkLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("container: reading chunk payload: %w", err)
		}

		switch {
		case chunkType == gltfasset.GLBChunkJSON && first:
			g.jsonData = payload
		case chunkType == gltfasset.GLBChunkJSON:
			// Non-first JSON chunk: discarded; no diagnostic is emitted.
		case chunkType == gltfasset.GLBChunkBIN:
			g.binChunk = payload
		default:
			// Unknown chunk type: skipped; no diagnostic is emitted.
		}
		first = false
	}

	if g.jsonData == nil {
		return nil, ErrMissingJSONChunk
	}
	return g, nil
}

func (g *GLB) JSONText() ([]byte, error) {
	return g.jsonData, nil
}

func (g *GLB) ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error) {
	if uri == "" {
		if bufferIndex != 0 {
			return nil, fmt.Errorf("buffer %d: no URI and not the GLB BIN chunk", bufferIndex)
		}
		return slice(g.binChunk, start, limit)
	}
	if strings.HasPrefix(uri, "data:") {
		data, _, err := DataURI(uri)
		if err != nil {
			return nil, err
		}
		return slice(data, start, limit)
	}
	if g.baseDir == "" {
		return nil, fmt.Errorf("buffer %d: external URI %q unresolvable without a base directory", bufferIndex, uri)
	}
	data, err := openResource(filepath.Join(g.baseDir, uri))
	if err != nil {
		return nil, err
	}
	return slice(data, start, limit)
}

func (g *GLB) ReadImage(uri string, declaredMime string) ([]byte, MimeKind, error) {
	if uri == "" {
		return nil, ClassifyMime(declaredMime), fmt.Errorf("container: image has no URI; resolve via bufferView instead")
	}
	if strings.HasPrefix(uri, "data:") {
		data, mime, err := DataURI(uri)
		if err != nil {
			return nil, MimeUnknown, err
		}
		return data, ClassifyMime(mime), nil
	}
	if g.baseDir == "" {
		return nil, MimeUnknown, fmt.Errorf("container: external image URI %q unresolvable without a base directory", uri)
	}
	data, err := openResource(filepath.Join(g.baseDir, uri))
	if err != nil {
		return nil, MimeUnknown, err
	}
	return data, ClassifyMime(declaredMime), nil
}

func (g *GLB) IsInputPath(path string) bool {
	if g.path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	pathAbs, _ := filepath.Abs(g.path)
	return err == nil && abs == pathAbs
}

func (g *GLB) WriteBinary(path string, data []byte) error {
	return os.WriteFile(SanitizePath(path), data, 0o644)
}

func slice(data []byte, start, limit int) ([]byte, error) {
	end := start + limit
	if start < 0 || end > len(data) || start > end {
		return nil, fmt.Errorf("container: requested range [%d:%d] exceeds buffer of length %d", start, end, len(data))
	}
	return data[start:end], nil
}
