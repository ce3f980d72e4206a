package convert

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/usdstage"
)

// fakeSource is a minimal container.Source backed by an in-memory buffer,
// enough to drive Convert end to end without a real file on disk.
type fakeSource struct {
	doc []byte
	buf []byte
}

func (f *fakeSource) JSONText() ([]byte, error) { return f.doc, nil }
func (f *fakeSource) ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error) {
	return f.buf[start : start+limit], nil
}
func (f *fakeSource) ReadImage(uri, declaredMime string) ([]byte, container.MimeKind, error) {
	return nil, container.MimeUnknown, nil
}
func (f *fakeSource) IsInputPath(path string) bool               { return false }
func (f *fakeSource) WriteBinary(path string, data []byte) error { return nil }

var _ container.Source = (*fakeSource)(nil)

// recordingStage is a usdstage.Stage that just remembers what was staged,
// for assertions, without involving the USDA text writer.
type recordingStage struct {
	meshes    []string
	materials []string
	skeletons []string
	anims     []string
}

func (s *recordingStage) AddXform(path string, desc usdstage.XformDesc) error { return nil }
func (s *recordingStage) AddMesh(path string, desc usdstage.MeshDesc) error {
	s.meshes = append(s.meshes, path)
	return nil
}
func (s *recordingStage) AddSkeleton(path string, desc usdstage.SkeletonDesc) error {
	s.skeletons = append(s.skeletons, path)
	return nil
}
func (s *recordingStage) AddSkelAnimation(path string, desc usdstage.SkelAnimationDesc) error {
	s.anims = append(s.anims, path)
	return nil
}
func (s *recordingStage) AddMaterial(path string, desc usdstage.MaterialDesc) (string, error) {
	s.materials = append(s.materials, path)
	return path, nil
}
func (s *recordingStage) Save(path string) error { return nil }

var _ usdstage.Stage = (*recordingStage)(nil)

func float32LE(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func uint16LE(vs ...uint16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// buildTriangleDoc assembles a single rigid triangle (one node, one mesh,
// one primitive, POSITION + indices) into a minimal glTF JSON document and
// its matching binary buffer.
func buildTriangleDoc(t *testing.T) *fakeSource {
	t.Helper()

	positions := float32LE(
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	)
	// pad to a 4-byte boundary before the indices bufferView (already aligned here).
	indices := uint16LE(0, 1, 2)

	buf := append(append([]byte{}, positions...), indices...)

	doc := map[string]any{
		"asset": map[string]any{"version": "2.0"},
		"scene": 0,
		"scenes": []any{
			map[string]any{"nodes": []int{0}},
		},
		"nodes": []any{
			map[string]any{"mesh": 0},
		},
		"meshes": []any{
			map[string]any{
				"primitives": []any{
					map[string]any{
						"attributes": map[string]any{"POSITION": 0},
						"indices":    1,
						"material":   0,
					},
				},
			},
		},
		"materials": []any{
			map[string]any{
				"pbrMetallicRoughness": map[string]any{
					"baseColorFactor": []float64{1, 1, 1, 1},
				},
			},
		},
		"accessors": []any{
			map[string]any{
				"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
			},
			map[string]any{
				"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR",
			},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": len(positions)},
			map[string]any{"buffer": 0, "byteOffset": len(positions), "byteLength": len(indices)},
		},
		"buffers": []any{
			map[string]any{"byteLength": len(buf)},
		},
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal synthetic document: %v", err)
	}
	return &fakeSource{doc: jsonBytes, buf: buf}
}

func TestConvertRigidTriangleProducesOneMeshAndMaterial(t *testing.T) {
	src := buildTriangleDoc(t)
	stage := &recordingStage{}

	log, err := Convert(src, stage)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if log.Errored() {
		t.Fatalf("Convert reported an error-severity diagnostic")
	}
	if len(stage.meshes) != 1 {
		t.Fatalf("meshes = %v, want exactly one", stage.meshes)
	}
	if len(stage.materials) != 1 {
		t.Fatalf("materials = %v, want exactly one", stage.materials)
	}
	if len(stage.skeletons) != 0 {
		t.Fatalf("skeletons = %v, want none for a rigid-only asset", stage.skeletons)
	}
}

func TestSanitizeUSDNameReplacesInvalidCharacters(t *testing.T) {
	cases := map[string]string{
		"Cube.001":  "Cube_001",
		"1leading":  "_1leading",
		"plain":     "plain",
		"":          "_",
		"a/b c-d.e": "a_b_c_d_e",
	}
	for in, want := range cases {
		if got := sanitizeUSDName(in); got != want {
			t.Errorf("sanitizeUSDName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWorldDeterminantNegativeDetectsMirrorScale(t *testing.T) {
	pos := mgl32.Scale3D(1, 1, 1)
	if worldDeterminantNegative(pos) {
		t.Errorf("uniform positive scale reported as negative determinant")
	}
	mirrored := mgl32.Scale3D(-1, 1, 1)
	if !worldDeterminantNegative(mirrored) {
		t.Errorf("single-axis mirror not detected as negative determinant")
	}
}
