package access

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

// fakeSource serves a single synthetic buffer regardless of buffer index,
// enough to exercise Cache without a real container.Source implementation.
type fakeSource struct{ data []byte }

func (f fakeSource) JSONText() ([]byte, error) { return nil, nil }
func (f fakeSource) ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error) {
	return f.data[start : start+limit], nil
}
func (f fakeSource) ReadImage(uri, declaredMime string) ([]byte, container.MimeKind, error) {
	return nil, container.MimeUnknown, nil
}
func (f fakeSource) IsInputPath(path string) bool               { return false }
func (f fakeSource) WriteBinary(path string, data []byte) error { return nil }

var _ container.Source = fakeSource{}

func float32Bytes(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestVec3Dense(t *testing.T) {
	data := float32Bytes(1, 2, 3, 4, 5, 6)
	doc := &gltfasset.Document{
		Buffers:     []gltfasset.Buffer{{ByteLength: len(data)}},
		BufferViews: []gltfasset.BufferView{{Buffer: 0, ByteLength: len(data)}},
		Accessors: []gltfasset.Accessor{
			{BufferView: 0, ComponentType: gltfasset.ComponentFloat, Count: 2, Type: gltfasset.TypeVec3},
		},
	}
	c := New(doc, fakeSource{data})
	got, err := c.Vec3(0)
	if err != nil {
		t.Fatalf("Vec3: %v", err)
	}
	want := [][3]float32{{1, 2, 3}, {4, 5, 6}}
	if got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Vec3 = %v, want %v", got, want)
	}
}

func TestNormalizedUnsignedByte(t *testing.T) {
	doc := &gltfasset.Document{
		Buffers:     []gltfasset.Buffer{{ByteLength: 4}},
		BufferViews: []gltfasset.BufferView{{Buffer: 0, ByteLength: 4}},
		Accessors: []gltfasset.Accessor{
			{BufferView: 0, ComponentType: gltfasset.ComponentUnsignedByte, Normalized: true, Count: 4, Type: gltfasset.TypeScalar},
		},
	}
	c := New(doc, fakeSource{[]byte{0, 127, 255, 64}})
	got, err := c.Scalar(0)
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	want := []float32{0, 127.0 / 255.0, 1.0, 64.0 / 255.0}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Scalar[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNormalizedSignedByte(t *testing.T) {
	doc := &gltfasset.Document{
		Buffers:     []gltfasset.Buffer{{ByteLength: 4}},
		BufferViews: []gltfasset.BufferView{{Buffer: 0, ByteLength: 4}},
		Accessors: []gltfasset.Accessor{
			{BufferView: 0, ComponentType: gltfasset.ComponentByte, Normalized: true, Count: 4, Type: gltfasset.TypeScalar},
		},
	}
	// raw bytes as int8: 0, 127, -128, -1
	c := New(doc, fakeSource{[]byte{0, 127, 0x80, 0xFF}})
	got, err := c.Scalar(0)
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	want := []float32{
		0*(2.0/255.0) + (1.0 / 255.0),
		127*(2.0/255.0) + (1.0 / 255.0),
		-128*(2.0/255.0) + (1.0 / 255.0),
		-1*(2.0/255.0) + (1.0 / 255.0),
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Scalar[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSparseOverride(t *testing.T) {
	base := float32Bytes(0, 0, 0)
	valData := float32Bytes(9)
	idxData := []byte{1, 0} // uint16 index 1
	buf := append(append([]byte{}, base...), append(idxData, valData...)...)
	doc := &gltfasset.Document{
		Buffers: []gltfasset.Buffer{{ByteLength: len(buf)}},
		BufferViews: []gltfasset.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: len(base)},
			{Buffer: 0, ByteOffset: len(base), ByteLength: len(idxData)},
			{Buffer: 0, ByteOffset: len(base) + len(idxData), ByteLength: len(valData)},
		},
		Accessors: []gltfasset.Accessor{
			{
				BufferView: 0, ComponentType: gltfasset.ComponentFloat, Count: 3, Type: gltfasset.TypeScalar,
				Sparse: &gltfasset.AccessorSparse{
					Count: 1, IndicesView: 1, IndicesType: gltfasset.ComponentUnsignedShort,
					ValuesView: 2,
				},
			},
		},
	}
	c := New(doc, fakeSource{buf})
	got, err := c.Scalar(0)
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	want := []float32{0, 9, 0}
	if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("Scalar (sparse) = %v, want %v", got, want)
	}
}

func TestIndicesUnsignedByte(t *testing.T) {
	doc := &gltfasset.Document{
		Buffers:     []gltfasset.Buffer{{ByteLength: 3}},
		BufferViews: []gltfasset.BufferView{{Buffer: 0, ByteLength: 3}},
		Accessors: []gltfasset.Accessor{
			{BufferView: 0, ComponentType: gltfasset.ComponentUnsignedByte, Count: 3, Type: gltfasset.TypeScalar},
		},
	}
	c := New(doc, fakeSource{[]byte{2, 0, 1}})
	got, err := c.Indices(0)
	if err != nil {
		t.Fatalf("Indices: %v", err)
	}
	want := []uint32{2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
