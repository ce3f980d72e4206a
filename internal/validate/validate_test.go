package validate

import (
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/diag"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

type noopSource struct{}

func (noopSource) JSONText() ([]byte, error) { return nil, nil }
func (noopSource) ReadBuffer(uri string, bufferIndex int, start, limit int) ([]byte, error) {
	return make([]byte, limit), nil
}
func (noopSource) ReadImage(uri, declaredMime string) ([]byte, container.MimeKind, error) {
	return []byte{1}, container.MimeOther, nil
}
func (noopSource) IsInputPath(path string) bool               { return false }
func (noopSource) WriteBinary(path string, data []byte) error { return nil }

func TestValidateDetectsOutOfRangeMeshIndex(t *testing.T) {
	doc := &gltfasset.Document{
		Nodes: []gltfasset.Node{{Mesh: 5}},
	}
	log := diag.New(nil, "")
	if err := Validate(doc, noopSource{}, log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !log.Errored() {
		t.Error("Validate: want an Error diagnostic for out-of-range mesh index")
	}
}

func TestValidateDetectsCycle(t *testing.T) {
	doc := &gltfasset.Document{
		Nodes: []gltfasset.Node{
			{Children: []gltfasset.Index{1}},
			{Children: []gltfasset.Index{0}},
		},
	}
	log := diag.New(nil, "")
	if err := Validate(doc, noopSource{}, log); err == nil {
		t.Fatal("Validate: want error for cyclic node graph, got nil")
	}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	doc := &gltfasset.Document{
		Nodes: []gltfasset.Node{
			{Mesh: 0, Skin: gltfasset.NullIndex, Children: []gltfasset.Index{1}},
			{Mesh: gltfasset.NullIndex, Skin: gltfasset.NullIndex},
		},
		Meshes: []gltfasset.Mesh{{Primitives: []gltfasset.Primitive{{
			Attributes: map[string]gltfasset.Index{"POSITION": 0},
			Material:   gltfasset.NullIndex,
			Mode:       gltfasset.ModeTriangles,
		}}}},
		Accessors: []gltfasset.Accessor{
			{ComponentType: gltfasset.ComponentFloat, Count: 3, Type: gltfasset.TypeVec3},
		},
	}
	log := diag.New(nil, "")
	if err := Validate(doc, noopSource{}, log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if log.Errored() {
		t.Error("Validate: well-formed document should not produce Error diagnostics")
	}
}

func TestValidateDuplicateAnimationChannel(t *testing.T) {
	doc := &gltfasset.Document{
		Nodes: []gltfasset.Node{{}},
		Animations: []gltfasset.Animation{{
			Channels: []gltfasset.AnimChannel{
				{Sampler: 0, Target: gltfasset.AnimTarget{Node: 0, Path: gltfasset.PathTranslation}},
				{Sampler: 1, Target: gltfasset.AnimTarget{Node: 0, Path: gltfasset.PathTranslation}},
			},
			Samplers: []gltfasset.AnimSampler{{}, {}},
		}},
	}
	log := diag.New(nil, "")
	if err := Validate(doc, noopSource{}, log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !log.Errored() {
		t.Error("Validate: want Error diagnostic for duplicate (node, path) channel")
	}
}
