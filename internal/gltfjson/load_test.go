package gltfjson

import (
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/diag"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

const minimalDoc = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"nodes": [0]}],
	"nodes": [{"name": "root", "mesh": 0}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "mode": 4}]}],
	"accessors": [{"componentType": 5126, "count": 3, "type": "VEC3"}]
}`

func TestLoadMinimalDocument(t *testing.T) {
	doc, err := Load([]byte(minimalDoc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.DefaultScene != 0 {
		t.Errorf("DefaultScene = %d, want 0", doc.DefaultScene)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Name != "root" {
		t.Fatalf("Nodes = %+v, want one node named root", doc.Nodes)
	}
	if doc.Nodes[0].Mesh != 0 {
		t.Errorf("Nodes[0].Mesh = %d, want 0", doc.Nodes[0].Mesh)
	}
	if doc.Meshes[0].Primitives[0].Mode != gltfasset.ModeTriangles {
		t.Errorf("Primitives[0].Mode = %v, want ModeTriangles", doc.Meshes[0].Primitives[0].Mode)
	}
}

func TestLoadRejectsNonV2(t *testing.T) {
	_, err := Load([]byte(`{"asset": {"version": "1.0"}}`), nil)
	if err == nil {
		t.Fatal("Load with asset.version=1.0: want error, got nil")
	}
}

func TestLoadNodeDefaults(t *testing.T) {
	doc, err := Load([]byte(`{"asset":{"version":"2.0"},"nodes":[{}]}`), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n := doc.Nodes[0]
	if n.Scale != [3]float32{1, 1, 1} {
		t.Errorf("default Scale = %v, want {1,1,1}", n.Scale)
	}
	if n.Rotation != [4]float32{0, 0, 0, 1} {
		t.Errorf("default Rotation = %v, want identity quaternion", n.Rotation)
	}
	if n.Mesh != gltfasset.NullIndex {
		t.Errorf("default Mesh = %v, want NullIndex", n.Mesh)
	}
}

func TestLoadUnrecognizedAlphaModeFallsBackToOpaque(t *testing.T) {
	const doc = `{"asset":{"version":"2.0"},"materials":[{"alphaMode":"BOGUS"}]}`
	log := diag.New(nil, "")
	out, err := Load([]byte(doc), log)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Materials[0].AlphaMode != gltfasset.AlphaOpaque {
		t.Errorf("AlphaMode = %v, want OPAQUE fallback", out.Materials[0].AlphaMode)
	}
}

func TestLoadMaterialDefaultsPbr(t *testing.T) {
	doc, err := Load([]byte(`{"asset":{"version":"2.0"},"materials":[{}]}`), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pmr := doc.Materials[0].PbrMetallicRoughness
	if pmr == nil {
		t.Fatal("PbrMetallicRoughness = nil, want defaulted struct")
	}
	if pmr.BaseColorFactor != [4]float32{1, 1, 1, 1} {
		t.Errorf("BaseColorFactor = %v, want opaque white", pmr.BaseColorFactor)
	}
	if pmr.MetallicFactor != 1 || pmr.RoughnessFactor != 1 {
		t.Errorf("MetallicFactor/RoughnessFactor = %v/%v, want 1/1", pmr.MetallicFactor, pmr.RoughnessFactor)
	}
}
