package meshbuild

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/xform"
)

func TestExpandFanPivotsOnVertexZero(t *testing.T) {
	got := expandFan([]uint32{0, 1, 2, 3})
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expandFan length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expandFan[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestExpandStripAlternatesWinding(t *testing.T) {
	got := expandStrip([]uint32{0, 1, 2, 3})
	want := []uint32{0, 1, 2, 1, 3, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expandStrip[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCompactDropsUnreferencedVertices(t *testing.T) {
	oldToNew, n := compact(5, []uint32{0, 2, 4})
	if n != 3 {
		t.Fatalf("compact count = %d, want 3", n)
	}
	if oldToNew[1] != -1 || oldToNew[3] != -1 {
		t.Errorf("unreferenced vertices should map to -1, got %v", oldToNew)
	}
	if oldToNew[0] != 0 || oldToNew[2] != 1 || oldToNew[4] != 2 {
		t.Errorf("compact mapping = %v, want referenced vertices to renumber in order", oldToNew)
	}
}

func TestIsNearWhiteDetectsOpaqueWhite(t *testing.T) {
	colors := [][4]float32{{1, 1, 1, 1}, {1, 1, 1, 1}}
	if !isNearWhite(colors) {
		t.Error("isNearWhite: want true for all-white colors")
	}
	colors[1][0] = 0.5
	if isNearWhite(colors) {
		t.Error("isNearWhite: want false once a channel deviates")
	}
}

func TestDoubleSideDuplicatesAndReversesWinding(t *testing.T) {
	p := &xform.PrimInfo{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Triangles: []uint32{0, 1, 2},
	}
	DoubleSide(p)
	if len(p.Positions) != 6 {
		t.Fatalf("Positions length = %d, want 6", len(p.Positions))
	}
	if len(p.Triangles) != 6 {
		t.Fatalf("Triangles length = %d, want 6", len(p.Triangles))
	}
	back := p.Triangles[3:]
	if back[0] != 3 || back[1] != 5 || back[2] != 4 {
		t.Errorf("back-face triangle = %v, want reversed winding offset by 3", back)
	}
	if p.Normals[3] != (mgl32.Vec3{0, 0, -1}) {
		t.Errorf("back-face normal = %v, want flipped", p.Normals[3])
	}
}
