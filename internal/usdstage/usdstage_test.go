package usdstage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAddMeshRequiresPoints(t *testing.T) {
	w := New("asset")
	if err := w.AddMesh("/Meshes/m0", MeshDesc{}); err == nil {
		t.Fatal("expected error for mesh with no points")
	}
}

func TestSaveProducesUSDAWithExpectedStructure(t *testing.T) {
	w := New("asset")
	if err := w.AddXform("/Meshes/node0", XformDesc{Matrix: mgl32.Ident4()}); err != nil {
		t.Fatalf("AddXform: %v", err)
	}
	if err := w.AddMesh("/Meshes/node0/mesh0", MeshDesc{
		Points:            []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:           []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		FaceVertexCounts:  []int{3},
		FaceVertexIndices: []int{0, 1, 2},
		UVSets:            [][]mgl32.Vec2{{{0, 0}, {1, 0}, {0, 1}}},
	}); err != nil {
		t.Fatalf("AddMesh: %v", err)
	}
	if err := w.AddMesh("/SkinnedMeshes/mesh1", MeshDesc{
		Points:            []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		FaceVertexCounts:  []int{3},
		FaceVertexIndices: []int{0, 1, 2},
		SkeletonPath:      "/SkinnedMeshes/Skel",
		JointIndices:      [][4]int{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		JointWeights:      [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
	}); err != nil {
		t.Fatalf("AddMesh (skinned): %v", err)
	}
	if err := w.AddSkeleton("/SkinnedMeshes/Skel", SkeletonDesc{
		JointPaths:     []string{"n1", "n1/n2"},
		BindTransforms: []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
		RestTransforms: []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
	}); err != nil {
		t.Fatalf("AddSkeleton: %v", err)
	}
	matPath, err := w.AddMaterial("/Materials/mat0", MaterialDesc{
		DisplayName:     "mat0",
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  0,
		RoughnessFactor: 0.8,
		Opacity:         1,
	})
	if err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	if matPath != "/Materials/mat0" {
		t.Errorf("AddMaterial path = %q, want /Materials/mat0", matPath)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "asset.usda")
	if err := w.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"#usda 1.0",
		"def Xform \"asset\"",
		"def Scope \"Meshes\"",
		"def Scope \"SkinnedMeshes\"",
		"def Mesh \"mesh0\"",
		"def Mesh \"mesh1\"",
		"def Skeleton \"Skel\"",
		"def Scope \"Materials\"",
		"def Material \"mat0\"",
		"uniform token subdivisionScheme = \"none\"",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n--- full output ---\n%s", want, text)
		}
	}
}

func TestReverseTriangleWindingSwapsLastTwoIndices(t *testing.T) {
	out := reverseTriangleWinding([]int{0, 1, 2, 3, 4, 5})
	want := []int{0, 2, 1, 3, 5, 4}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("reverseTriangleWinding()[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}
