package skinbuild

import (
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/xform"
)

// buildChainDoc builds a document with a simple hierarchy:
//
//	0 (scene root)
//	  1 (skeleton root candidate)
//	    2 (joint A)
//	      3 (joint B, used)
//	    4 (joint C, used)
func buildChainDoc() *gltfasset.Document {
	return &gltfasset.Document{
		Nodes: []gltfasset.Node{
			{Children: []gltfasset.Index{1}},
			{Children: []gltfasset.Index{2, 4}},
			{Children: []gltfasset.Index{3}},
			{},
			{},
		},
	}
}

func TestParentMap(t *testing.T) {
	doc := buildChainDoc()
	parent := ParentMap(doc)
	want := []int{-1, 0, 1, 2, 1}
	for i, w := range want {
		if parent[i] != w {
			t.Errorf("parent[%d] = %d, want %d", i, parent[i], w)
		}
	}
}

func TestLowestCommonAncestorOfSiblingJoints(t *testing.T) {
	doc := buildChainDoc()
	parent := ParentMap(doc)
	got := lowestCommonAncestor(parent, []int{3, 4})
	if got != 1 {
		t.Errorf("lowestCommonAncestor(3,4) = %d, want 1", got)
	}
}

func TestBuildLiftsRootWhenRootIsUsedJoint(t *testing.T) {
	doc := buildChainDoc()
	doc.Skins = []gltfasset.Skin{
		{Joints: []gltfasset.Index{1, 3, 4}},
	}
	parent := ParentMap(doc)

	prims := []*xform.PrimInfo{
		{
			// Skin joint 0 is node 1 and skin joint 2 is node 4, so both
			// node 1 and node 4 are used joints.
			JointIndices: [][4]uint32{{0, 0, 0, 0}, {2, 0, 0, 0}},
			JointWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}},
		},
	}

	info, err := Build(doc, nil, 0, prims, parent)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if info.Root != 0 {
		t.Errorf("Root = %d, want 0 (lifted above used joint 1)", info.Root)
	}
}

func TestBuildTreeOrderAndJointNames(t *testing.T) {
	doc := buildChainDoc()
	doc.Skins = []gltfasset.Skin{
		{Joints: []gltfasset.Index{2, 3, 4}},
	}
	parent := ParentMap(doc)

	prims := []*xform.PrimInfo{
		{
			JointIndices: [][4]uint32{{0, 0, 0, 0}, {1, 0, 0, 0}, {2, 0, 0, 0}},
			JointWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
		},
	}

	info, err := Build(doc, nil, 0, prims, parent)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if info.Root != 1 {
		t.Fatalf("Root = %d, want 1", info.Root)
	}
	wantOrder := []int{2, 3, 4}
	if len(info.UsedNodes) != len(wantOrder) {
		t.Fatalf("UsedNodes = %v, want %v", info.UsedNodes, wantOrder)
	}
	for i, w := range wantOrder {
		if info.UsedNodes[i] != w {
			t.Errorf("UsedNodes[%d] = %d, want %d", i, info.UsedNodes[i], w)
		}
	}
	if info.JointNames[0] != "n2" {
		t.Errorf("JointNames[0] = %q, want n2", info.JointNames[0])
	}
	if info.JointNames[1] != "n2/n3" {
		t.Errorf("JointNames[1] = %q, want n2/n3", info.JointNames[1])
	}
	if info.JointNames[2] != "n4" {
		t.Errorf("JointNames[2] = %q, want n4", info.JointNames[2])
	}
}

func TestNormalizeInfluencesDropsOutOfRangeAndRescales(t *testing.T) {
	info := &xform.SkinInfo{
		GltfJointToUSD: map[int]int{0: 0, 1: 1},
	}
	p := &xform.PrimInfo{
		JointIndices: [][4]uint32{{0, 1, 9, 0}},
		JointWeights: [][4]float32{{0.5, 0.25, 0.25, 0}},
	}
	NormalizeInfluences(p, info)

	sum := p.JointWeights[0][0] + p.JointWeights[0][1] + p.JointWeights[0][2] + p.JointWeights[0][3]
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum = %f, want ~1", sum)
	}
	if p.JointWeights[0][0] <= p.JointWeights[0][1] {
		t.Errorf("weights not sorted descending: %v", p.JointWeights[0])
	}
}

func TestDetectRigidSingleJoint(t *testing.T) {
	skin := &gltfasset.Skin{}
	prims := []*xform.PrimInfo{
		{
			JointIndices: [][4]uint32{{2, 0, 0, 0}, {2, 0, 0, 0}},
			JointWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}},
		},
	}
	if !detectRigid(prims, skin) {
		t.Error("detectRigid = false, want true for single-joint influences")
	}

	prims[0].JointIndices[1] = [4]uint32{3, 0, 0, 0}
	if detectRigid(prims, skin) {
		t.Error("detectRigid = true, want false once a second joint is referenced")
	}
}
