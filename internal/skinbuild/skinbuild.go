// Package skinbuild assembles the USD-joint ordering, names, and bind/rest
// matrices for each used skin (spec.md §4.6): lowest-common-ancestor
// skeleton root selection with one-level lift-up, tree-order joint
// sorting, slash-separated joint path naming, bind-matrix inversion, and
// per-vertex influence normalization.
//
// Grounded on engine/loader/gltf_skeleton_extractor.go's
// extractSkeletonInternal (inverse-bind-matrix read, per-joint local
// transform extraction) and gltfTopologicalSortBones (BFS parent-before-
// child ordering), generalized from "one flat bone array per skin, GPU
// world-matrix order" into "LCA-rooted USD joint subset with path names",
// per spec.md §4.6 which the teacher's flat extractor does not need
// (it renders with its own bone-index convention, not USD joint paths).
package skinbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/access"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/xform"
)

// influenceZeroTolerance is the "a small zero tolerance" spec.md §4.6 step
// 1 asks for when deciding whether a joint is actually used.
const influenceZeroTolerance = 1e-6

// ParentMap returns, for every node index, its parent's index or -1 for a
// root. Computed once per document and shared across all skins.
func ParentMap(doc *gltfasset.Document) []int {
	parent := make([]int, len(doc.Nodes))
	for i := range parent {
		parent[i] = -1
	}
	for ni, n := range doc.Nodes {
		for _, c := range n.Children {
			if c.Valid(len(doc.Nodes)) {
				parent[c] = ni
			}
		}
	}
	return parent
}

func pathToRoot(parent []int, node int) []int {
	var path []int
	for node != -1 {
		path = append(path, node)
		node = parent[node]
	}
	return path
}

// lowestCommonAncestor returns the deepest node common to every path from
// nodes[i] to the document root, or -1 if nodes is empty.
func lowestCommonAncestor(parent []int, nodes []int) int {
	if len(nodes) == 0 {
		return -1
	}
	common := pathToRoot(parent, nodes[0])
	for _, n := range nodes[1:] {
		other := make(map[int]bool)
		for _, x := range pathToRoot(parent, n) {
			other[x] = true
		}
		filtered := common[:0]
		for _, c := range common {
			if other[c] {
				filtered = append(filtered, c)
			}
		}
		common = filtered
	}
	if len(common) == 0 {
		return -1
	}
	return common[0]
}

// jointPathFromRoot returns the glTF node chain from just below root down
// to node, root-exclusive, in parent-to-child order.
func jointPathFromRoot(parent []int, root, node int) []int {
	var path []int
	for n := node; n != root && n != -1; n = parent[n] {
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func treeOrder(doc *gltfasset.Document, root int, used map[int]bool) []int {
	var order []int
	var visit func(n int)
	visit = func(n int) {
		for _, c := range doc.Nodes[n].Children {
			ci := int(c)
			if used[ci] {
				order = append(order, ci)
				visit(ci)
			}
		}
	}
	if root >= 0 {
		visit(root)
	}
	return order
}

// usedJoints returns, for each glTF joint position in skin.Joints, whether
// any primitive vertex weighted onto this skin references it with weight
// above the zero tolerance (spec.md §4.6 step 1).
func usedJoints(skin *gltfasset.Skin, prims []*xform.PrimInfo) []bool {
	used := make([]bool, len(skin.Joints))
	for _, p := range prims {
		for vi := range p.JointIndices {
			idx := p.JointIndices[vi]
			w := p.JointWeights[vi]
			for k := 0; k < 4; k++ {
				if w[k] > influenceZeroTolerance && int(idx[k]) < len(used) {
					used[idx[k]] = true
				}
			}
		}
	}
	return used
}

// Build assembles the SkinInfo for skinIndex, given the PrimInfo set of
// every primitive weighted onto it.
func Build(doc *gltfasset.Document, cache *access.Cache, skinIndex int, prims []*xform.PrimInfo, parent []int) (*xform.SkinInfo, error) {
	skin := &doc.Skins[skinIndex]
	usedFlags := usedJoints(skin, prims)

	var usedJointNodes []int
	for i, u := range usedFlags {
		if u && skin.Joints[i].Valid(len(doc.Nodes)) {
			usedJointNodes = append(usedJointNodes, int(skin.Joints[i]))
		}
	}
	if len(usedJointNodes) == 0 {
		// No vertex actually weights onto this skin; fall back to the full
		// joint list so the skeleton is still well-formed.
		for _, j := range skin.Joints {
			if j.Valid(len(doc.Nodes)) {
				usedJointNodes = append(usedJointNodes, int(j))
			}
		}
	}

	root := lowestCommonAncestor(parent, usedJointNodes)
	if root >= 0 && isUsedJoint(root, usedJointNodes) {
		root = parent[root]
	}

	usedSet := make(map[int]bool)
	for _, jn := range usedJointNodes {
		for n := jn; n != root && n != -1; n = parent[n] {
			usedSet[n] = true
		}
	}

	order := treeOrder(doc, root, usedSet)

	info := &xform.SkinInfo{
		SkinIndex:      skinIndex,
		Root:           root,
		UsedNodes:      order,
		GltfJointToUSD: make(map[int]int),
	}

	nodeToUSD := make(map[int]int, len(order))
	for usdIdx, node := range order {
		nodeToUSD[node] = usdIdx
		info.JointNames = append(info.JointNames, jointName(parent, root, node))
		info.RestMatrices = append(info.RestMatrices, localMatrix(&doc.Nodes[node]))
	}

	var invBind [][16]float32
	if skin.InverseBindMatrices.Valid(len(doc.Accessors)) {
		var err error
		invBind, err = cache.Mat4(skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("skinbuild: skin %d inverse bind matrices: %w", skinIndex, err)
		}
	}

	info.BindMatrices = make([]mgl32.Mat4, len(order))
	for i := range info.BindMatrices {
		info.BindMatrices[i] = mgl32.Ident4()
	}
	for gltfJointIdx, nodeIdx := range skin.Joints {
		if !nodeIdx.Valid(len(doc.Nodes)) {
			continue
		}
		usdIdx, ok := nodeToUSD[int(nodeIdx)]
		if !ok {
			continue
		}
		info.GltfJointToUSD[gltfJointIdx] = usdIdx
		if gltfJointIdx < len(invBind) {
			inv := mgl32.Mat4(invBind[gltfJointIdx])
			info.BindMatrices[usdIdx] = inv.Inv()
		}
	}

	info.Rigid = detectRigid(prims, skin)
	return info, nil
}

func isUsedJoint(node int, usedJointNodes []int) bool {
	for _, n := range usedJointNodes {
		if n == node {
			return true
		}
	}
	return false
}

func jointName(parent []int, root, node int) string {
	path := jointPathFromRoot(parent, root, node)
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = fmt.Sprintf("n%d", n)
	}
	return strings.Join(parts, "/")
}

// LocalMatrix returns a node's local transform as a 4x4 matrix, whether
// expressed directly or as a translation/rotation/scale triple (spec.md
// §3 Node "matrix form and SRT form are mutually exclusive").
func LocalMatrix(n *gltfasset.Node) mgl32.Mat4 { return localMatrix(n) }

func localMatrix(n *gltfasset.Node) mgl32.Mat4 {
	if n.HasMatrix {
		return mgl32.Mat4(n.Matrix)
	}
	t := mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2])
	q := mgl32.Quat{W: n.Rotation[3], V: mgl32.Vec3{n.Rotation[0], n.Rotation[1], n.Rotation[2]}}
	r := q.Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// NormalizeInfluences implements spec.md §4.6 "Per-vertex influence
// normalization": remaps glTF joint indices into USD joint space via
// info.GltfJointToUSD, drops zero-weight or out-of-range influences,
// sorts the remaining up-to-4 by descending weight with a stable sort, and
// rescales so they sum to 1.
func NormalizeInfluences(p *xform.PrimInfo, info *xform.SkinInfo) {
	for vi := range p.JointIndices {
		idx := p.JointIndices[vi]
		w := p.JointWeights[vi]

		type influence struct {
			joint  int
			weight float32
		}
		var infs []influence
		for k := 0; k < 4; k++ {
			if w[k] <= influenceZeroTolerance {
				continue
			}
			usd, ok := info.GltfJointToUSD[int(idx[k])]
			if !ok {
				continue
			}
			infs = append(infs, influence{joint: usd, weight: w[k]})
		}

		sort.SliceStable(infs, func(a, b int) bool { return infs[a].weight > infs[b].weight })
		if len(infs) > 4 {
			infs = infs[:4]
		}

		var sum float32
		for _, inf := range infs {
			sum += inf.weight
		}

		var newIdx [4]uint32
		var newW [4]float32
		for k, inf := range infs {
			newIdx[k] = uint32(inf.joint)
			if sum > 0 {
				newW[k] = inf.weight / sum
			}
		}
		p.JointIndices[vi] = newIdx
		p.JointWeights[vi] = newW
	}
}

// detectRigid reports whether every vertex's non-dropped influences all
// reference a single joint (spec.md §4.6 "effectively rigid").
func detectRigid(prims []*xform.PrimInfo, skin *gltfasset.Skin) bool {
	sawAny := false
	singleJoint := -1
	for _, p := range prims {
		for vi := range p.JointIndices {
			idx := p.JointIndices[vi]
			w := p.JointWeights[vi]
			for k := 0; k < 4; k++ {
				if w[k] <= influenceZeroTolerance {
					continue
				}
				sawAny = true
				j := int(idx[k])
				if singleJoint == -1 {
					singleJoint = j
				} else if singleJoint != j {
					return false
				}
			}
		}
	}
	return sawAny
}

// NormalSkinningMatrix computes the frame-0 normal-skinning matrix for
// bake mode (spec.md §4.6 "Normal skinning matrices"):
// N = transpose(inverse(S·R)) composed up the USD-joint chain, where S
// and R are the joint's first-frame scale and rotation relative to its
// parent's already-accumulated skinning matrix.
func NormalSkinningMatrix(parentAccum mgl32.Mat4, scaleRotation mgl32.Mat4) mgl32.Mat4 {
	sr := parentAccum.Mul4(scaleRotation)
	return sr.Inv().Transpose()
}
