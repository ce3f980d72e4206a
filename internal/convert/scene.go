package convert

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/skinbuild"
	"github.com/gltf2usd/gltf2usd/internal/xform"
)

// sceneNodes returns every node index reachable from scene's declared
// roots, pre-order, along with each node's accumulated world matrix
// (root scale folded into the very first level, per spec.md §6 "a root
// scale op").
func sceneNodes(doc *gltfasset.Document, scene *gltfasset.Scene, rootScale float32) (order []int, world map[int]mgl32.Mat4) {
	world = make(map[int]mgl32.Mat4)
	rootMat := mgl32.Scale3D(rootScale, rootScale, rootScale)

	var visit func(n int, parentWorld mgl32.Mat4)
	visit = func(n int, parentWorld mgl32.Mat4) {
		if n < 0 || n >= len(doc.Nodes) {
			return
		}
		w := parentWorld.Mul4(skinbuild.LocalMatrix(&doc.Nodes[n]))
		world[n] = w
		order = append(order, n)
		for _, c := range doc.Nodes[n].Children {
			visit(int(c), w)
		}
	}
	for _, r := range scene.Nodes {
		visit(int(r), rootMat)
	}
	return order, world
}

// excludedByPrefix reports whether name starts with any of prefixes
// (spec.md §6 "repeatable node-name-prefix filters for exclusion").
func excludedByPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// animatedNodes marks every node directly targeted by a channel of anim,
// per spec.md §3 AnimInfo "per-node is-animated bitset".
func animatedNodes(doc *gltfasset.Document, anim *gltfasset.Animation) map[int]bool {
	out := make(map[int]bool)
	for _, ch := range anim.Channels {
		if ch.Target.Node.Valid(len(doc.Nodes)) {
			out[int(ch.Target.Node)] = true
		}
	}
	return out
}

// worldDeterminantNegative reports whether m's upper-left 3x3 has a
// negative determinant, the trigger for reverse-winding emulation
// (spec.md §6 "reverse culling on inverse scale").
func worldDeterminantNegative(m mgl32.Mat4) bool {
	m3 := m.Mat3()
	return m3.Det() < 0
}

// applyWorldTransform bakes m into p's positions and normals (used for the
// rigid pass, where the emitter does not model a nested Xform hierarchy;
// see DESIGN.md's internal/convert entry for why transforms are baked
// rather than chained through nested Xform prims).
func applyWorldTransform(p *xform.PrimInfo, m mgl32.Mat4) {
	for i, v := range p.Positions {
		v4 := m.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1})
		p.Positions[i] = mgl32.Vec3{v4[0], v4[1], v4[2]}
	}
	if len(p.Normals) == 0 {
		return
	}
	nm := m.Mat3().Inv().Transpose()
	for i, n := range p.Normals {
		tn := nm.Mul3x1(n)
		if l := tn.Len(); l > 1e-12 {
			tn = tn.Mul(1 / l)
		}
		p.Normals[i] = tn
	}
}
