// Package validate re-walks a loaded gltfasset.Document performing the
// referential and semantic checks spec.md §4.3 describes: the index
// references of scenes, nodes, mesh primitives, textures and skins in range
// (accessor bufferView, bufferView buffer and animation channel/sampler
// indices are not range-checked), accessors fitting inside their bufferViews, joint/
// weight attribute pairing, skin inverse-bind-matrix shape, animation
// channel duplication, and node-graph acyclicity.
//
// Grounded on engine/loader/gltf_importer.go's importFromParser, which
// performs ad hoc range checks inline before each extraction step; this
// package centralizes that scattered validation into one pre-flight pass
// so every downstream builder can assume a well-formed document, the way
// gltf_skeleton_extractor.go and gltf_mesh_extractor.go assume bounds
// already hold.
package validate

import (
	"fmt"

	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/diag"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

const (
	idIndexRange     = "validate.index-out-of-range"
	idAccessorBounds = "validate.accessor-bounds"
	idAttrCount      = "validate.attribute-count-mismatch"
	idJointWeight    = "validate.joint-weight-mismatch"
	idJointComponent = "validate.joint-component-type"
	idIndexCount     = "validate.index-count-incompatible"
	idMorphTarget    = "validate.morph-target-count"
	idSkinIBM        = "validate.skin-inverse-bind-shape"
	idChannelDup     = "validate.duplicate-channel"
	idWeightsChannel = "validate.weights-channel-invalid"
	idCyclicGraph    = "validate.cyclic-node-graph"
	idMissingBuffer  = "validate.missing-buffer"
	idMissingImage   = "validate.missing-image"
)

// Validate performs the §4.3 checks, logging everything it finds through
// log. It returns an error only for a cyclic node graph; every other
// finding, Error-severity bounds violations included, is only logged, and
// recoverable issues are warnings.
func Validate(doc *gltfasset.Document, src container.Source, log *diag.Log) error {
	checkIndexRanges(doc, log)
	checkAccessorBounds(doc, log)
	checkAttributeCounts(doc, log)
	checkSkins(doc, log)
	checkAnimations(doc, log)
	if err := checkAcyclic(doc, log); err != nil {
		return err
	}
	checkResourcesExist(doc, src, log)
	return nil
}

func checkIndexRanges(doc *gltfasset.Document, log *diag.Log) {
	valid := func(i gltfasset.Index, n int, subject string) {
		if i != gltfasset.NullIndex && !i.Valid(n) {
			log.Report(idIndexRange, diag.Error, subject, "index %d out of range [0,%d)", i, n)
		}
	}
	for si, s := range doc.Scenes {
		for _, n := range s.Nodes {
			valid(n, len(doc.Nodes), fmt.Sprintf("scenes[%d]", si))
		}
	}
	for ni, n := range doc.Nodes {
		valid(n.Mesh, len(doc.Meshes), fmt.Sprintf("nodes[%d].mesh", ni))
		valid(n.Skin, len(doc.Skins), fmt.Sprintf("nodes[%d].skin", ni))
		for _, c := range n.Children {
			valid(c, len(doc.Nodes), fmt.Sprintf("nodes[%d].children", ni))
		}
	}
	for mi, m := range doc.Meshes {
		for pi, p := range m.Primitives {
			subject := fmt.Sprintf("meshes[%d].primitives[%d]", mi, pi)
			valid(p.Material, len(doc.Materials), subject)
			valid(p.Indices, len(doc.Accessors), subject)
			for _, a := range p.Attributes {
				valid(a, len(doc.Accessors), subject)
			}
		}
	}
	for ti, t := range doc.Textures {
		valid(t.Source, len(doc.Images), fmt.Sprintf("textures[%d].source", ti))
		valid(t.Sampler, len(doc.Samplers), fmt.Sprintf("textures[%d].sampler", ti))
	}
	for si, s := range doc.Skins {
		valid(s.InverseBindMatrices, len(doc.Accessors), fmt.Sprintf("skins[%d]", si))
		valid(s.Skeleton, len(doc.Nodes), fmt.Sprintf("skins[%d]", si))
		for _, j := range s.Joints {
			valid(j, len(doc.Nodes), fmt.Sprintf("skins[%d].joints", si))
		}
	}
}

func checkAccessorBounds(doc *gltfasset.Document, log *diag.Log) {
	for ai, acc := range doc.Accessors {
		subject := fmt.Sprintf("accessors[%d]", ai)
		elemSize := acc.ComponentType.Size() * acc.Type.ComponentCount()
		if elemSize == 0 {
			log.Report(idAccessorBounds, diag.Error, subject, "unrecognized type/componentType combination")
			continue
		}
		if !acc.BufferView.Valid(len(doc.BufferViews)) {
			continue // sparse-only, or an out-of-range bufferView index, which no check reports
		}
		bv := doc.BufferViews[acc.BufferView]
		stride := elemSize
		if bv.ByteStride > 0 {
			stride = bv.ByteStride
		}
		needed := acc.ByteOffset + (acc.Count-1)*stride + elemSize
		if acc.Count > 0 && needed > bv.ByteLength {
			log.Report(idAccessorBounds, diag.Error, subject,
				"accessor needs %d bytes but bufferView only has %d", needed, bv.ByteLength)
		}
	}
}

func checkAttributeCounts(doc *gltfasset.Document, log *diag.Log) {
	for mi, m := range doc.Meshes {
		for pi, p := range m.Primitives {
			subject := fmt.Sprintf("meshes[%d].primitives[%d]", mi, pi)
			posIdx, ok := p.Attributes["POSITION"]
			if !ok || !posIdx.Valid(len(doc.Accessors)) {
				continue
			}
			posCount := doc.Accessors[posIdx].Count

			for sem, ai := range p.Attributes {
				if sem == "POSITION" || !ai.Valid(len(doc.Accessors)) {
					continue
				}
				count := doc.Accessors[ai].Count
				if count == 0 {
					log.Report(idAttrCount, diag.Warning, subject, "attribute %q has a zero-length accessor", sem)
					continue
				}
				if count != posCount {
					log.Report(idAttrCount, diag.Error, subject,
						"attribute %q count %d does not match POSITION count %d", sem, count, posCount)
				}
			}

			checkJointWeightPairs(doc, p.Attributes, subject, log)
			if p.Draco != nil {
				dracoSemantics := make(map[string]gltfasset.Index)
				for sem := range p.Draco.Attributes {
					dracoSemantics[sem] = 0
				}
				checkJointWeightPairs(doc, dracoSemantics, subject+" (draco)", log)
			}

			if len(p.Targets) > 0 && len(m.Weights) != 0 && len(p.Targets) != len(m.Weights) {
				log.Report(idMorphTarget, diag.Warning, subject,
					"morph target count %d does not match weights array length %d", len(p.Targets), len(m.Weights))
			}

			checkIndexCountForMode(doc, p, subject, log)
		}
	}
}

func checkJointWeightPairs(doc *gltfasset.Document, attrs map[string]gltfasset.Index, subject string, log *diag.Log) {
	for n := 0; ; n++ {
		jointsKey := fmt.Sprintf("JOINTS_%d", n)
		weightsKey := fmt.Sprintf("WEIGHTS_%d", n)
		jIdx, hasJ := attrs[jointsKey]
		wIdx, hasW := attrs[weightsKey]
		if !hasJ && !hasW {
			return
		}
		if hasJ != hasW {
			log.Report(idJointWeight, diag.Error, subject, "%s present without matching %s", jointsKey, weightsKey)
			continue
		}
		if hasJ && jIdx.Valid(len(doc.Accessors)) {
			ct := doc.Accessors[jIdx].ComponentType
			if ct != gltfasset.ComponentUnsignedByte && ct != gltfasset.ComponentUnsignedShort {
				log.Report(idJointComponent, diag.Error, subject, "%s has non-unsigned-integer componentType %d", jointsKey, ct)
			}
		}
		_ = wIdx
	}
}

func checkIndexCountForMode(doc *gltfasset.Document, p gltfasset.Primitive, subject string, log *diag.Log) {
	var count int
	if p.Indices.Valid(len(doc.Accessors)) {
		count = doc.Accessors[p.Indices].Count
	} else if posIdx, ok := p.Attributes["POSITION"]; ok && posIdx.Valid(len(doc.Accessors)) {
		count = doc.Accessors[posIdx].Count
	}
	switch p.Mode {
	case gltfasset.ModeTriangles:
		if count%3 != 0 {
			log.Report(idIndexCount, diag.Error, subject, "TRIANGLES mode needs a multiple of 3 indices, got %d", count)
		}
	case gltfasset.ModeTriangleStrip, gltfasset.ModeTriangleFan:
		if count < 3 {
			log.Report(idIndexCount, diag.Error, subject, "tri-strip/fan mode needs >= 3 indices, got %d", count)
		}
	}
}

func checkSkins(doc *gltfasset.Document, log *diag.Log) {
	for si, s := range doc.Skins {
		subject := fmt.Sprintf("skins[%d]", si)
		if !s.InverseBindMatrices.Valid(len(doc.Accessors)) {
			continue
		}
		acc := doc.Accessors[s.InverseBindMatrices]
		if acc.Type != gltfasset.TypeMat4 || acc.ComponentType != gltfasset.ComponentFloat {
			log.Report(idSkinIBM, diag.Error, subject, "inverseBindMatrices accessor is not a float MAT4 array")
		}
		if acc.Count != len(s.Joints) {
			log.Report(idSkinIBM, diag.Error, subject, "inverseBindMatrices count %d does not match joint count %d", acc.Count, len(s.Joints))
		}
	}
}

func checkAnimations(doc *gltfasset.Document, log *diag.Log) {
	for ai, a := range doc.Animations {
		subject := fmt.Sprintf("animations[%d]", ai)
		seen := make(map[[2]any]bool)
		for _, c := range a.Channels {
			key := [2]any{c.Target.Node, c.Target.Path}
			if seen[key] {
				log.Report(idChannelDup, diag.Error, subject, "duplicate channel for (node=%v, path=%s)", c.Target.Node, c.Target.Path)
			}
			seen[key] = true

			if c.Target.Path == gltfasset.PathWeights {
				if !c.Target.Node.Valid(len(doc.Nodes)) {
					continue
				}
				n := doc.Nodes[c.Target.Node]
				if !n.Mesh.Valid(len(doc.Meshes)) || len(doc.Meshes[n.Mesh].Weights) == 0 {
					log.Report(idWeightsChannel, diag.Warning, subject, "weights channel targets a node with no morph targets")
				}
				if !c.Sampler.Valid(len(a.Samplers)) {
					continue
				}
				outAcc := a.Samplers[c.Sampler].Output
				if outAcc.Valid(len(doc.Accessors)) {
					acc := doc.Accessors[outAcc]
					if acc.Type != gltfasset.TypeScalar || acc.ComponentType != gltfasset.ComponentFloat {
						log.Report(idWeightsChannel, diag.Warning, subject, "weights channel output is not a float scalar array")
					}
				}
			}
		}
	}
}

// checkAcyclic runs an iterative DFS over the node graph, marking per-root
// visit state so a cycle anywhere is detected without recursing (mirrors
// the iterative-DFS requirement in spec.md §4.3.k, since Go has no tail-call
// elimination to rely on for deep glTF hierarchies).
func checkAcyclic(doc *gltfasset.Document, log *diag.Log) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(doc.Nodes))

	type frame struct {
		node     int
		childIdx int
	}

	visitFrom := func(root int) error {
		if state[root] != unvisited {
			return nil
		}
		stack := []frame{{node: root}}
		state[root] = visiting
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := doc.Nodes[top.node]
			if top.childIdx >= len(n.Children) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				continue
			}
			child := n.Children[top.childIdx]
			top.childIdx++
			if !child.Valid(len(doc.Nodes)) {
				continue
			}
			switch state[child] {
			case unvisited:
				state[child] = visiting
				stack = append(stack, frame{node: int(child)})
			case visiting:
				return fmt.Errorf("validate: cyclic node graph detected at node %d", child)
			}
		}
		return nil
	}

	for ni := range doc.Nodes {
		if err := visitFrom(ni); err != nil {
			log.Report(idCyclicGraph, diag.Error, fmt.Sprintf("nodes[%d]", ni), "%v", err)
			return err
		}
	}
	return nil
}

func checkResourcesExist(doc *gltfasset.Document, src container.Source, log *diag.Log) {
	for bi, b := range doc.Buffers {
		if b.URI == "" {
			continue // GLB-embedded, checked at container-open time
		}
		if _, err := src.ReadBuffer(b.URI, bi, 0, 0); err != nil {
			log.Report(idMissingBuffer, diag.Error, fmt.Sprintf("buffers[%d]", bi), "%v", err)
		}
	}
	for ii, im := range doc.Images {
		if im.URI == "" {
			continue // bufferView-backed
		}
		if _, _, err := src.ReadImage(im.URI, im.MimeType); err != nil {
			log.Report(idMissingImage, diag.Error, fmt.Sprintf("images[%d]", ii), "%v", err)
		}
	}
}
