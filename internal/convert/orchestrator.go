// Package convert ties every conversion stage together into the single
// entry point a CLI or library caller invokes (spec.md §4.10): load,
// validate, walk the selected scene's node hierarchy in two passes
// (rigid meshes, then skinned meshes and their animation), materialize
// textures and materials, and stage the results onto the caller's
// usdstage.Stage. Convert does not call Save; the caller saves the stage.
//
// Grounded on engine/loader/loader.go's top-level LoadModel orchestration
// (open source, parse, build subsystems in dependency order, return one
// assembled result or the first error) and
// engine/loader/gltf_skeleton_extractor.go's two-pass node walk, adapted
// from "build one renderable Model" into "build one USD stage".
package convert

import (
	"fmt"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/access"
	"github.com/gltf2usd/gltf2usd/internal/animkey"
	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/diag"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/gltfjson"
	"github.com/gltf2usd/gltf2usd/internal/meshbuild"
	"github.com/gltf2usd/gltf2usd/internal/schedule"
	"github.com/gltf2usd/gltf2usd/internal/skinbuild"
	"github.com/gltf2usd/gltf2usd/internal/usdstage"
	"github.com/gltf2usd/gltf2usd/internal/validate"
	"github.com/gltf2usd/gltf2usd/internal/xform"
)

// Convert loads a glTF asset from src, walks its selected scene, and
// stages every mesh, skeleton, animation, and material onto stage. It
// returns the accumulated diagnostic log; the caller decides whether
// log.Errored() should fail the run.
func Convert(src container.Source, stage usdstage.Stage, options ...ConvertOption) (*diag.Log, error) {
	opts := DefaultOptions()
	for _, o := range options {
		o(&opts)
	}

	l := diag.New(log.New(os.Stderr, "", 0), "convert")

	jsonText, err := src.JSONText()
	if err != nil {
		return l, fmt.Errorf("convert: read document: %w", err)
	}
	doc, err := gltfjson.Load(jsonText, l)
	if err != nil {
		return l, fmt.Errorf("convert: parse document: %w", err)
	}
	if err := validate.Validate(doc, src, l); err != nil {
		return l, fmt.Errorf("convert: validate: %w", err)
	}

	sceneIdx := int(doc.DefaultScene)
	if opts.HasSceneIndex {
		sceneIdx = opts.SceneIndex
	}
	if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
		if len(doc.Scenes) == 0 {
			return l, fmt.Errorf("convert: document has no scenes")
		}
		sceneIdx = 0
	}
	scene := &doc.Scenes[sceneIdx]

	cache := access.New(doc, src)
	parent := skinbuild.ParentMap(doc)
	order, world := sceneNodes(doc, scene, opts.RootScale)

	mat := newMaterializer(doc, cache, src, &opts)

	rigidSched := schedule.New(opts.Workers, len(order)+1, 0)
	for _, ni := range order {
		n := &doc.Nodes[ni]
		if excludedByPrefix(n.Name, opts.ExcludeNodePrefixes) {
			continue
		}
		if !n.Mesh.Valid(len(doc.Meshes)) || n.Skin.Valid(len(doc.Skins)) {
			continue
		}
		ni, n, w := ni, n, world[ni]
		rigidSched.Schedule(func() error {
			return emitRigidMesh(doc, cache, stage, mat, ni, n, w, &opts, l)
		})
	}
	if err := rigidSched.WaitForAllComplete(); err != nil {
		return l, fmt.Errorf("convert: rigid mesh pass: %w", err)
	}

	bySkin := make(map[int][]int)
	for _, ni := range order {
		n := &doc.Nodes[ni]
		if excludedByPrefix(n.Name, opts.ExcludeNodePrefixes) {
			continue
		}
		if !n.Mesh.Valid(len(doc.Meshes)) || !n.Skin.Valid(len(doc.Skins)) {
			continue
		}
		bySkin[int(n.Skin)] = append(bySkin[int(n.Skin)], ni)
	}

	tol := animkey.DefaultTolerances()
	anim := selectAnimation(doc, &opts)

	skinSched := schedule.New(opts.Workers, len(bySkin)+1, 0)
	for skinIdx, nodeIdxs := range bySkin {
		skinIdx, nodeIdxs := skinIdx, nodeIdxs
		skinSched.Schedule(func() error {
			return emitSkinnedSkin(doc, cache, stage, mat, parent, skinIdx, nodeIdxs, &opts, tol, anim, l)
		})
	}
	if err := skinSched.WaitForAllComplete(); err != nil {
		return l, fmt.Errorf("convert: skinned mesh pass: %w", err)
	}

	return l, nil
}

func emitRigidMesh(doc *gltfasset.Document, cache *access.Cache, stage usdstage.Stage, mat *materializer, nodeIdx int, n *gltfasset.Node, world mgl32.Mat4, opts *Options, l *diag.Log) error {
	mesh := &doc.Meshes[n.Mesh]
	reverse := opts.ReverseCullingOnInverseScale && worldDeterminantNegative(world)

	for pi := range mesh.Primitives {
		prim, err := meshbuild.BuildPrimitive(doc, cache, int(n.Mesh), pi, nil, l)
		if err != nil {
			l.Report("mesh.build", diag.Error, fmt.Sprintf("node %d mesh %d prim %d", nodeIdx, n.Mesh, pi), "%v", err)
			continue
		}
		applyWorldTransform(prim, world)
		if opts.EmulateDoubleSided {
			meshbuild.DoubleSide(prim)
		}

		matPath, err := mat.materialPathFor(stage, mesh.Primitives[pi].Material)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("/Meshes/%s_%d_%d", sanitizeUSDName(n.Name), n.Mesh, pi)
		desc := primInfoToMeshDesc(prim, matPath, "", reverse)
		if err := stage.AddMesh(name, desc); err != nil {
			return fmt.Errorf("convert: add mesh %s: %w", name, err)
		}
	}
	return nil
}

type skinnedPrim struct {
	prim    *xform.PrimInfo
	node    int
	meshIdx int
	primIdx int
}

func emitSkinnedSkin(doc *gltfasset.Document, cache *access.Cache, stage usdstage.Stage, mat *materializer, parent []int, skinIdx int, nodeIdxs []int, opts *Options, tol animkey.Tolerances, anim *gltfasset.Animation, l *diag.Log) error {
	var prims []*skinnedPrim
	var primInfos []*xform.PrimInfo

	for _, ni := range nodeIdxs {
		n := &doc.Nodes[ni]
		mesh := &doc.Meshes[n.Mesh]
		for pi := range mesh.Primitives {
			prim, err := meshbuild.BuildPrimitive(doc, cache, int(n.Mesh), pi, nil, l)
			if err != nil {
				l.Report("mesh.build", diag.Error, fmt.Sprintf("node %d mesh %d prim %d", ni, n.Mesh, pi), "%v", err)
				continue
			}
			prims = append(prims, &skinnedPrim{prim: prim, node: ni, meshIdx: int(n.Mesh), primIdx: pi})
			primInfos = append(primInfos, prim)
		}
	}
	if len(prims) == 0 {
		return nil
	}

	info, err := skinbuild.Build(doc, cache, skinIdx, primInfos, parent)
	if err != nil {
		return fmt.Errorf("convert: skin %d: %w", skinIdx, err)
	}
	for _, p := range prims {
		skinbuild.NormalizeInfluences(p.prim, info)
	}

	skelPath := fmt.Sprintf("/Skeletons/skin%d", skinIdx)
	if err := stage.AddSkeleton(skelPath, usdstage.SkeletonDesc{
		JointPaths:     info.JointNames,
		BindTransforms: info.BindMatrices,
		RestTransforms: info.RestMatrices,
	}); err != nil {
		return fmt.Errorf("convert: add skeleton %s: %w", skelPath, err)
	}

	animPath := ""
	if anim != nil {
		jc, err := collectSkinChannels(doc, cache, anim, info, tol)
		if err != nil {
			return fmt.Errorf("convert: skin %d animation: %w", skinIdx, err)
		}
		desc := buildSkelAnimation(info.JointNames, info.RestMatrices, jc, tol, 1.0/30.0)
		animPath = skelPath + "/Animation"
		if err := stage.AddSkelAnimation(animPath, desc); err != nil {
			return fmt.Errorf("convert: add skel animation %s: %w", animPath, err)
		}
	}

	for _, p := range prims {
		n := &doc.Nodes[p.node]
		matIdx := doc.Meshes[p.meshIdx].Primitives[p.primIdx].Material
		matPath, err := mat.materialPathFor(stage, matIdx)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("/SkinnedMeshes/%s_%d_%d", sanitizeUSDName(n.Name), p.meshIdx, p.primIdx)
		desc := primInfoToMeshDesc(p.prim, matPath, skelPath, false)
		if err := stage.AddMesh(name, desc); err != nil {
			return fmt.Errorf("convert: add mesh %s: %w", name, err)
		}
	}
	return nil
}

// selectAnimation picks the animation to bake per opts, or nil when no
// animation is selected (spec.md §6 "--animation index, default: none").
func selectAnimation(doc *gltfasset.Document, opts *Options) *gltfasset.Animation {
	if !opts.HasAnimation {
		return nil
	}
	if opts.AnimationIndex < 0 || opts.AnimationIndex >= len(doc.Animations) {
		return nil
	}
	return &doc.Animations[opts.AnimationIndex]
}

func primInfoToMeshDesc(p *xform.PrimInfo, materialPath, skeletonPath string, reverse bool) usdstage.MeshDesc {
	faceCounts := make([]int, len(p.Triangles)/3)
	for i := range faceCounts {
		faceCounts[i] = 3
	}
	indices := make([]int, len(p.Triangles))
	for i, idx := range p.Triangles {
		indices[i] = int(idx)
	}

	desc := usdstage.MeshDesc{
		Points:            p.Positions,
		Normals:           p.Normals,
		FaceVertexCounts:  faceCounts,
		FaceVertexIndices: indices,
		Colors:            p.Colors,
		MaterialPath:      materialPath,
		SkeletonPath:      skeletonPath,
		ReverseWound:      reverse,
	}
	if len(p.UVs) > 0 {
		desc.UVSets = p.UVs
	}
	if len(p.JointIndices) > 0 {
		desc.JointIndices = make([][4]int, len(p.JointIndices))
		desc.JointWeights = p.JointWeights
		for i, ji := range p.JointIndices {
			desc.JointIndices[i] = [4]int{int(ji[0]), int(ji[1]), int(ji[2]), int(ji[3])}
		}
	}
	return desc
}
