package gltfjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gltf2usd/gltf2usd/internal/diag"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

// path-stack diagnostic IDs (spec.md §4.2, §7).
const (
	diagBadVersion    = "gltfjson.bad-version"
	diagBadEnum       = "gltfjson.bad-enum"
	diagIndexOOB      = "gltfjson.index-out-of-range"
	diagUnknownExt    = "gltfjson.extension-unrecognized"
)

// pathStack accumulates a JSON-pointer-like breadcrumb ("nodes[3].mesh")
// for diagnostics, mirroring gltf_parser.go's flat per-call error wrapping
// but threaded explicitly so nested loaders can report precise locations.
type pathStack struct {
	segments []string
}

func (p *pathStack) push(seg string) *pathStack {
	return &pathStack{segments: append(append([]string{}, p.segments...), seg)}
}

func (p *pathStack) String() string {
	return strings.Join(p.segments, "")
}

// Load parses raw glTF JSON text into a gltfasset.Document, resolving
// string enums to the closed Go enum types and reporting any unrecognized
// enum value via log rather than failing outright (index ranges are not
// checked here; internal/validate does that),
// per spec.md §4.2's "tolerant of unknown fields, strict about the fields
// it understands" stance.
func Load(data []byte, log *diag.Log) (*gltfasset.Document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("gltfjson: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("gltfjson: unsupported glTF version %q (want 2.x)", doc.Asset.Version)
	}

	root := &pathStack{}
	out := &gltfasset.Document{
		Version:            doc.Asset.Version,
		MinVersion:         doc.Asset.MinVersion,
		Generator:          doc.Asset.Generator,
		Copyright:          doc.Asset.Copyright,
		DefaultScene:       gltfasset.NullIndex,
		ExtensionsUsed:     doc.ExtensionsUsed,
		ExtensionsRequired: doc.ExtensionsRequired,
	}

	if doc.Scene != nil {
		out.DefaultScene = gltfasset.Index(*doc.Scene)
	}

	for i, s := range doc.Scenes {
		p := root.push(fmt.Sprintf(".scenes[%d]", i))
		out.Scenes = append(out.Scenes, convertScene(s, p))
	}
	for i, n := range doc.Nodes {
		p := root.push(fmt.Sprintf(".nodes[%d]", i))
		out.Nodes = append(out.Nodes, convertNode(n, p, log))
	}
	for i, m := range doc.Meshes {
		p := root.push(fmt.Sprintf(".meshes[%d]", i))
		out.Meshes = append(out.Meshes, convertMesh(m, p, log))
	}
	for i, a := range doc.Accessors {
		p := root.push(fmt.Sprintf(".accessors[%d]", i))
		out.Accessors = append(out.Accessors, convertAccessor(a, p, log))
	}
	for _, bv := range doc.BufferViews {
		out.BufferViews = append(out.BufferViews, bufferView2(bv))
	}
	for i, b := range doc.Buffers {
		_ = i
		out.Buffers = append(out.Buffers, gltfasset.Buffer{Name: b.Name, URI: b.URI, ByteLength: b.ByteLength})
	}
	for i, m := range doc.Materials {
		p := root.push(fmt.Sprintf(".materials[%d]", i))
		out.Materials = append(out.Materials, convertMaterial(m, p, log))
	}
	for _, t := range doc.Textures {
		out.Textures = append(out.Textures, convertTexture(t))
	}
	for _, im := range doc.Images {
		out.Images = append(out.Images, convertImage(im))
	}
	for _, s := range doc.Samplers {
		out.Samplers = append(out.Samplers, gltfasset.Sampler{
			Name: s.Name, MagFilter: s.MagFilter, MinFilter: s.MinFilter, WrapS: s.WrapS, WrapT: s.WrapT,
		})
	}
	for i, s := range doc.Skins {
		p := root.push(fmt.Sprintf(".skins[%d]", i))
		out.Skins = append(out.Skins, convertSkin(s, p))
	}
	for i, a := range doc.Animations {
		p := root.push(fmt.Sprintf(".animations[%d]", i))
		out.Animations = append(out.Animations, convertAnimation(a, p, log))
	}

	return out, nil
}

func indices(in []int) []gltfasset.Index {
	out := make([]gltfasset.Index, len(in))
	for i, v := range in {
		out[i] = gltfasset.Index(v)
	}
	return out
}

func indexOrNull(p *int) gltfasset.Index {
	if p == nil {
		return gltfasset.NullIndex
	}
	return gltfasset.Index(*p)
}

func convertScene(s scene, p *pathStack) gltfasset.Scene {
	return gltfasset.Scene{Name: s.Name, Nodes: indices(s.Nodes)}
}

func convertNode(n node, p *pathStack, log *diag.Log) gltfasset.Node {
	out := gltfasset.Node{
		Name:     n.Name,
		Children: indices(n.Children),
		Mesh:     indexOrNull(n.Mesh),
		Skin:     indexOrNull(n.Skin),
		Camera:   indexOrNull(n.Camera),
		Scale:    [3]float32{1, 1, 1},
		Rotation: [4]float32{0, 0, 0, 1},
		Weights:  n.Weights,
	}
	if n.Matrix != nil {
		out.HasMatrix = true
		out.Matrix = *n.Matrix
	}
	if n.Translation != nil {
		out.Translation = *n.Translation
	}
	if n.Rotation != nil {
		out.Rotation = *n.Rotation
	}
	if n.Scale != nil {
		out.Scale = *n.Scale
	}
	if n.Camera != nil && log != nil {
		log.Report("gltfjson.camera-skipped", diag.Info, p.String(), "camera nodes are not emitted")
	}
	return out
}

func convertMesh(m mesh, p *pathStack, log *diag.Log) gltfasset.Mesh {
	out := gltfasset.Mesh{Name: m.Name, Weights: m.Weights}
	for i, pr := range m.Primitives {
		pp := p.push(fmt.Sprintf(".primitives[%d]", i))
		out.Primitives = append(out.Primitives, convertPrimitive(pr, pp, log))
	}
	return out
}

func convertPrimitive(pr primitive, p *pathStack, log *diag.Log) gltfasset.Primitive {
	attrs := make(map[string]gltfasset.Index, len(pr.Attributes))
	for k, v := range pr.Attributes {
		attrs[k] = gltfasset.Index(v)
	}
	mode := gltfasset.ModeTriangles
	if pr.Mode != nil {
		mode = gltfasset.PrimitiveMode(*pr.Mode)
	}
	out := gltfasset.Primitive{
		Attributes: attrs,
		Indices:    indexOrNull(pr.Indices),
		Material:   indexOrNull(pr.Material),
		Mode:       mode,
	}
	if len(pr.Targets) > 0 && log != nil {
		log.Report("gltfjson.morph-target-skipped", diag.Info, p.String(), "morph targets are not animated")
		for _, t := range pr.Targets {
			tgt := make(map[string]gltfasset.Index, len(t))
			for k, v := range t {
				tgt[k] = gltfasset.Index(v)
			}
			out.Targets = append(out.Targets, tgt)
		}
	}
	if pr.Extensions != nil && pr.Extensions.Draco != nil {
		d := pr.Extensions.Draco
		out.Draco = &gltfasset.Draco{BufferView: gltfasset.Index(d.BufferView), Attributes: d.Attributes}
	}
	return out
}

var componentTypeSet = map[int]bool{
	int(gltfasset.ComponentByte): true, int(gltfasset.ComponentUnsignedByte): true,
	int(gltfasset.ComponentShort): true, int(gltfasset.ComponentUnsignedShort): true,
	int(gltfasset.ComponentUnsignedInt): true, int(gltfasset.ComponentFloat): true,
}

func convertAccessor(a accessor, p *pathStack, log *diag.Log) gltfasset.Accessor {
	if !componentTypeSet[a.ComponentType] && log != nil {
		log.Report(diagBadEnum, diag.Error, p.String(), "unrecognized componentType %d", a.ComponentType)
	}
	out := gltfasset.Accessor{
		Name:          a.Name,
		BufferView:    indexOrNull(a.BufferView),
		ByteOffset:    a.ByteOffset,
		ComponentType: gltfasset.ComponentType(a.ComponentType),
		Normalized:    a.Normalized,
		Count:         a.Count,
		Type:          gltfasset.AccessorType(a.Type),
		Min:           a.Min,
		Max:           a.Max,
	}
	if out.Type.ComponentCount() == 0 && log != nil {
		log.Report(diagBadEnum, diag.Error, p.String(), "unrecognized accessor type %q", a.Type)
	}
	if a.Sparse != nil {
		out.Sparse = &gltfasset.AccessorSparse{
			Count:         a.Sparse.Count,
			IndicesView:   gltfasset.Index(a.Sparse.Indices.BufferView),
			IndicesOffset: a.Sparse.Indices.ByteOffset,
			IndicesType:   gltfasset.ComponentType(a.Sparse.Indices.ComponentType),
			ValuesView:    gltfasset.Index(a.Sparse.Values.BufferView),
			ValuesOffset:  a.Sparse.Values.ByteOffset,
		}
	}
	return out
}

func bufferView2(bv bufferView) gltfasset.BufferView {
	return gltfasset.BufferView{
		Name: bv.Name, Buffer: gltfasset.Index(bv.Buffer), ByteOffset: bv.ByteOffset,
		ByteLength: bv.ByteLength, ByteStride: bv.ByteStride, Target: bv.Target,
	}
}

func convertTextureInfo(t *textureInfo) *gltfasset.TextureInfo {
	if t == nil {
		return nil
	}
	out := &gltfasset.TextureInfo{Index: gltfasset.Index(t.Index), TexCoord: t.TexCoord}
	if t.Extensions != nil && t.Extensions.TextureTransform != nil {
		tt := t.Extensions.TextureTransform
		out.HasTransform = true
		out.Scale = [2]float32{1, 1}
		if tt.Offset != nil {
			out.Offset = *tt.Offset
		}
		out.Rotation = tt.Rotation
		if tt.Scale != nil {
			out.Scale = *tt.Scale
		}
		if tt.TexCoord != nil {
			out.TexCoord = *tt.TexCoord
		}
	}
	return out
}

func f32(p *float32, def float32) float32 {
	if p == nil {
		return def
	}
	return *p
}

func convertMaterial(m material, p *pathStack, log *diag.Log) gltfasset.Material {
	out := gltfasset.Material{
		Name:              m.Name,
		NormalTexture:     nil,
		OcclusionTexture:  nil,
		EmissiveTexture:   convertTextureInfo(m.EmissiveTexture),
		EmissiveFactor:    [3]float32{0, 0, 0},
		AlphaMode:         gltfasset.AlphaOpaque,
		AlphaCutoff:       0.5,
		DoubleSided:       m.DoubleSided,
	}
	if m.EmissiveFactor != nil {
		out.EmissiveFactor = *m.EmissiveFactor
	}
	if m.AlphaMode != "" {
		out.AlphaMode = gltfasset.AlphaMode(m.AlphaMode)
		switch out.AlphaMode {
		case gltfasset.AlphaOpaque, gltfasset.AlphaMask, gltfasset.AlphaBlend:
		default:
			if log != nil {
				log.Report(diagBadEnum, diag.Warning, p.String(), "unrecognized alphaMode %q, treating as OPAQUE", m.AlphaMode)
			}
			out.AlphaMode = gltfasset.AlphaOpaque
		}
	}
	if m.AlphaCutoff != nil {
		out.AlphaCutoff = *m.AlphaCutoff
	}
	if m.NormalTexture != nil {
		out.NormalTexture = &gltfasset.TextureInfo{Index: gltfasset.Index(m.NormalTexture.Index), TexCoord: m.NormalTexture.TexCoord}
		out.NormalScale = 1
		if m.NormalTexture.Scale != 0 {
			out.NormalScale = m.NormalTexture.Scale
		}
	}
	if m.OcclusionTexture != nil {
		out.OcclusionTexture = &gltfasset.TextureInfo{Index: gltfasset.Index(m.OcclusionTexture.Index), TexCoord: m.OcclusionTexture.TexCoord}
		out.OcclusionStrength = 1
		if m.OcclusionTexture.Strength != 0 {
			out.OcclusionStrength = m.OcclusionTexture.Strength
		}
	}
	if m.PbrMetallicRoughness != nil {
		pmr := m.PbrMetallicRoughness
		bc := [4]float32{1, 1, 1, 1}
		if pmr.BaseColorFactor != nil {
			bc = *pmr.BaseColorFactor
		}
		out.PbrMetallicRoughness = &gltfasset.PbrMetallicRoughness{
			BaseColorFactor:          bc,
			BaseColorTexture:         convertTextureInfo(pmr.BaseColorTexture),
			MetallicFactor:           f32(pmr.MetallicFactor, 1),
			RoughnessFactor:          f32(pmr.RoughnessFactor, 1),
			MetallicRoughnessTexture: convertTextureInfo(pmr.MetallicRoughnessTexture),
		}
	} else {
		out.PbrMetallicRoughness = &gltfasset.PbrMetallicRoughness{
			BaseColorFactor: [4]float32{1, 1, 1, 1}, MetallicFactor: 1, RoughnessFactor: 1,
		}
	}
	if m.Extensions != nil {
		if sg := m.Extensions.SpecGloss; sg != nil {
			df := [4]float32{1, 1, 1, 1}
			if sg.DiffuseFactor != nil {
				df = *sg.DiffuseFactor
			}
			sf := [3]float32{1, 1, 1}
			if sg.SpecularFactor != nil {
				sf = *sg.SpecularFactor
			}
			out.SpecGloss = &gltfasset.PbrSpecularGlossiness{
				DiffuseFactor:             df,
				DiffuseTexture:            convertTextureInfo(sg.DiffuseTexture),
				SpecularFactor:            sf,
				GlossinessFactor:          f32(sg.GlossinessFactor, 1),
				SpecularGlossinessTexture: convertTextureInfo(sg.SpecularGlossinessTexture),
			}
		}
		if m.Extensions.Unlit != nil {
			out.Unlit = true
		}
	}
	return out
}

func convertTexture(t texture) gltfasset.Texture {
	return gltfasset.Texture{Name: t.Name, Sampler: indexOrNull(t.Sampler), Source: indexOrNull(t.Source)}
}

func convertImage(im image) gltfasset.Image {
	return gltfasset.Image{Name: im.Name, URI: im.URI, MimeType: im.MimeType, BufferView: indexOrNull(im.BufferView)}
}

func convertSkin(s skin, p *pathStack) gltfasset.Skin {
	return gltfasset.Skin{
		Name:                s.Name,
		InverseBindMatrices: indexOrNull(s.InverseBindMatrices),
		Skeleton:            indexOrNull(s.Skeleton),
		Joints:              indices(s.Joints),
	}
}

func convertAnimation(a animation, p *pathStack, log *diag.Log) gltfasset.Animation {
	out := gltfasset.Animation{Name: a.Name}
	for _, c := range a.Channels {
		path := gltfasset.AnimPath(c.Target.Path)
		switch path {
		case gltfasset.PathTranslation, gltfasset.PathRotation, gltfasset.PathScale, gltfasset.PathWeights:
		default:
			if log != nil {
				log.Report(diagBadEnum, diag.Warning, p.String(), "unrecognized animation target path %q", c.Target.Path)
			}
		}
		out.Channels = append(out.Channels, gltfasset.AnimChannel{
			Sampler: gltfasset.Index(c.Sampler),
			Target:  gltfasset.AnimTarget{Node: indexOrNull(c.Target.Node), Path: path},
		})
	}
	for _, s := range a.Samplers {
		interp := gltfasset.InterpLinear
		if s.Interpolation != "" {
			interp = gltfasset.Interpolation(s.Interpolation)
		}
		out.Samplers = append(out.Samplers, gltfasset.AnimSampler{
			Input: gltfasset.Index(s.Input), Output: gltfasset.Index(s.Output), Interpolation: interp,
		})
	}
	return out
}
