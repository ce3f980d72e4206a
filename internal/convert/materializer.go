package convert

import (
	"fmt"

	"github.com/gltf2usd/gltf2usd/internal/access"
	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/materialize"
	"github.com/gltf2usd/gltf2usd/internal/usdstage"
)

// materializer resolves glTF materials/textures into usdstage.MaterialDesc
// values, deduplicating by content and routing every texture read through
// a materialize.Texturator (spec.md §2 "Materializer").
type materializer struct {
	doc   *gltfasset.Document
	cache *access.Cache
	src   container.Source
	tex   *materialize.Texturator
	opts  *Options

	remap     []int
	canonical []int
	resolved  map[int]string // canonical material index -> USD material path
}

func newMaterializer(doc *gltfasset.Document, cache *access.Cache, src container.Source, opts *Options) *materializer {
	remap, canonical := materialize.Dedup(doc)
	enc := materialize.EncodeOptions{JPEGQuality: opts.JPEGQuality, PNGCompactCompression: opts.PNGCompactCompression}
	return &materializer{
		doc: doc, cache: cache, src: src, opts: opts,
		tex:       materialize.New(src, enc),
		remap:     remap,
		canonical: canonical,
		resolved:  make(map[int]string),
	}
}

// materialPathFor returns (building it on first use) the USD material
// path for the material bound to matIdx, after deduplication.
func (m *materializer) materialPathFor(stage usdstage.Stage, matIdx gltfasset.Index) (string, error) {
	if !matIdx.Valid(len(m.doc.Materials)) {
		return "", nil
	}
	canon := matIdx
	if m.opts.MergeIdenticalMaterials {
		canon = gltfasset.Index(m.remap[int(matIdx)])
	}
	if path, ok := m.resolved[int(canon)]; ok {
		return path, nil
	}

	mat := &m.doc.Materials[canon]
	desc, err := m.buildMaterialDesc(mat, int(canon))
	if err != nil {
		return "", err
	}
	name := mat.Name
	if name == "" {
		name = fmt.Sprintf("material%d", canon)
	}
	path := "/Materials/" + sanitizeUSDName(name)
	if _, err := stage.AddMaterial(path, desc); err != nil {
		return "", err
	}
	m.resolved[int(canon)] = path
	return path, nil
}

func (m *materializer) buildMaterialDesc(mat *gltfasset.Material, matIdx int) (usdstage.MaterialDesc, error) {
	desc := usdstage.MaterialDesc{
		DisplayName:    mat.Name,
		EmissiveFactor: mat.EmissiveFactor,
		Opacity:        1,
		Unlit:          mat.Unlit,
		DoubleSided:    mat.DoubleSided,
	}
	if mat.AlphaMode == gltfasset.AlphaMask {
		desc.AlphaCutoff = mat.AlphaCutoff
	}

	switch {
	case mat.SpecGloss != nil:
		if err := m.applySpecGloss(mat, matIdx, &desc); err != nil {
			return desc, err
		}
	case mat.PbrMetallicRoughness != nil:
		m.applyMetalRough(mat.PbrMetallicRoughness, matIdx, &desc)
	default:
		desc.BaseColorFactor = [4]float32{1, 1, 1, 1}
		desc.RoughnessFactor = 1
	}

	if mat.NormalTexture != nil {
		if path, err := m.addTexture(mat.NormalTexture.Index, matIdx, "norm", materialize.Args{Usage: materialize.UsageNormal, Fallback: materialize.FallbackR1}); err == nil {
			desc.NormalTex = path
			desc.NormalScale = mat.NormalScale
		}
	}
	if mat.OcclusionTexture != nil {
		if path, err := m.addTexture(mat.OcclusionTexture.Index, matIdx, "occl", materialize.Args{Usage: materialize.UsageOcclusion, Fallback: materialize.FallbackR1}); err == nil {
			desc.OcclusionTex = path
		}
	}
	if mat.EmissiveTexture != nil {
		if path, err := m.addTexture(mat.EmissiveTexture.Index, matIdx, "emissive", materialize.Args{Usage: materialize.UsageDefault, Fallback: materialize.FallbackBlack}); err == nil {
			desc.EmissiveTex = path
		}
	}
	return desc, nil
}

func (m *materializer) applyMetalRough(pbr *gltfasset.PbrMetallicRoughness, matIdx int, desc *usdstage.MaterialDesc) {
	desc.BaseColorFactor = pbr.BaseColorFactor
	desc.MetallicFactor = pbr.MetallicFactor
	desc.RoughnessFactor = pbr.RoughnessFactor
	desc.Opacity = pbr.BaseColorFactor[3]

	if pbr.BaseColorTexture != nil {
		if path, err := m.addTexture(pbr.BaseColorTexture.Index, matIdx, "basecolor", materialize.Args{Usage: materialize.UsageDefault, Fallback: materialize.FallbackMagenta}); err == nil {
			desc.BaseColorTex = path
		}
	}
	if pbr.MetallicRoughnessTexture != nil {
		if path, err := m.addTexture(pbr.MetallicRoughnessTexture.Index, matIdx, "metal", materialize.Args{Usage: materialize.UsageMetallic, Fallback: materialize.FallbackR1}); err == nil {
			desc.MetallicTex = path
		}
		if path, err := m.addTexture(pbr.MetallicRoughnessTexture.Index, matIdx, "rough", materialize.Args{Usage: materialize.UsageRoughness, Fallback: materialize.FallbackR1}); err == nil {
			desc.RoughnessTex = path
		}
	}
}

// applySpecGloss converts a KHR_materials_pbrSpecularGlossiness material
// to the metallic-roughness model UsdPreviewSurface expects (spec.md §2
// "Materializer... spec-gloss→metal-rough remap"). Factor-only conversion
// always runs; texture-level packing via ConvertSpecGlossToMetalRough only
// runs when both a diffuse and specular-glossiness texture are present.
func (m *materializer) applySpecGloss(mat *gltfasset.Material, matIdx int, desc *usdstage.MaterialDesc) error {
	sg := mat.SpecGloss
	diffuse := materialize.Color{sg.DiffuseFactor[0], sg.DiffuseFactor[1], sg.DiffuseFactor[2], sg.DiffuseFactor[3]}
	base, metal := materialize.ConvertSpecGlossFactors(diffuse, sg.SpecularFactor)
	desc.BaseColorFactor = base
	desc.MetallicFactor = metal
	desc.RoughnessFactor = 1 - sg.GlossinessFactor
	desc.Opacity = sg.DiffuseFactor[3]

	if sg.DiffuseTexture == nil || sg.SpecularGlossinessTexture == nil {
		if sg.DiffuseTexture != nil {
			if path, err := m.addTexture(sg.DiffuseTexture.Index, matIdx, "basecolor", materialize.Args{Usage: materialize.UsageDefault, Fallback: materialize.FallbackMagenta}); err == nil {
				desc.BaseColorTex = path
			}
		}
		if sg.SpecularGlossinessTexture != nil {
			if path, err := m.addTexture(sg.SpecularGlossinessTexture.Index, matIdx, "rough", materialize.Args{Usage: materialize.UsageGlossToRough, Fallback: materialize.FallbackR1}); err == nil {
				desc.RoughnessTex = path
			}
		}
		return nil
	}

	diffURI, diffMime, diffRaw, err := m.resolveImage(sg.DiffuseTexture.Index)
	if err != nil {
		return nil // missing texture: factor-only conversion above still applies
	}
	specURI, specMime, specRaw, err := m.resolveImage(sg.SpecularGlossinessTexture.Index)
	if err != nil {
		return nil
	}
	diffImgID := m.imageIDFor(sg.DiffuseTexture.Index)
	specImgID := m.imageIDFor(sg.SpecularGlossinessTexture.Index)

	basep, metalp, err := m.tex.AddSpecToMetal(diffImgID, diffURI, diffMime, diffRaw, diffuse, specImgID, specURI, specMime, specRaw, sg.SpecularFactor)
	if err != nil {
		return nil
	}
	if err := m.tex.Encode(basep, m.texturePath(matIdx, "basecolor")); err == nil {
		desc.BaseColorTex = m.texturePath(matIdx, "basecolor")
	}
	if err := m.tex.Encode(metalp, m.texturePath(matIdx, "metal")); err == nil {
		desc.MetallicTex = m.texturePath(matIdx, "metal")
	}
	if path, err := m.addTexture(sg.SpecularGlossinessTexture.Index, matIdx, "rough", materialize.Args{Usage: materialize.UsageGlossToRough, Fallback: materialize.FallbackR1}); err == nil {
		desc.RoughnessTex = path
	}
	return nil
}

func (m *materializer) addTexture(texIdx gltfasset.Index, matIdx int, suffix string, args materialize.Args) (string, error) {
	uri, mime, raw, err := m.resolveImage(texIdx)
	if err != nil {
		return "", err
	}
	imgID := m.imageIDFor(texIdx)
	p, err := m.tex.Add(imgID, uri, mime, raw, args)
	if err != nil {
		return "", err
	}
	path := m.texturePath(matIdx, suffix)
	if err := m.tex.Encode(p, path); err != nil {
		return "", err
	}
	return path, nil
}

func (m *materializer) imageIDFor(texIdx gltfasset.Index) int {
	if !texIdx.Valid(len(m.doc.Textures)) {
		return -1
	}
	return int(m.doc.Textures[texIdx].Source)
}

func (m *materializer) texturePath(matIdx int, suffix string) string {
	ext := ".png"
	if m.opts.PreferJPEG && (suffix == "basecolor" || suffix == "emissive") {
		ext = ".jpg"
	}
	return fmt.Sprintf("textures/mat%d_%s%s", matIdx, suffix, ext)
}

// resolveImage returns the URI/mime/raw-bytes triple addTexture and
// applySpecGloss need, resolving either a URI-backed or bufferView-backed
// glTF Image.
func (m *materializer) resolveImage(texIdx gltfasset.Index) (uri, mime string, raw []byte, err error) {
	if !texIdx.Valid(len(m.doc.Textures)) {
		return "", "", nil, fmt.Errorf("convert: texture index %d out of range", texIdx)
	}
	tex := m.doc.Textures[texIdx]
	if !tex.Source.Valid(len(m.doc.Images)) {
		return "", "", nil, fmt.Errorf("convert: texture %d has no image source", texIdx)
	}
	img := m.doc.Images[tex.Source]
	if img.URI != "" {
		return img.URI, img.MimeType, nil, nil
	}
	if !img.BufferView.Valid(len(m.doc.BufferViews)) {
		return "", "", nil, fmt.Errorf("convert: image %d has neither URI nor bufferView", tex.Source)
	}
	bv := m.doc.BufferViews[img.BufferView]
	bytes, err := m.cache.BufferBytes(bv.Buffer)
	if err != nil {
		return "", "", nil, err
	}
	end := bv.ByteOffset + bv.ByteLength
	if end > len(bytes) {
		return "", "", nil, fmt.Errorf("convert: image %d bufferView out of range", tex.Source)
	}
	return "", img.MimeType, bytes[bv.ByteOffset:end], nil
}

// SanitizeName exports sanitizeUSDName for callers outside this package
// (cmd/gltf2usd derives the root Xform's name from the output filename,
// spec.md §6 "root Xform prim named from the sanitized output filename").
func SanitizeName(name string) string { return sanitizeUSDName(name) }

func sanitizeUSDName(name string) string {
	out := []rune(name)
	for i, r := range out {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]rune{'_'}, out...)
	}
	return string(out)
}
