package materialize

import "github.com/gltf2usd/gltf2usd/internal/gltfasset"

// textureKey is a value-comparable flattening of *gltfasset.TextureInfo
// (which must be compared by pointed-to content, not pointer identity),
// so materialKey itself stays a plain comparable struct usable as a map
// key — the same intent as materializer.h's Key wrapping Gltf::Compare.
type textureKey struct {
	present      bool
	index        gltfasset.Index
	texCoord     int
	hasTransform bool
	offset       [2]float32
	rotation     float32
	scale        [2]float32
}

func toTextureKey(t *gltfasset.TextureInfo) textureKey {
	if t == nil {
		return textureKey{}
	}
	return textureKey{
		present:      true,
		index:        t.Index,
		texCoord:     t.TexCoord,
		hasTransform: t.HasTransform,
		offset:       t.Offset,
		rotation:     t.Rotation,
		scale:        t.Scale,
	}
}

// materialKey is every field of gltfasset.Material flattened into value
// types, so two materials with identical content (regardless of which
// index they live at, or their Name) compare `==`.
type materialKey struct {
	hasPBR                   bool
	baseColorFactor          [4]float32
	baseColorTexture         textureKey
	metallicFactor           float32
	roughnessFactor          float32
	metallicRoughnessTexture textureKey

	hasSpecGloss              bool
	diffuseFactor             [4]float32
	diffuseTexture            textureKey
	specularFactor            [3]float32
	glossinessFactor          float32
	specularGlossinessTexture textureKey

	normalTexture     textureKey
	normalScale       float32
	occlusionTexture  textureKey
	occlusionStrength float32
	emissiveTexture   textureKey
	emissiveFactor    [3]float32

	alphaMode   gltfasset.AlphaMode
	alphaCutoff float32
	doubleSided bool
	unlit       bool
}

func keyOf(m *gltfasset.Material) materialKey {
	k := materialKey{
		normalTexture:     toTextureKey(m.NormalTexture),
		normalScale:       m.NormalScale,
		occlusionTexture:  toTextureKey(m.OcclusionTexture),
		occlusionStrength: m.OcclusionStrength,
		emissiveTexture:   toTextureKey(m.EmissiveTexture),
		emissiveFactor:    m.EmissiveFactor,
		alphaMode:         m.AlphaMode,
		alphaCutoff:       m.AlphaCutoff,
		doubleSided:       m.DoubleSided,
		unlit:             m.Unlit,
	}
	if m.PbrMetallicRoughness != nil {
		k.hasPBR = true
		k.baseColorFactor = m.PbrMetallicRoughness.BaseColorFactor
		k.baseColorTexture = toTextureKey(m.PbrMetallicRoughness.BaseColorTexture)
		k.metallicFactor = m.PbrMetallicRoughness.MetallicFactor
		k.roughnessFactor = m.PbrMetallicRoughness.RoughnessFactor
		k.metallicRoughnessTexture = toTextureKey(m.PbrMetallicRoughness.MetallicRoughnessTexture)
	}
	if m.SpecGloss != nil {
		k.hasSpecGloss = true
		k.diffuseFactor = m.SpecGloss.DiffuseFactor
		k.diffuseTexture = toTextureKey(m.SpecGloss.DiffuseTexture)
		k.specularFactor = m.SpecGloss.SpecularFactor
		k.glossinessFactor = m.SpecGloss.GlossinessFactor
		k.specularGlossinessTexture = toTextureKey(m.SpecGloss.SpecularGlossinessTexture)
	}
	return k
}

// Dedup maps every material index in doc to the index of the first
// material with byte-for-byte identical content (materializer.h's Map
// keyed on Gltf::Compare), so the orchestrator only ever asks the
// Texturator/usdstage for one USD material per distinct definition.
// Canonical returns the de-duplicated index list in first-seen order.
func Dedup(doc *gltfasset.Document) (remap []int, canonical []int) {
	remap = make([]int, len(doc.Materials))
	seen := make(map[materialKey]int, len(doc.Materials))
	for i := range doc.Materials {
		k := keyOf(&doc.Materials[i])
		if first, ok := seen[k]; ok {
			remap[i] = first
			continue
		}
		seen[k] = i
		remap[i] = i
		canonical = append(canonical, i)
	}
	return remap, canonical
}
