package materialize

import (
	"image"
	"image/color"
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

func TestDedupMergesIdenticalMaterials(t *testing.T) {
	doc := &gltfasset.Document{
		Materials: []gltfasset.Material{
			{
				Name: "a",
				PbrMetallicRoughness: &gltfasset.PbrMetallicRoughness{
					BaseColorFactor: [4]float32{1, 0, 0, 1},
					MetallicFactor:  1,
					RoughnessFactor: 0.5,
				},
			},
			{
				Name: "b", // different name, identical content
				PbrMetallicRoughness: &gltfasset.PbrMetallicRoughness{
					BaseColorFactor: [4]float32{1, 0, 0, 1},
					MetallicFactor:  1,
					RoughnessFactor: 0.5,
				},
			},
			{
				Name: "c",
				PbrMetallicRoughness: &gltfasset.PbrMetallicRoughness{
					BaseColorFactor: [4]float32{0, 1, 0, 1},
					MetallicFactor:  1,
					RoughnessFactor: 0.5,
				},
			},
		},
	}

	remap, canonical := Dedup(doc)
	if remap[0] != 0 || remap[1] != 0 {
		t.Errorf("remap = %v, want material 1 to canonicalize to 0", remap)
	}
	if remap[2] != 2 {
		t.Errorf("remap[2] = %d, want 2 (distinct material)", remap[2])
	}
	if len(canonical) != 2 || canonical[0] != 0 || canonical[1] != 2 {
		t.Errorf("canonical = %v, want [0 2]", canonical)
	}
}

func TestDedupDistinguishesTextureReferences(t *testing.T) {
	doc := &gltfasset.Document{
		Materials: []gltfasset.Material{
			{PbrMetallicRoughness: &gltfasset.PbrMetallicRoughness{
				BaseColorTexture: &gltfasset.TextureInfo{Index: 0},
			}},
			{PbrMetallicRoughness: &gltfasset.PbrMetallicRoughness{
				BaseColorTexture: &gltfasset.TextureInfo{Index: 1},
			}},
		},
	}
	remap, canonical := Dedup(doc)
	if remap[0] == remap[1] {
		t.Errorf("materials referencing different textures should not dedup, remap=%v", remap)
	}
	if len(canonical) != 2 {
		t.Errorf("canonical = %v, want 2 distinct entries", canonical)
	}
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestConvertSpecGlossToMetalRoughFullyMetallic(t *testing.T) {
	// A bright, fully-reflective specular color with near-black diffuse is
	// the classic "this is a metal" case: solveMetallic should saturate
	// near 1 and base color should track the specular color, not diffuse.
	diffuse := solidImage(1, 1, color.NRGBA{0, 0, 0, 255})
	specular := solidImage(1, 1, color.NRGBA{200, 180, 120, 255})

	base, metal := ConvertSpecGlossToMetalRough(diffuse, Color{1, 1, 1, 1}, specular, [3]float32{1, 1, 1})

	mr, _, _, _ := metal.At(0, 0).RGBA()
	if mr>>8 < 200 {
		t.Errorf("expected high metallic value for bright specular/dark diffuse, got %d", mr>>8)
	}
	br, bg, bb, _ := base.At(0, 0).RGBA()
	if br>>8 < 150 || bg>>8 < 130 {
		t.Errorf("base color should track specular color when metallic, got (%d,%d,%d)", br>>8, bg>>8, bb>>8)
	}
}

func TestConvertSpecGlossToMetalRoughFullyDielectric(t *testing.T) {
	// Below the dielectric-specular threshold, metallic must be exactly 0
	// and base color should track diffuse.
	diffuse := solidImage(1, 1, color.NRGBA{180, 60, 60, 255})
	specular := solidImage(1, 1, color.NRGBA{2, 2, 2, 255})

	base, metal := ConvertSpecGlossToMetalRough(diffuse, Color{1, 1, 1, 1}, specular, [3]float32{1, 1, 1})

	mr, _, _, _ := metal.At(0, 0).RGBA()
	if mr>>8 != 0 {
		t.Errorf("expected metallic=0 below dielectric threshold, got %d", mr>>8)
	}
	br, _, _, _ := base.At(0, 0).RGBA()
	if br>>8 < 150 {
		t.Errorf("base color should track diffuse color when dielectric, got r=%d", br>>8)
	}
}

func TestGetSolidAlphaUniform(t *testing.T) {
	img := solidImage(2, 2, color.NRGBA{10, 20, 30, 128})
	p := &Processed{Name: "t", Img: img}
	if a := GetSolidAlpha(p); a != 128 {
		t.Errorf("GetSolidAlpha = %d, want 128", a)
	}
}

func TestGetSolidAlphaVaryingReturnsNegativeOne(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{0, 0, 0, 0})
	img.Set(1, 0, color.NRGBA{0, 0, 0, 255})
	p := &Processed{Name: "t", Img: img}
	if a := GetSolidAlpha(p); a != -1 {
		t.Errorf("GetSolidAlpha = %d, want -1 for varying alpha", a)
	}
}

func TestBakeClampsToUnitRange(t *testing.T) {
	if v := bake(0.9, 2, 0); v != 1 {
		t.Errorf("bake overflow = %v, want clamped to 1", v)
	}
	if v := bake(0.1, 1, -1); v != 0 {
		t.Errorf("bake underflow = %v, want clamped to 0", v)
	}
}
