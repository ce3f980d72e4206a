// Package gltfasset defines the in-memory glTF 2.0 intermediate representation.
// These types mirror the glTF JSON schema closely; gltfjson populates them and
// everything downstream (validate, access, meshbuild, skinbuild, animkey,
// convert) reads them as an immutable tree.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package gltfasset

// Index is a stable reference into one of the Document's parallel tables.
// glTF indices are logically 16-bit; Go has no unsigned-with-sentinel
// primitive so this is an int32 with NullIndex standing in for "absent".
// Indices are assigned at load time and never reordered afterward.
type Index int32

// NullIndex is the sentinel for an absent/unset index reference.
const NullIndex Index = -1

// Valid reports whether the index refers to an element of a table of the
// given length.
func (i Index) Valid(length int) bool {
	return i >= 0 && int(i) < length
}

// ComponentType is the accessor component type enum (WebGL-derived numeric
// constants, decoded via the integer-to-index table in gltfjson).
type ComponentType int

const (
	ComponentByte          ComponentType = 5120
	ComponentUnsignedByte  ComponentType = 5121
	ComponentShort         ComponentType = 5122
	ComponentUnsignedShort ComponentType = 5123
	ComponentUnsignedInt   ComponentType = 5125
	ComponentFloat         ComponentType = 5126
)

// Size returns the byte size of one component of this type, or 0 if unknown.
func (c ComponentType) Size() int {
	switch c {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

// AccessorType is the element shape enum (string-valued in JSON).
type AccessorType string

const (
	TypeScalar AccessorType = "SCALAR"
	TypeVec2   AccessorType = "VEC2"
	TypeVec3   AccessorType = "VEC3"
	TypeVec4   AccessorType = "VEC4"
	TypeMat2   AccessorType = "MAT2"
	TypeMat3   AccessorType = "MAT3"
	TypeMat4   AccessorType = "MAT4"
)

// ComponentCount returns the number of scalar components per element.
func (t AccessorType) ComponentCount() int {
	switch t {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// PrimitiveMode is the primitive topology enum.
type PrimitiveMode int

const (
	ModePoints        PrimitiveMode = 0
	ModeLines         PrimitiveMode = 1
	ModeLineLoop      PrimitiveMode = 2
	ModeLineStrip     PrimitiveMode = 3
	ModeTriangles     PrimitiveMode = 4
	ModeTriangleStrip PrimitiveMode = 5
	ModeTriangleFan   PrimitiveMode = 6
)

// AlphaMode is the material alpha rendering mode.
type AlphaMode string

const (
	AlphaOpaque AlphaMode = "OPAQUE"
	AlphaMask   AlphaMode = "MASK"
	AlphaBlend  AlphaMode = "BLEND"
)

// Interpolation is the animation sampler interpolation mode.
type Interpolation string

const (
	InterpLinear      Interpolation = "LINEAR"
	InterpStep        Interpolation = "STEP"
	InterpCubicSpline Interpolation = "CUBICSPLINE"
)

// AnimPath is the animated property targeted by a channel.
type AnimPath string

const (
	PathTranslation AnimPath = "translation"
	PathRotation    AnimPath = "rotation"
	PathScale       AnimPath = "scale"
	PathWeights     AnimPath = "weights"
)

// Document is the fully loaded glTF asset: parallel indexed tables plus
// asset metadata. Cross-references between tables are Index values. Once
// built by gltfjson.Load, a Document is treated as immutable.
type Document struct {
	Version            string
	MinVersion         string
	Generator          string
	Copyright          string

	DefaultScene Index
	Scenes       []Scene
	Nodes        []Node
	Meshes       []Mesh
	Accessors    []Accessor
	BufferViews  []BufferView
	Buffers      []Buffer
	Materials    []Material
	Textures     []Texture
	Images       []Image
	Samplers     []Sampler
	Skins        []Skin
	Animations   []Animation

	ExtensionsUsed     []string
	ExtensionsRequired []string
}

type Scene struct {
	Name  string
	Nodes []Index
}

type Node struct {
	Name     string
	Children []Index
	Mesh     Index
	Skin     Index
	Camera   Index

	HasMatrix bool
	Matrix    [16]float32

	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32

	Weights []float32
}

type Mesh struct {
	Name       string
	Primitives []Primitive
	Weights    []float32
}

// Draco describes the KHR_draco_mesh_compression extension block on a
// primitive. Decoding itself is external (spec.md §1 scope); this struct is
// only the reference the mesh assembler hands to the decoder collaborator.
type Draco struct {
	BufferView Index
	Attributes map[string]int // semantic -> Draco attribute ID
}

type Primitive struct {
	Attributes map[string]Index
	Indices    Index
	Material   Index
	Mode       PrimitiveMode

	Draco *Draco

	// Targets are morph-target attribute sets; read only far enough to emit
	// the one-time morph-target diagnostic (spec.md Non-goals).
	Targets []map[string]Index
}

type AccessorSparse struct {
	Count         int
	IndicesView   Index
	IndicesOffset int
	IndicesType   ComponentType
	ValuesView    Index
	ValuesOffset  int
}

type Accessor struct {
	Name          string
	BufferView    Index
	ByteOffset    int
	ComponentType ComponentType
	Normalized    bool
	Count         int
	Type          AccessorType
	Min, Max      []float64
	Sparse        *AccessorSparse
}

type BufferView struct {
	Name       string
	Buffer     Index
	ByteOffset int
	ByteLength int
	ByteStride int // 0 means "tightly packed"
	Target     int
}

type Buffer struct {
	Name       string
	URI        string
	ByteLength int
	Data       []byte // not populated by the loader or by access.Cache, which keeps buffer bytes itself
}

type TextureInfo struct {
	Index    Index
	TexCoord int

	// KHR_texture_transform, when present on this texture reference.
	HasTransform bool
	Offset       [2]float32
	Rotation     float32
	Scale        [2]float32
}

type PbrMetallicRoughness struct {
	BaseColorFactor          [4]float32
	BaseColorTexture         *TextureInfo
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureInfo
}

// PbrSpecularGlossiness is the KHR_materials_pbrSpecularGlossiness extension.
type PbrSpecularGlossiness struct {
	DiffuseFactor             [4]float32
	DiffuseTexture            *TextureInfo
	SpecularFactor            [3]float32
	GlossinessFactor          float32
	SpecularGlossinessTexture *TextureInfo
}

type Material struct {
	Name string

	PbrMetallicRoughness *PbrMetallicRoughness
	SpecGloss            *PbrSpecularGlossiness

	NormalTexture    *TextureInfo
	NormalScale      float32
	OcclusionTexture *TextureInfo
	OcclusionStrength float32
	EmissiveTexture  *TextureInfo
	EmissiveFactor   [3]float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool
	Unlit       bool
}

type Texture struct {
	Name    string
	Sampler Index
	Source  Index
}

type Image struct {
	Name       string
	URI        string
	MimeType   string
	BufferView Index
}

type Sampler struct {
	Name      string
	MagFilter int
	MinFilter int
	WrapS     int
	WrapT     int
}

type Skin struct {
	Name                 string
	InverseBindMatrices  Index
	Skeleton             Index
	Joints               []Index
}

type AnimTarget struct {
	Node Index
	Path AnimPath
}

type AnimChannel struct {
	Sampler Index
	Target  AnimTarget
}

type AnimSampler struct {
	Input         Index
	Output        Index
	Interpolation Interpolation
}

type Animation struct {
	Name     string
	Channels []AnimChannel
	Samplers []AnimSampler
}

// GLB container constants (spec.md §4.1 / §6).
const (
	GLBMagic     uint32 = 0x46546C67 // "glTF"
	GLBVersion   uint32 = 2
	GLBChunkJSON uint32 = 0x4E4F534A // "JSON"
	GLBChunkBIN  uint32 = 0x004E4942 // "BIN\x00"
)
