// Package gltfjson contains the glTF 2.0 JSON wire schema and the loader
// that turns it into a gltfasset.Document. The wire types map directly to
// the glTF 2.0 JSON schema; Load walks them once, reporting path-stack
// diagnostics for anything malformed, and produces the closed-enum,
// index-resolved tree everything downstream consumes.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package gltfjson

// --- Root ---

type document struct {
	Asset              asset            `json:"asset"`
	Scene              *int             `json:"scene,omitempty"`
	Scenes             []scene          `json:"scenes,omitempty"`
	Nodes              []node           `json:"nodes,omitempty"`
	Meshes             []mesh           `json:"meshes,omitempty"`
	Accessors          []accessor       `json:"accessors,omitempty"`
	BufferViews        []bufferView     `json:"bufferViews,omitempty"`
	Buffers            []buffer         `json:"buffers,omitempty"`
	Materials          []material       `json:"materials,omitempty"`
	Textures           []texture        `json:"textures,omitempty"`
	Images             []image          `json:"images,omitempty"`
	Samplers           []sampler        `json:"samplers,omitempty"`
	Skins              []skin           `json:"skins,omitempty"`
	Animations         []animation      `json:"animations,omitempty"`
	ExtensionsUsed     []string         `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string         `json:"extensionsRequired,omitempty"`
}

type asset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

type scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

type node struct {
	Name        string     `json:"name,omitempty"`
	Children    []int      `json:"children,omitempty"`
	Mesh        *int       `json:"mesh,omitempty"`
	Skin        *int       `json:"skin,omitempty"`
	Camera      *int       `json:"camera,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
	Weights     []float32  `json:"weights,omitempty"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
	Weights    []float32   `json:"weights,omitempty"`
}

type dracoExtension struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}

type primitiveExtensions struct {
	Draco *dracoExtension `json:"KHR_draco_mesh_compression,omitempty"`
}

type primitive struct {
	Attributes map[string]int       `json:"attributes"`
	Indices    *int                 `json:"indices,omitempty"`
	Material   *int                 `json:"material,omitempty"`
	Mode       *int                 `json:"mode,omitempty"`
	Targets    []map[string]int     `json:"targets,omitempty"`
	Extensions *primitiveExtensions `json:"extensions,omitempty"`
}

type accessorSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

type accessorSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

type accessorSparse struct {
	Count   int                   `json:"count"`
	Indices accessorSparseIndices `json:"indices"`
	Values  accessorSparseValues  `json:"values"`
}

type accessor struct {
	Name          string          `json:"name,omitempty"`
	BufferView    *int            `json:"bufferView,omitempty"`
	ByteOffset    int             `json:"byteOffset,omitempty"`
	ComponentType int             `json:"componentType"`
	Normalized    bool            `json:"normalized,omitempty"`
	Count         int             `json:"count"`
	Type          string          `json:"type"`
	Min           []float64       `json:"min,omitempty"`
	Max           []float64       `json:"max,omitempty"`
	Sparse        *accessorSparse `json:"sparse,omitempty"`
}

type bufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"`
	Target     int    `json:"target,omitempty"`
}

type buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

type textureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

type textureInfoExtensions struct {
	TextureTransform *textureTransform `json:"KHR_texture_transform,omitempty"`
}

type textureInfo struct {
	Index      int                    `json:"index"`
	TexCoord   int                    `json:"texCoord,omitempty"`
	Extensions *textureInfoExtensions `json:"extensions,omitempty"`
}

type pbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *textureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *textureInfo `json:"metallicRoughnessTexture,omitempty"`
}

type pbrSpecularGlossiness struct {
	DiffuseFactor             *[4]float32  `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *textureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float32  `json:"specularFactor,omitempty"`
	GlossinessFactor          *float32     `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *textureInfo `json:"specularGlossinessTexture,omitempty"`
}

type materialExtensions struct {
	SpecGloss *pbrSpecularGlossiness `json:"KHR_materials_pbrSpecularGlossiness,omitempty"`
	Unlit     *struct{}              `json:"KHR_materials_unlit,omitempty"`
}

type normalTextureInfo struct {
	Index    int     `json:"index"`
	TexCoord int     `json:"texCoord,omitempty"`
	Scale    float32 `json:"scale,omitempty"`
}

type occlusionTextureInfo struct {
	Index    int     `json:"index"`
	TexCoord int     `json:"texCoord,omitempty"`
	Strength float32 `json:"strength,omitempty"`
}

type material struct {
	Name                 string                `json:"name,omitempty"`
	PbrMetallicRoughness *pbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *normalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *occlusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *textureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32           `json:"emissiveFactor,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32              `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
	Extensions           *materialExtensions   `json:"extensions,omitempty"`
}

type texture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

type image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

type sampler struct {
	Name      string `json:"name,omitempty"`
	MagFilter int    `json:"magFilter,omitempty"`
	MinFilter int    `json:"minFilter,omitempty"`
	WrapS     int    `json:"wrapS,omitempty"`
	WrapT     int    `json:"wrapT,omitempty"`
}

type skin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

type animationTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

type animationChannel struct {
	Sampler int             `json:"sampler"`
	Target  animationTarget `json:"target"`
}

type animationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

type animation struct {
	Name     string             `json:"name,omitempty"`
	Channels []animationChannel `json:"channels"`
	Samplers []animationSampler `json:"samplers"`
}
