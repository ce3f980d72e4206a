package usdstage

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Writer accumulates prims as plain text blocks and emits a single USDA
// ASCII document on Save, grouped by prim kind (Xforms and meshes, skinned
// meshes, skeletons, animations) and in declaration order within each
// group, with materials always rendered last (so forward references inside Writer's own output read
// cleanly, matching how a real USD crate file allows any order but this
// hand-rolled emitter avoids needing true prim-graph resolution).
type Writer struct {
	RootName      string
	MetersPerUnit float64

	xforms        []prim
	meshes        []prim
	skinnedMeshes []prim
	skeletons     []prim
	skelAnims     []prim
	materials     []prim
}

type prim struct {
	path string
	body string
}

// New constructs a Writer for a root Xform prim named rootName (spec.md §6
// "single root Xform prim named from the sanitized output filename, with
// model kind component").
func New(rootName string) *Writer {
	return &Writer{RootName: rootName, MetersPerUnit: 1}
}

func (w *Writer) AddXform(path string, desc XformDesc) error {
	var b strings.Builder
	fmt.Fprintf(&b, "def Xform %q\n{\n", leafName(path))
	fmt.Fprintf(&b, "    matrix4d xformOp:transform = %s\n", mat4Literal(desc.Matrix))
	b.WriteString("    uniform token[] xformOpOrder = [\"xformOp:transform\"]\n}\n")
	w.xforms = append(w.xforms, prim{path: path, body: b.String()})
	return nil
}

func (w *Writer) AddMesh(path string, desc MeshDesc) error {
	if len(desc.Points) == 0 {
		return fmt.Errorf("usdstage: mesh %s has no points", path)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "def Mesh %q\n{\n", leafName(path))
	b.WriteString("    uniform token subdivisionScheme = \"none\"\n")
	b.WriteString("    uniform token interpolateBoundary = \"none\"\n")

	indices := desc.FaceVertexIndices
	if desc.ReverseWound {
		indices = reverseTriangleWinding(indices)
	}

	fmt.Fprintf(&b, "    int[] faceVertexCounts = %s\n", intArrayLiteral(desc.FaceVertexCounts))
	fmt.Fprintf(&b, "    int[] faceVertexIndices = %s\n", intArrayLiteral(indices))
	fmt.Fprintf(&b, "    point3f[] points = %s\n", vec3ArrayLiteral(desc.Points))
	if len(desc.Normals) > 0 {
		fmt.Fprintf(&b, "    normal3f[] normals = %s (\n        interpolation = \"vertex\"\n    )\n", vec3ArrayLiteral(desc.Normals))
	}
	for i, uvs := range desc.UVSets {
		fmt.Fprintf(&b, "    texCoord2f[] primvars:st%d = %s (\n        interpolation = \"vertex\"\n    )\n", i, vec2ArrayLiteral(uvs))
	}
	if desc.Colors != nil {
		fmt.Fprintf(&b, "    color3f[] primvars:displayColor = %s (\n        interpolation = \"vertex\"\n    )\n", colorArrayLiteral(desc.Colors))
	}
	if len(desc.JointIndices) > 0 {
		fmt.Fprintf(&b, "    int[] primvars:skel:jointIndices = %s (\n        interpolation = \"vertex\"\n        elementSize = 4\n    )\n", joint4ArrayLiteral(desc.JointIndices))
		fmt.Fprintf(&b, "    float[] primvars:skel:jointWeights = %s (\n        interpolation = \"vertex\"\n        elementSize = 4\n    )\n", weight4ArrayLiteral(desc.JointWeights))
	}
	if desc.DoubleSided {
		b.WriteString("    uniform bool doubleSided = 1\n")
	}
	if desc.MaterialPath != "" {
		fmt.Fprintf(&b, "    rel material:binding = <%s>\n", desc.MaterialPath)
	}
	if desc.SkeletonPath != "" {
		fmt.Fprintf(&b, "    rel skel:skeleton = <%s>\n", desc.SkeletonPath)
	}
	b.WriteString("}\n")
	p := prim{path: path, body: b.String()}
	if desc.SkeletonPath != "" {
		w.skinnedMeshes = append(w.skinnedMeshes, p)
	} else {
		w.meshes = append(w.meshes, p)
	}
	return nil
}

func (w *Writer) AddSkeleton(path string, desc SkeletonDesc) error {
	var b strings.Builder
	fmt.Fprintf(&b, "def Skeleton %q\n{\n", leafName(path))
	fmt.Fprintf(&b, "    uniform token[] joints = %s\n", stringArrayLiteral(desc.JointPaths))
	fmt.Fprintf(&b, "    matrix4d[] bindTransforms = %s\n", mat4ArrayLiteral(desc.BindTransforms))
	fmt.Fprintf(&b, "    matrix4d[] restTransforms = %s\n", mat4ArrayLiteral(desc.RestTransforms))
	b.WriteString("}\n")
	w.skeletons = append(w.skeletons, prim{path: path, body: b.String()})
	return nil
}

func (w *Writer) AddSkelAnimation(path string, desc SkelAnimationDesc) error {
	var b strings.Builder
	fmt.Fprintf(&b, "def SkelAnimation %q\n{\n", leafName(path))
	fmt.Fprintf(&b, "    uniform token[] joints = %s\n", stringArrayLiteral(desc.JointPaths))

	if len(desc.Times) > 0 {
		b.WriteString("    quatf[] rotations.timeSamples = {\n")
		for ti, t := range desc.Times {
			fmt.Fprintf(&b, "        %s: %s,\n", timeLiteral(t), quatArrayLiteral(desc.Rotations[ti]))
		}
		b.WriteString("    }\n")

		b.WriteString("    float3[] translations.timeSamples = {\n")
		for ti, t := range desc.Times {
			fmt.Fprintf(&b, "        %s: %s,\n", timeLiteral(t), vec3ArrayLiteral(desc.Translations[ti]))
		}
		b.WriteString("    }\n")

		b.WriteString("    half3[] scales.timeSamples = {\n")
		for ti, t := range desc.Times {
			fmt.Fprintf(&b, "        %s: %s,\n", timeLiteral(t), vec3ArrayLiteral(desc.Scales[ti]))
		}
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")
	w.skelAnims = append(w.skelAnims, prim{path: path, body: b.String()})
	return nil
}

func (w *Writer) AddMaterial(path string, desc MaterialDesc) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "def Material %q\n{\n", leafName(path))
	fmt.Fprintf(&b, "    def Shader \"PreviewSurface\"\n    {\n")
	b.WriteString("        uniform token info:id = \"UsdPreviewSurface\"\n")
	if desc.Unlit {
		fmt.Fprintf(&b, "        color3f inputs:emissiveColor = %s\n", vec3Literal(mgl32.Vec3{desc.BaseColorFactor[0], desc.BaseColorFactor[1], desc.BaseColorFactor[2]}))
		b.WriteString("        float inputs:metallic = 0\n")
		b.WriteString("        float inputs:roughness = 1\n")
	} else {
		fmt.Fprintf(&b, "        color3f inputs:diffuseColor = %s\n", vec3Literal(mgl32.Vec3{desc.BaseColorFactor[0], desc.BaseColorFactor[1], desc.BaseColorFactor[2]}))
		fmt.Fprintf(&b, "        float inputs:metallic = %s\n", floatLiteral(desc.MetallicFactor))
		fmt.Fprintf(&b, "        float inputs:roughness = %s\n", floatLiteral(desc.RoughnessFactor))
		if desc.EmissiveTex != "" || desc.EmissiveFactor != ([3]float32{}) {
			fmt.Fprintf(&b, "        color3f inputs:emissiveColor = %s\n", vec3Literal(mgl32.Vec3{desc.EmissiveFactor[0], desc.EmissiveFactor[1], desc.EmissiveFactor[2]}))
		}
	}
	fmt.Fprintf(&b, "        float inputs:opacity = %s\n", floatLiteral(desc.Opacity))
	if desc.AlphaCutoff > 0 {
		fmt.Fprintf(&b, "        float inputs:opacityThreshold = %s\n", floatLiteral(desc.AlphaCutoff))
	}
	if desc.NormalTex != "" {
		fmt.Fprintf(&b, "        normal3f inputs:normal.connect = <%s/Normal.outputs:rgb>\n", path)
	}
	b.WriteString("        token outputs:surface\n")
	b.WriteString("    }\n")

	for _, tex := range []struct{ name, file string }{
		{"BaseColor", desc.BaseColorTex},
		{"Metallic", desc.MetallicTex},
		{"Roughness", desc.RoughnessTex},
		{"Normal", desc.NormalTex},
		{"Occlusion", desc.OcclusionTex},
	} {
		if tex.file == "" {
			continue
		}
		fmt.Fprintf(&b, "    def Shader %q\n    {\n", tex.name)
		b.WriteString("        uniform token info:id = \"UsdUVTexture\"\n")
		fmt.Fprintf(&b, "        asset inputs:file = @%s@\n", tex.file)
		b.WriteString("        float2 inputs:st.connect = <Primvar.outputs:result>\n")
		b.WriteString("        float3 outputs:rgb\n")
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")
	w.materials = append(w.materials, prim{path: path, body: b.String()})
	return path, nil
}

// Save renders the accumulated document and writes it to path.
func (w *Writer) Save(path string) error {
	var b strings.Builder
	b.WriteString("#usda 1.0\n")
	fmt.Fprintf(&b, "(\n    defaultPrim = %q\n    metersPerUnit = %s\n    upAxis = \"Y\"\n)\n\n", w.RootName, floatLiteral(float32(w.MetersPerUnit)))
	fmt.Fprintf(&b, "def Xform %q\n(\n    kind = \"component\"\n)\n{\n", w.RootName)

	writeGroup(&b, "Meshes", w.xforms, w.meshes)
	writeGroup(&b, "SkinnedMeshes", nil, w.skinnedMeshes)
	for _, s := range w.skeletons {
		indentBlock(&b, s.body)
	}
	for _, s := range w.skelAnims {
		indentBlock(&b, s.body)
	}
	if len(w.materials) > 0 {
		b.WriteString("    def Scope \"Materials\"\n    {\n")
		for _, m := range w.materials {
			indentBlockN(&b, m.body, 2)
		}
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeGroup(b *strings.Builder, name string, xforms, meshes []prim) {
	if len(xforms) == 0 && len(meshes) == 0 {
		return
	}
	fmt.Fprintf(b, "    def Scope %q\n    {\n", name)
	for _, x := range xforms {
		indentBlockN(b, x.body, 2)
	}
	for _, m := range meshes {
		indentBlockN(b, m.body, 2)
	}
	b.WriteString("    }\n")
}

func indentBlock(b *strings.Builder, body string) { indentBlockN(b, body, 1) }

func indentBlockN(b *strings.Builder, body string, levels int) {
	prefix := strings.Repeat("    ", levels)
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func leafName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func reverseTriangleWinding(indices []int) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	for i := 0; i+2 < len(out); i += 3 {
		out[i+1], out[i+2] = out[i+2], out[i+1]
	}
	return out
}

func floatLiteral(v float32) string {
	return fmt.Sprintf("%g", v)
}

func vec3Literal(v mgl32.Vec3) string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

func quatLiteral(q mgl32.Quat) string {
	return fmt.Sprintf("(%g, %g, %g, %g)", q.W, q.V[0], q.V[1], q.V[2])
}

func mat4Literal(m mgl32.Mat4) string {
	var cols [4]string
	for c := 0; c < 4; c++ {
		cols[c] = fmt.Sprintf("(%g, %g, %g, %g)", m[c], m[c+4], m[c+8], m[c+12])
	}
	return fmt.Sprintf("( %s, %s, %s, %s )", cols[0], cols[1], cols[2], cols[3])
}

func intArrayLiteral(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func stringArrayLiteral(v []string) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%q", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func vec3ArrayLiteral(v []mgl32.Vec3) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = vec3Literal(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func vec2ArrayLiteral(v []mgl32.Vec2) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("(%g, %g)", x[0], x[1])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func colorArrayLiteral(v [][4]float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("(%g, %g, %g)", x[0], x[1], x[2])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func joint4ArrayLiteral(v [][4]int) string {
	flat := make([]string, 0, len(v)*4)
	for _, x := range v {
		for _, j := range x {
			flat = append(flat, fmt.Sprintf("%d", j))
		}
	}
	return "[" + strings.Join(flat, ", ") + "]"
}

func weight4ArrayLiteral(v [][4]float32) string {
	flat := make([]string, 0, len(v)*4)
	for _, x := range v {
		for _, j := range x {
			flat = append(flat, fmt.Sprintf("%g", j))
		}
	}
	return "[" + strings.Join(flat, ", ") + "]"
}

func mat4ArrayLiteral(v []mgl32.Mat4) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = mat4Literal(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func quatArrayLiteral(v []mgl32.Quat) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = quatLiteral(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func timeLiteral(t float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", t), "0"), ".")
}
