package main

import (
	"flag"
	"fmt"
	"strings"
)

// stringList collects a repeatable flag (spec.md §6 "repeatable
// node-name-prefix filters for exclusion, repeatable extension-prefix
// suppressors for diagnostics"). Grounded on usd_from_gltf/args.cc's
// StringsBinder, which appends every occurrence of a MultiArg onto one
// settings slice instead of keeping only the last value.
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// cliFlags mirrors args.cc's Bind(): one flag per internal/convert.Options
// field. Several of those fields are accepted but not read by Convert, and
// their help text says so (spec.md's image-resize, bounds
// limit, and plugin-path knobs have no internal/convert equivalent — see
// DESIGN.md's cmd/gltf2usd entry for why those stay unbound rather than
// wired to a no-op).
type cliFlags struct {
	scene   int
	hasAnim bool
	anim    int

	rootScale float64

	jpegQuality int
	pngCompact  bool

	workers int

	emulateDoubleSided      bool
	emulateSpecGlossWorkflow bool
	bakeAlphaCutoff         bool
	bakeSkinNormals         bool
	normalizeNormals        bool
	normalizeSkinScale      bool
	mergeSkeletons          bool
	mergeIdenticalMaterials bool
	disableMultipleUVSets   bool
	removeInvisible         bool
	reverseCullingOnInverse bool
	fixSkinnedNormals       bool
	preferJPEG              bool

	excludeNodePrefixes     stringList
	suppressExtensionPrefix stringList

	printTiming bool
	noUsage     bool
}

func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("gltf2usd", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gltf2usd [flags] src.gltf|.glb dst.usda|.usdc|.usdz|.usd- [more pairs...]\n")
		fs.PrintDefaults()
	}

	f := &cliFlags{}
	fs.IntVar(&f.scene, "scene", -1, "override default scene specified by glTF (-1 = use glTF default)")
	animIdx := fs.Int("anim", -1, "animation index to export (-1 = none)")
	fs.Float64Var(&f.rootScale, "root_scale", 1, "scale applied to the model root")
	fs.IntVar(&f.jpegQuality, "jpg_quality", 90, "JPEG compression quality [1=worst, 100=best]")
	fs.BoolVar(&f.pngCompact, "png_compact", false, "use a smaller, slower PNG compression level")
	fs.IntVar(&f.workers, "workers", 0, "texture/mesh worker goroutines (0 = run synchronously)")

	fs.BoolVar(&f.emulateDoubleSided, "emulate_double_sided", false, "emulate double-sided geometry by duplicating single-sided geometry")
	fs.BoolVar(&f.emulateSpecGlossWorkflow, "emulate_specular_workflow", true, "convert diffuse+specular+glossiness to albedo+metallic+roughness (not read: the conversion always runs)")
	fs.BoolVar(&f.bakeAlphaCutoff, "bake_alpha_cutoff", false, "bake alpha cutoff into textures (accepted but not applied)")
	fs.BoolVar(&f.bakeSkinNormals, "bake_skin_normals", false, "bake skinned vertex normals to the first frame of animation (accepted but not applied)")
	fs.BoolVar(&f.normalizeNormals, "normalize_normals", false, "normalize normal map vectors (accepted but not applied)")
	fs.BoolVar(&f.normalizeSkinScale, "normalize_skin_scale", false, "normalize the skin root joint scale to 1.0 (accepted but not applied)")
	fs.BoolVar(&f.mergeSkeletons, "merge_skeletons", false, "merge multiple skeletons into one (accepted but not applied)")
	fs.BoolVar(&f.mergeIdenticalMaterials, "merge_identical_materials", true, "merge materials with identical parameters, irrespective of name")
	fs.BoolVar(&f.disableMultipleUVSets, "disable_multiple_uvsets", false, "replace textures referencing secondary UV sets with a solid color (accepted but not applied)")
	fs.BoolVar(&f.removeInvisible, "remove_invisible", false, "remove geometry that's invisible due to material state (accepted but not applied)")
	fs.BoolVar(&f.reverseCullingOnInverse, "reverse_culling_for_inverse_scale", true, "reverse polygon winding during conversion for inverse scale")
	fs.BoolVar(&f.fixSkinnedNormals, "fix_skinned_normals", false, "work around viewers that don't skin normals (accepted but not applied)")
	fs.BoolVar(&f.preferJPEG, "prefer_jpeg", false, "prefer saving images as jpeg")

	fs.Var(&f.excludeNodePrefixes, "remove_node_prefix", "remove nodes matching this prefix, case sensitive (repeatable)")
	fs.Var(&f.suppressExtensionPrefix, "nowarn_extension", "disable warnings for unrecognized glTF extensions matching this prefix (repeatable; not applied: the loader emits no such warnings)")

	fs.BoolVar(&f.printTiming, "print_timing", false, "print conversion time and memory stats for each job")
	fs.BoolVar(&f.noUsage, "nousage", false, "don't print usage on argument error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if *animIdx >= 0 {
		f.hasAnim = true
		f.anim = *animIdx
	}
	return f, fs.Args(), nil
}
