package convert

// Options holds every behavioral switch spec.md §6's command-line surface
// lists, applied through functional ConvertOption values so callers (the
// CLI, or a test) only set what they need. Convert does not read
// EmulateSpecGlossWorkflow, BakeAlphaCutoff, BakeSkinNormals,
// NormalizeNormals, NormalizeSkinScale, MergeSkeletons,
// DisableMultipleUVSets, RemoveInvisibleGeometry, FixSkinnedNormals or
// SuppressExtensionPrefix; setting them does not change the output, and
// spec-gloss materials are always converted to metal-rough.
type Options struct {
	SceneIndex     int
	HasSceneIndex  bool
	AnimationIndex int
	HasAnimation   bool
	RootScale      float32

	EmulateDoubleSided       bool
	EmulateSpecGlossWorkflow bool
	BakeAlphaCutoff          bool
	BakeSkinNormals          bool
	NormalizeNormals         bool
	NormalizeSkinScale       bool
	MergeSkeletons           bool
	MergeIdenticalMaterials  bool
	DisableMultipleUVSets    bool
	RemoveInvisibleGeometry  bool
	ReverseCullingOnInverseScale bool
	FixSkinnedNormals        bool
	PreferJPEG               bool

	JPEGQuality           int
	PNGCompactCompression bool

	Workers int

	ExcludeNodePrefixes      []string
	SuppressExtensionPrefix  []string
}

// ConvertOption mutates Options; functional-options, matching the pattern
// spec.md §6's long flag list calls for without a single sprawling struct
// literal at every call site.
type ConvertOption func(*Options)

// DefaultOptions returns the converter's baseline behavior: default scene
// and no animation, unit root scale, no emulation switches, serial
// (single-worker) texture processing, JPEG quality 90.
func DefaultOptions() Options {
	return Options{
		RootScale:   1,
		JPEGQuality: 90,
		Workers:     0,
	}
}

func WithScene(index int) ConvertOption {
	return func(o *Options) { o.SceneIndex = index; o.HasSceneIndex = true }
}

func WithAnimation(index int) ConvertOption {
	return func(o *Options) { o.AnimationIndex = index; o.HasAnimation = true }
}

func WithRootScale(scale float32) ConvertOption {
	return func(o *Options) { o.RootScale = scale }
}

func WithEmulateDoubleSided(v bool) ConvertOption {
	return func(o *Options) { o.EmulateDoubleSided = v }
}

func WithEmulateSpecGlossWorkflow(v bool) ConvertOption {
	return func(o *Options) { o.EmulateSpecGlossWorkflow = v }
}

func WithBakeAlphaCutoff(v bool) ConvertOption { return func(o *Options) { o.BakeAlphaCutoff = v } }

func WithBakeSkinNormals(v bool) ConvertOption { return func(o *Options) { o.BakeSkinNormals = v } }

func WithNormalizeNormals(v bool) ConvertOption { return func(o *Options) { o.NormalizeNormals = v } }

func WithNormalizeSkinScale(v bool) ConvertOption {
	return func(o *Options) { o.NormalizeSkinScale = v }
}

func WithMergeSkeletons(v bool) ConvertOption { return func(o *Options) { o.MergeSkeletons = v } }

func WithMergeIdenticalMaterials(v bool) ConvertOption {
	return func(o *Options) { o.MergeIdenticalMaterials = v }
}

func WithDisableMultipleUVSets(v bool) ConvertOption {
	return func(o *Options) { o.DisableMultipleUVSets = v }
}

func WithRemoveInvisibleGeometry(v bool) ConvertOption {
	return func(o *Options) { o.RemoveInvisibleGeometry = v }
}

func WithReverseCullingOnInverseScale(v bool) ConvertOption {
	return func(o *Options) { o.ReverseCullingOnInverseScale = v }
}

func WithFixSkinnedNormals(v bool) ConvertOption {
	return func(o *Options) { o.FixSkinnedNormals = v }
}

func WithPreferJPEG(v bool) ConvertOption { return func(o *Options) { o.PreferJPEG = v } }

func WithJPEGQuality(q int) ConvertOption { return func(o *Options) { o.JPEGQuality = q } }

func WithPNGCompactCompression(v bool) ConvertOption {
	return func(o *Options) { o.PNGCompactCompression = v }
}

func WithWorkers(n int) ConvertOption { return func(o *Options) { o.Workers = n } }

func WithExcludeNodePrefix(prefix string) ConvertOption {
	return func(o *Options) { o.ExcludeNodePrefixes = append(o.ExcludeNodePrefixes, prefix) }
}

func WithSuppressExtensionPrefix(prefix string) ConvertOption {
	return func(o *Options) { o.SuppressExtensionPrefix = append(o.SuppressExtensionPrefix, prefix) }
}
