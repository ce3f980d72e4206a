// Command gltf2usd converts glTF 2.0 assets into USD/USDZ. A minimal
// driver over internal/convert, internal/container, internal/usdstage,
// and internal/usdz (spec.md §6 "External interfaces... the command-line
// front-end" is a Non-goal for a *real* grammar, but the ambient-stack
// rule still carries a runnable CLI; see DESIGN.md's cmd/gltf2usd entry).
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gltf2usd/gltf2usd/internal/container"
	"github.com/gltf2usd/gltf2usd/internal/convert"
	"github.com/gltf2usd/gltf2usd/internal/timing"
	"github.com/gltf2usd/gltf2usd/internal/usdstage"
	"github.com/gltf2usd/gltf2usd/internal/usdz"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, rest, err := parseFlags(args)
	if err != nil {
		return 2
	}
	jobs, err := pairJobs(rest)
	if err != nil {
		if !f.noUsage {
			fmt.Fprintln(os.Stderr, err)
		}
		return 2
	}

	failed := false
	for _, j := range jobs {
		if err := runJob(j.src, j.dst, f); err != nil {
			log.Printf("gltf2usd: %s -> %s: %v", j.src, j.dst, err)
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

type job struct{ src, dst string }

// pairJobs splits positional arguments into src/dst pairs, rejecting odd
// counts (spec.md §6 "Odd counts are rejected").
func pairJobs(paths []string) ([]job, error) {
	if len(paths) == 0 || len(paths)%2 != 0 {
		return nil, fmt.Errorf("gltf2usd: expected pairs of src/dst paths, got %d", len(paths))
	}
	jobs := make([]job, len(paths)/2)
	for i := range jobs {
		jobs[i] = job{src: paths[2*i], dst: paths[2*i+1]}
	}
	return jobs, nil
}

// outputKind classifies dst's suffix convention (spec.md §6).
type outputKind int

const (
	kindUSDAOnly outputKind = iota
	kindUSDZOnly
	kindBoth // "dst.usd-": emit both usda and usdz
)

func classifyOutput(dst string) (kind outputKind, usdaPath, usdzPath string) {
	if strings.HasSuffix(dst, "-") {
		base := strings.TrimSuffix(dst, "-")
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		return kindBoth, stem + ".usda", stem + ".usdz"
	}
	if strings.EqualFold(filepath.Ext(dst), ".usdz") {
		return kindUSDZOnly, "", dst
	}
	return kindUSDAOnly, dst, ""
}

func openSource(path string) (container.Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return container.OpenGLB(path)
	}
	return container.NewDisk(path), nil
}

// runJob converts one src/dst pair: it always stages the USDA document (and
// any written textures) into a scratch directory first, then copies or zips
// that staging area into the final destination(s), so the usda-only and
// usdz code paths share one conversion pass (spec.md §6 "emit both usda and
// usdz" from a single run).
func runJob(src, dst string, f *cliFlags) error {
	var job *timing.Job
	if f.printTiming {
		job = timing.NewJob()
		defer job.Report(src + " -> " + dst)
	}

	kind, usdaPath, usdzPath := classifyOutput(dst)

	source, err := openSource(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	stageDir, err := os.MkdirTemp("", "gltf2usd-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	rootName := convert.SanitizeName(strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)))
	stage := usdstage.New(rootName)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	if err := os.Chdir(stageDir); err != nil {
		return fmt.Errorf("chdir staging directory: %w", err)
	}
	var stopConvert func()
	if job != nil {
		stopConvert = job.Start("convert")
	}
	diagLog, convErr := convert.Convert(source, stage, buildOptions(f)...)
	if stopConvert != nil {
		stopConvert()
	}
	chdirErr := os.Chdir(cwd)
	if diagLog != nil {
		diagLog.Flush()
	}
	if convErr != nil {
		return fmt.Errorf("convert: %w", convErr)
	}
	if chdirErr != nil {
		return fmt.Errorf("restore working directory: %w", chdirErr)
	}
	if diagLog != nil && diagLog.Errored() {
		return fmt.Errorf("convert reported one or more fatal diagnostics")
	}

	var stopSave func()
	if job != nil {
		stopSave = job.Start("save")
	}
	stagedUSDA := filepath.Join(stageDir, rootName+".usda")
	if err := stage.Save(stagedUSDA); err != nil {
		if stopSave != nil {
			stopSave()
		}
		return fmt.Errorf("save usda: %w", err)
	}

	var packErr error
	switch kind {
	case kindUSDAOnly:
		packErr = copyFile(stagedUSDA, usdaPath)
	case kindUSDZOnly:
		packErr = writeUSDZFromStage(stageDir, rootName, usdzPath)
	case kindBoth:
		if packErr = copyFile(stagedUSDA, usdaPath); packErr == nil {
			packErr = writeUSDZFromStage(stageDir, rootName, usdzPath)
		}
	}
	if stopSave != nil {
		stopSave()
	}
	return packErr
}

func buildOptions(f *cliFlags) []convert.ConvertOption {
	var opts []convert.ConvertOption
	if f.scene >= 0 {
		opts = append(opts, convert.WithScene(f.scene))
	}
	if f.hasAnim {
		opts = append(opts, convert.WithAnimation(f.anim))
	}
	opts = append(opts,
		convert.WithRootScale(float32(f.rootScale)),
		convert.WithEmulateDoubleSided(f.emulateDoubleSided),
		convert.WithEmulateSpecGlossWorkflow(f.emulateSpecGlossWorkflow),
		convert.WithBakeAlphaCutoff(f.bakeAlphaCutoff),
		convert.WithBakeSkinNormals(f.bakeSkinNormals),
		convert.WithNormalizeNormals(f.normalizeNormals),
		convert.WithNormalizeSkinScale(f.normalizeSkinScale),
		convert.WithMergeSkeletons(f.mergeSkeletons),
		convert.WithMergeIdenticalMaterials(f.mergeIdenticalMaterials),
		convert.WithDisableMultipleUVSets(f.disableMultipleUVSets),
		convert.WithRemoveInvisibleGeometry(f.removeInvisible),
		convert.WithReverseCullingOnInverseScale(f.reverseCullingOnInverse),
		convert.WithFixSkinnedNormals(f.fixSkinnedNormals),
		convert.WithPreferJPEG(f.preferJPEG),
		convert.WithJPEGQuality(f.jpegQuality),
		convert.WithPNGCompactCompression(f.pngCompact),
		convert.WithWorkers(f.workers),
	)
	for _, p := range f.excludeNodePrefixes {
		opts = append(opts, convert.WithExcludeNodePrefix(p))
	}
	for _, p := range f.suppressExtensionPrefix {
		opts = append(opts, convert.WithSuppressExtensionPrefix(p))
	}
	return opts
}

func copyFile(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", srcPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dstPath), err)
	}
	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dstPath, err)
	}
	return nil
}

// writeUSDZFromStage zips every file under stageDir (the usda layer plus
// whatever internal/materialize wrote under "textures/") into a USDZ
// archive at dstPath, with the usda layer first by convention.
func writeUSDZFromStage(stageDir, rootName, dstPath string) error {
	usdaName := rootName + ".usda"
	var entries []usdz.Entry

	usdaData, err := os.ReadFile(filepath.Join(stageDir, usdaName))
	if err != nil {
		return fmt.Errorf("read staged usda: %w", err)
	}
	entries = append(entries, usdz.Entry{Name: usdaName, Data: usdaData})

	err = filepath.Walk(stageDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == usdaName {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, usdz.Entry{Name: rel, Data: data})
		return nil
	})
	if err != nil {
		return fmt.Errorf("collect staged assets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dstPath), err)
	}
	if err := usdz.Write(dstPath, entries); err != nil {
		return fmt.Errorf("write usdz: %w", err)
	}
	return nil
}
