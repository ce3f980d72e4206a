package main

import "testing"

func TestPairJobsRejectsOddCounts(t *testing.T) {
	if _, err := pairJobs([]string{"a.gltf"}); err == nil {
		t.Fatalf("pairJobs: want error for odd path count")
	}
	if _, err := pairJobs(nil); err == nil {
		t.Fatalf("pairJobs: want error for empty path list")
	}
}

func TestPairJobsSplitsConsecutivePairs(t *testing.T) {
	jobs, err := pairJobs([]string{"a.gltf", "a.usda", "b.glb", "b.usdz"})
	if err != nil {
		t.Fatalf("pairJobs: %v", err)
	}
	want := []job{{src: "a.gltf", dst: "a.usda"}, {src: "b.glb", dst: "b.usdz"}}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d", len(jobs), len(want))
	}
	for i, j := range jobs {
		if j != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, j, want[i])
		}
	}
}

func TestClassifyOutput(t *testing.T) {
	cases := []struct {
		dst      string
		wantKind outputKind
		wantUsda string
		wantUsdz string
	}{
		{"model.usda", kindUSDAOnly, "model.usda", ""},
		{"model.usd", kindUSDAOnly, "model.usd", ""},
		{"model.usdz", kindUSDZOnly, "", "model.usdz"},
		{"model.usd-", kindBoth, "model.usda", "model.usdz"},
	}
	for _, c := range cases {
		kind, usda, usdz := classifyOutput(c.dst)
		if kind != c.wantKind || usda != c.wantUsda || usdz != c.wantUsdz {
			t.Errorf("classifyOutput(%q) = (%v, %q, %q), want (%v, %q, %q)",
				c.dst, kind, usda, usdz, c.wantKind, c.wantUsda, c.wantUsdz)
		}
	}
}

func TestParseFlagsRepeatablePrefixes(t *testing.T) {
	f, rest, err := parseFlags([]string{
		"-remove_node_prefix", "FX_",
		"-remove_node_prefix", "debug_",
		"-scene", "2",
		"a.gltf", "a.usda",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(f.excludeNodePrefixes) != 2 {
		t.Fatalf("excludeNodePrefixes = %v, want 2 entries", f.excludeNodePrefixes)
	}
	if f.scene != 2 {
		t.Errorf("scene = %d, want 2", f.scene)
	}
	if len(rest) != 2 {
		t.Fatalf("remaining args = %v, want 2 positional paths", rest)
	}
}
