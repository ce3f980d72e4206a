// Package timing reports how long a conversion job took and how much
// memory it used, for the CLI's "-print_timing" switch (spec.md §6
// "print timing"). Adapted from engine/profiler/profiler.go: that type
// samples frame rate and GC pauses once per rendered frame; a conversion
// job instead runs once start to finish, so this package keeps its
// runtime.MemStats-based reporting but replaces the per-tick FPS sampling
// with a set of named stage durations recorded as the job progresses.
package timing

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"
)

// Job accumulates named stage durations across one conversion job; Report
// measures the total from NewJob.
type Job struct {
	start  time.Time
	stages map[string]time.Duration
	order  []string
}

// NewJob begins timing a job.
func NewJob() *Job {
	return &Job{
		start:  time.Now(),
		stages: make(map[string]time.Duration),
	}
}

// Start begins timing a named stage (e.g. "load", "validate",
// "materialize"). Call the returned func to stop it; stages may repeat
// (durations accumulate) since the rigid and skinned passes both touch
// "materialize".
func (j *Job) Start(stage string) func() {
	t0 := time.Now()
	if _, ok := j.stages[stage]; !ok {
		j.order = append(j.order, stage)
	}
	return func() {
		j.stages[stage] += time.Since(t0)
	}
}

// Report logs total elapsed time, each recorded stage's share of it, and
// current memory stats, mirroring profiler.Tick's log line shape
// (FPS/heap/alloc-rate/GC) but for a single finished job instead of a
// running frame loop.
func (j *Job) Report(label string) {
	elapsed := time.Since(j.start)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	allocMB := float64(mem.Alloc) / 1024 / 1024
	sysMB := float64(mem.Sys) / 1024 / 1024

	var pauseUs uint64
	if mem.NumGC > 0 {
		pauseUs = mem.PauseNs[(mem.NumGC-1)%256] / 1000
	}

	stages := make([]string, len(j.order))
	copy(stages, j.order)
	sort.Slice(stages, func(a, b int) bool { return j.stages[stages[a]] > j.stages[stages[b]] })

	var breakdown string
	for _, s := range stages {
		breakdown += fmt.Sprintf(" %s=%s", s, j.stages[s].Round(time.Microsecond))
	}

	log.Printf("[timing] %s: total=%s%s | heap=%.2fMB sys=%.2fMB gc=%d last_pause=%dµs",
		label, elapsed.Round(time.Microsecond), breakdown, allocMB, sysMB, mem.NumGC, pauseUs)
}
