package schedule

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynchronousSchedulerRunsInline(t *testing.T) {
	s := New(0, 0, 0)
	var ran int32
	s.Schedule(func() error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("synchronous job did not run inline")
	}
	if err := s.WaitForAllComplete(); err != nil {
		t.Fatalf("WaitForAllComplete: %v", err)
	}
}

func TestSynchronousSchedulerCapturesFirstError(t *testing.T) {
	s := New(0, 0, 0)
	errA := errors.New("a")
	errB := errors.New("b")
	s.Schedule(func() error { return errA })
	s.Schedule(func() error { return errB })
	if err := s.WaitForAllComplete(); err != errA {
		t.Errorf("WaitForAllComplete = %v, want first error %v", err, errA)
	}
}

func TestPooledSchedulerRunsAllJobs(t *testing.T) {
	s := New(4, 16, 2*time.Second)
	var count int32
	for i := 0; i < 20; i++ {
		s.Schedule(func() error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}
	if err := s.WaitForAllComplete(); err != nil {
		t.Fatalf("WaitForAllComplete: %v", err)
	}
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

func TestStopPreventsFurtherScheduling(t *testing.T) {
	s := New(0, 0, 0)
	var count int32
	s.Schedule(func() error { atomic.AddInt32(&count, 1); return nil })
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	s.Schedule(func() error { atomic.AddInt32(&count, 1); return nil })
	if count != 1 {
		t.Errorf("count = %d, want 1 (post-stop schedule should be dropped)", count)
	}
}
