package timing

import (
	"testing"
	"time"
)

func TestJobAccumulatesRepeatedStageDurations(t *testing.T) {
	j := NewJob()

	stop := j.Start("materialize")
	time.Sleep(time.Millisecond)
	stop()

	stop = j.Start("materialize")
	time.Sleep(time.Millisecond)
	stop()

	if got := j.stages["materialize"]; got < 2*time.Millisecond {
		t.Errorf("materialize duration = %s, want at least 2ms across two Start/stop pairs", got)
	}
	if len(j.order) != 1 {
		t.Errorf("order = %v, want exactly one entry for a repeated stage name", j.order)
	}
}

func TestJobReportDoesNotPanicWithNoStages(t *testing.T) {
	j := NewJob()
	j.Report("empty job")
}
