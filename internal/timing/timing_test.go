package timing

import (
	"testing"
	"time"
)

func TestTrackerObserve(t *testing.T) {
	tracker := NewTracker()
	tracker.Observe("extract", 100*time.Millisecond)
	tracker.Observe("extract", 300*time.Millisecond)
	tracker.Observe("upsert", 50*time.Millisecond)

	snapshot := tracker.Snapshot()
	extract := snapshot["extract"]
	if extract.Count != 2 || extract.Total != 400*time.Millisecond {
		t.Fatalf("unexpected extract stat: %+v", extract)
	}
	if extract.Average() != 200*time.Millisecond {
		t.Fatalf("unexpected average: %v", extract.Average())
	}
	if snapshot["upsert"].Count != 1 {
		t.Fatalf("unexpected upsert stat: %+v", snapshot["upsert"])
	}
}

func TestTrackerTrack(t *testing.T) {
	tracker := NewTracker()
	stop := tracker.Track("analyze")
	stop()

	if tracker.Snapshot()["analyze"].Count != 1 {
		t.Fatal("track did not record an observation")
	}
}

func TestStatAverageEmpty(t *testing.T) {
	if (Stat{}).Average() != 0 {
		t.Fatal("empty stat must average to zero")
	}
}
