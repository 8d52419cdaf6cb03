package board

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rosterforge/rosterforge/internal/models"
)

type slowWriter struct {
	inFlight int32
	peak     int32
}

func (w *slowWriter) CreateActivity(ctx context.Context, in models.ActivityInput) (models.Activity, error) {
	n := atomic.AddInt32(&w.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&w.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&w.peak, peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&w.inFlight, -1)
	if in.TimeSlot == "2:00 PM" {
		return models.Activity{}, errors.New("slot rejected")
	}
	return models.Activity{ID: in.TimeSlot}, nil
}

func (w *slowWriter) DeleteActivity(ctx context.Context, id string) error {
	return nil
}

func TestDispatcher_OutcomesInInputOrder(t *testing.T) {
	w := &slowWriter{}
	d := NewDispatcher(w, 0)
	items := []keyedInput{
		{key: "k1", input: models.ActivityInput{TimeSlot: "1:00 PM"}},
		{key: "k2", input: models.ActivityInput{TimeSlot: "2:00 PM"}},
		{key: "k3", input: models.ActivityInput{TimeSlot: "3:00 PM"}},
	}
	outcomes := d.CreateAll(context.Background(), items)
	if len(outcomes) != 3 {
		t.Fatalf("outcomes: %d", len(outcomes))
	}
	if !outcomes[0].OK() || outcomes[1].OK() || !outcomes[2].OK() {
		t.Fatalf("outcomes: %+v", outcomes)
	}
	if outcomes[1].Key != "k2" {
		t.Fatalf("key: %s", outcomes[1].Key)
	}
	report := newReport(ReleaseCreate, outcomes)
	if report.String() != "2 of 3 created, 1 failed" {
		t.Fatalf("report: %s", report.String())
	}
	if atomic.LoadInt32(&w.peak) < 2 {
		t.Fatalf("requests were not issued concurrently")
	}
}

func TestDispatcher_RespectsLimit(t *testing.T) {
	w := &slowWriter{}
	d := NewDispatcher(w, 1)
	items := make([]keyedInput, 4)
	for i := range items {
		items[i] = keyedInput{key: "k", input: models.ActivityInput{TimeSlot: "5:00 PM"}}
	}
	d.CreateAll(context.Background(), items)
	if peak := atomic.LoadInt32(&w.peak); peak != 1 {
		t.Fatalf("peak in flight: %d", peak)
	}
}
