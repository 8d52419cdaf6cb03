package board

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rosterforge/rosterforge/internal/models"
)

// Writer is the part of the backend the dispatcher fans out to.
type Writer interface {
	CreateActivity(ctx context.Context, input models.ActivityInput) (models.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
}

// Outcome is the per-item result of a batch request. Err is nil on success.
type Outcome struct {
	Key      string
	Activity models.Activity
	Err      error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Failure describes one item that did not go through.
type Failure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// BatchReport summarizes a batch for the user.
type BatchReport struct {
	Kind      ReleaseKind `json:"-"`
	Requested int         `json:"requested"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Failures  []Failure   `json:"failures,omitempty"`
}

func (r BatchReport) String() string {
	verb := "created"
	if r.Kind == ReleaseDelete {
		verb = "deleted"
	}
	if r.Failed == 0 {
		return fmt.Sprintf("%d of %d %s", r.Succeeded, r.Requested, verb)
	}
	return fmt.Sprintf("%d of %d %s, %d failed", r.Succeeded, r.Requested, verb, r.Failed)
}

func newReport(kind ReleaseKind, outcomes []Outcome) BatchReport {
	report := BatchReport{Kind: kind, Requested: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			report.Succeeded++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, Failure{Key: o.Key, Reason: o.Err.Error()})
	}
	return report
}

type keyedInput struct {
	key   string
	input models.ActivityInput
}

// Dispatcher issues one backend call per item, all in flight together unless a limit is set.
// There is no retry and no ordering between items.
type Dispatcher struct {
	writer      Writer
	maxInFlight int
}

func NewDispatcher(writer Writer, maxInFlight int) *Dispatcher {
	return &Dispatcher{writer: writer, maxInFlight: maxInFlight}
}

// CreateAll creates every input and reports each result in input order.
func (d *Dispatcher) CreateAll(ctx context.Context, items []keyedInput) []Outcome {
	outcomes := make([]Outcome, len(items))
	var g errgroup.Group
	if d.maxInFlight > 0 {
		g.SetLimit(d.maxInFlight)
	}
	for i, item := range items {
		g.Go(func() error {
			activity, err := d.writer.CreateActivity(ctx, item.input)
			outcomes[i] = Outcome{Key: item.key, Activity: activity, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// DeleteAll deletes every id and reports each result in input order.
func (d *Dispatcher) DeleteAll(ctx context.Context, ids []string) []Outcome {
	outcomes := make([]Outcome, len(ids))
	var g errgroup.Group
	if d.maxInFlight > 0 {
		g.SetLimit(d.maxInFlight)
	}
	for i, id := range ids {
		g.Go(func() error {
			err := d.writer.DeleteActivity(ctx, id)
			outcomes[i] = Outcome{Key: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
