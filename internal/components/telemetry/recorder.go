package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Report is a single report captured by a Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API implementation for tests, it keeps every report so that
// tests can assert on which components reported breakage.
type Recorder struct {
	t       testing.TB
	lock    sync.Mutex
	reports []Report
}

func NewRecorder(t testing.TB) *Recorder {
	return &Recorder{t: t}
}

func (r *Recorder) record(kind, id string, params []any) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
	r.t.Log(kind, id, fmt.Sprint(params...))
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Reports returns every captured report of the given kind whose id contains `id`.
func (r *Recorder) Reports(kind, id string) []Report {
	r.lock.Lock()
	defer r.lock.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind && strings.Contains(rep.ID, id) {
			out = append(out, rep)
		}
	}
	return out
}
