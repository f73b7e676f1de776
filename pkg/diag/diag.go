// Package diag collects in-process diagnostics about metadata capture.
//
// Capture problems are deliberately non-fatal: a broken rule, an
// unresolvable resource or a failed sidecar write degrades the output
// instead of aborting the save. This package is where those degradations
// are recorded so a host can answer "why is my metadata incomplete"
// without scraping logs.
//
// The package uses a registry pattern: libraries report through the
// package-level [Record], which forwards to whatever [Recorder] the host
// registered at startup. The default recorder discards everything, so
// uninstrumented use costs nothing.
//
//	rec := diag.NewList()
//	diag.SetRecorder(rec)
//	// ... run a capture ...
//	for _, e := range rec.Events() {
//	    fmt.Println(e.Kind, e.Message)
//	}
package diag

import (
	"fmt"
	"sync"
	"time"
)

// Kind classifies a diagnostic event.
type Kind string

const (
	// KindRuleEval is a selector or formatter failure during capture.
	KindRuleEval Kind = "rule_eval"
	// KindUnresolvedResource is a resource name no file could be found for.
	KindUnresolvedResource Kind = "unresolved_resource"
	// KindSidecarWrite is a failed sidecar hash file write.
	KindSidecarWrite Kind = "sidecar_write"
	// KindFallbackStage is a size-reduction stage the encoder had to take.
	KindFallbackStage Kind = "fallback_stage"
	// KindListMismatch is a parallel capture-list length disagreement.
	KindListMismatch Kind = "list_mismatch"
)

// Event is one recorded diagnostic.
type Event struct {
	Time    time.Time
	Kind    Kind
	Message string
	Fields  map[string]any
}

// Recorder receives diagnostic events.
type Recorder interface {
	Record(kind Kind, message string, kv ...any)
}

// Noop is a Recorder that discards everything.
type Noop struct{}

// Record implements Recorder.
func (Noop) Record(Kind, string, ...any) {}

// List is a Recorder that appends events in order. It is not safe for
// concurrent use; the capture pipeline is single-threaded.
type List struct {
	events []Event
}

// NewList returns an empty event list.
func NewList() *List {
	return &List{}
}

// Record implements Recorder. Trailing key/value arguments are folded
// into the event's field map.
func (l *List) Record(kind Kind, message string, kv ...any) {
	l.events = append(l.events, Event{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
		Fields:  fieldsFrom(kv),
	})
}

// Events returns a copy of the recorded events in record order.
func (l *List) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *List) Len() int { return len(l.events) }

// Reset clears the list.
func (l *List) Reset() { l.events = nil }

func fieldsFrom(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 < len(kv) {
			fields[key] = kv[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}

var (
	recorder   Recorder = Noop{}
	recorderMu sync.RWMutex
)

// SetRecorder registers the process-wide recorder. Call once at startup,
// before running captures. Nil is ignored.
func SetRecorder(r Recorder) {
	recorderMu.Lock()
	defer recorderMu.Unlock()
	if r != nil {
		recorder = r
	}
}

// Active returns the registered recorder.
func Active() Recorder {
	recorderMu.RLock()
	defer recorderMu.RUnlock()
	return recorder
}

// Record forwards an event to the registered recorder.
func Record(kind Kind, message string, kv ...any) {
	Active().Record(kind, message, kv...)
}

// Reset restores the discarding default recorder. Primarily for tests.
func Reset() {
	recorderMu.Lock()
	defer recorderMu.Unlock()
	recorder = Noop{}
}
