/*
Copyright 2024 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package telemetry implements the six lifecycle events an Executor
// emits, dispatched to any number of subscribed Sinks.
package telemetry

import (
	"sync"
	"time"

	"github.com/gramlabs/optimize-study/api"
)

// EventKind names one of the six emitted event types.
type EventKind string

const (
	TrialStarted   EventKind = "trial_started"
	TrialReported  EventKind = "trial_reported"
	TrialPruned    EventKind = "trial_pruned"
	TrialSucceeded EventKind = "trial_succeeded"
	TrialFailed    EventKind = "trial_failed"
	StudyCompleted EventKind = "study_completed"
)

// Event is a single lifecycle notification. Fields not relevant to Kind are
// left zero (e.g. Score is unset for TrialStarted).
type Event struct {
	Kind      EventKind
	StudyID   api.StudyID
	TrialID   api.TrialID
	BracketID int
	Rung      int
	Score     float64
	Duration  time.Duration
	Err       error
	At        time.Time
}

// Sink receives emitted events. Implementations must not block: the
// dispatcher calls every sink synchronously on the emitting goroutine.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Dispatcher fans a single emitted Event out to every subscribed Sink, an
// in-process pub/sub.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewDispatcher returns a Dispatcher with no subscribers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers sink to receive every future event.
func (d *Dispatcher) Subscribe(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Handle implements Sink, broadcasting e to every subscriber. A panicking
// sink is recovered and dropped so one bad subscriber can't take down the
// study being instrumented.
func (d *Dispatcher) Handle(e Event) {
	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.RUnlock()
	for _, s := range sinks {
		dispatchSafely(s, e)
	}
}

func dispatchSafely(s Sink, e Event) {
	defer func() { _ = recover() }()
	s.Handle(e)
}

var _ Sink = (*Dispatcher)(nil)
