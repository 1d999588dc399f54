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

package api

import "time"

// TrialStatus is a Trial's position in its lifecycle: created pending,
// transitions to running on worker pickup, terminates in exactly one of
// {succeeded, pruned, failed}.
type TrialStatus string

const (
	TrialPending   TrialStatus = "pending"
	TrialRunning   TrialStatus = "running"
	TrialSucceeded TrialStatus = "succeeded"
	TrialPruned    TrialStatus = "pruned"
	TrialFailed    TrialStatus = "failed"
)

// IsTerminal reports whether s is one of the three terminal statuses.
func (s TrialStatus) IsTerminal() bool {
	return s == TrialSucceeded || s == TrialPruned || s == TrialFailed
}

// Observation is a single intermediate report at a rung. The pair
// (TrialID, Rung) is write-once in the Store.
type Observation struct {
	TrialID    TrialID
	Rung       int
	Score      float64
	RecordedAt time.Time
}

// Trial is immutable once Status.IsTerminal(); everything before that is
// accumulated through TrialBuilder-style Store calls, never mutated in
// place by callers that only hold a *Trial.
type Trial struct {
	ID      TrialID
	StudyID StudyID
	Params  Assignment
	Status  TrialStatus
	// FinalScore is present iff Status == TrialSucceeded.
	FinalScore    float64
	HasFinalScore bool

	// ObjectiveValues is an optional per-objective score vector, populated
	// by hosts running a multi-objective study alongside FinalScore. The sampler.MultiObjective wrapper
	// scalarizes it via a weighted sum; trials that never set it are
	// passed through unchanged.
	ObjectiveValues []float64

	Observations []Observation

	// BracketID is set when the study's pruner organizes trials into
	// Hyperband brackets; zero value otherwise.
	BracketID  int
	HasBracket bool

	// FailureKind records the Kind of the error that failed this trial,
	// present iff Status == TrialFailed.
	FailureKind Kind

	CreatedAt   time.Time
	CompletedAt time.Time
}

// Equal reports identity equality: two trials are equal iff their IDs are.
func (t *Trial) Equal(other *Trial) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID
}

// ObservationAt returns the observation recorded at rung, if any.
func (t *Trial) ObservationAt(rung int) (Observation, bool) {
	for _, o := range t.Observations {
		if o.Rung == rung {
			return o, true
		}
	}
	return Observation{}, false
}

// LatestObservation returns the most recently reported rung's observation.
// Trials report rungs in strictly increasing order, so the last
// element of Observations is always the latest.
func (t *Trial) LatestObservation() (Observation, bool) {
	if len(t.Observations) == 0 {
		return Observation{}, false
	}
	return t.Observations[len(t.Observations)-1], true
}

// Clone returns a deep copy, used whenever a Trial crosses a concurrency
// boundary (Store snapshots, sampler history) so callers never alias
// mutable state.
func (t *Trial) Clone() *Trial {
	if t == nil {
		return nil
	}
	out := *t
	if t.Params != nil {
		out.Params = make(Assignment, len(t.Params))
		for k, v := range t.Params {
			out.Params[k] = v
		}
	}
	if t.Observations != nil {
		out.Observations = make([]Observation, len(t.Observations))
		copy(out.Observations, t.Observations)
	}
	if t.ObjectiveValues != nil {
		out.ObjectiveValues = make([]float64, len(t.ObjectiveValues))
		copy(out.ObjectiveValues, t.ObjectiveValues)
	}
	return &out
}
