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

// Package store defines the Store interface and its concurrency contract.
// Two backends implement it: memory (process-wide, concurrency-safe) and
// postgres (relational, lib/pq).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gramlabs/optimize-study/api"
)

// ErrNotFound is returned by GetStudy/GetTrial when the id is unknown.
var ErrNotFound = errors.New("store: not found")

// ErrTerminal is returned by UpdateTrial when the trial is already terminal.
var ErrTerminal = errors.New("store: trial is already terminal")

// ErrDuplicateObservation is returned by RecordObservation when
// (trial_id, rung) has already been written.
var ErrDuplicateObservation = errors.New("store: observation already recorded for this rung")

// TrialUpdate is a partial mutation applied by UpdateTrial. Only non-nil
// fields are changed. Updating Status to a terminal value does not set
// CompletedAt; the caller sets it in the same update.
type TrialUpdate struct {
	Status      *api.TrialStatus
	FinalScore  *float64
	FailureKind *api.Kind
	BracketID   *int
	CompletedAt *time.Time

	// ObjectiveValues optionally sets a multi-objective score vector
	// alongside FinalScore, consumed by the sampler.MultiObjective wrapper
	// when a study is configured with StudyConfig.MultiObjectiveWeights.
	ObjectiveValues *[]float64
}

// Store is the durable, concurrent repository of studies, trials and
// observations. Implementations must be linearizable per-study: operations
// against different studies never contend, but operations against the same
// study are totally ordered.
type Store interface {
	// PutStudy creates a new study record. It is an error to call it twice
	// for the same ID.
	PutStudy(ctx context.Context, study *api.Study) error

	// GetStudy returns a snapshot of the study, or ErrNotFound.
	GetStudy(ctx context.Context, id api.StudyID) (*api.Study, error)

	// SetStudyStatus transitions the study's Status field.
	SetStudyStatus(ctx context.Context, id api.StudyID, status api.StudyStatus) error

	// AddTrial appends a new pending trial to the study, assigning it an ID
	// and incrementing the study's trial counter. It returns the created
	// trial.
	AddTrial(ctx context.Context, studyID api.StudyID, params api.Assignment) (*api.Trial, error)

	// UpdateTrial applies update to the named trial. It is rejected with
	// ErrTerminal if the trial's current status is already terminal.
	UpdateTrial(ctx context.Context, trialID api.TrialID, update TrialUpdate) (*api.Trial, error)

	// GetTrial returns a snapshot of a single trial, or ErrNotFound.
	GetTrial(ctx context.Context, trialID api.TrialID) (*api.Trial, error)

	// ListTrials returns every trial of a study in stable creation order.
	ListTrials(ctx context.Context, studyID api.StudyID) ([]*api.Trial, error)

	// RecordObservation appends an intermediate observation. It is rejected
	// with ErrDuplicateObservation if (trialID, rung) was already written.
	RecordObservation(ctx context.Context, trialID api.TrialID, rung int, score float64) error

	// ObservationsAtRung returns the population of observations recorded at
	// rung for trials in the given bracket of the given study, the
	// population a pruner ranks over.
	ObservationsAtRung(ctx context.Context, studyID api.StudyID, bracketID, rung int) ([]api.Observation, error)
}
