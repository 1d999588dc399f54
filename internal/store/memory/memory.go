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

// Package memory is the in-memory Store backend: a process-wide table
// guarded by one mutex per study, so that studies never contend with each
// other.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/log"
	"github.com/gramlabs/optimize-study/internal/store"
)

var logger = log.Named("store.memory")

type studyRecord struct {
	mu           sync.Mutex
	study        *api.Study
	trials       []*api.Trial // creation order, stable
	trialByID    map[api.TrialID]*api.Trial
	observations map[api.TrialID]map[int]api.Observation
}

// Store is a concurrency-safe, process-wide Store backend.
type Store struct {
	mu         sync.RWMutex
	studies    map[api.StudyID]*studyRecord
	trialOwner map[api.TrialID]api.StudyID
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		studies:    make(map[api.StudyID]*studyRecord),
		trialOwner: make(map[api.TrialID]api.StudyID),
	}
}

func (s *Store) PutStudy(_ context.Context, study *api.Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.studies[study.ID]; exists {
		return fmt.Errorf("study %s already exists", study.ID)
	}
	cp := *study
	s.studies[study.ID] = &studyRecord{
		study:        &cp,
		trialByID:    make(map[api.TrialID]*api.Trial),
		observations: make(map[api.TrialID]map[int]api.Observation),
	}
	return nil
}

func (s *Store) record(id api.StudyID) (*studyRecord, error) {
	s.mu.RLock()
	rec, ok := s.studies[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetStudy(_ context.Context, id api.StudyID) (*api.Study, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	cp := *rec.study
	return &cp, nil
}

func (s *Store) SetStudyStatus(_ context.Context, id api.StudyID, status api.StudyStatus) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.study.Status = status
	return nil
}

func (s *Store) AddTrial(_ context.Context, studyID api.StudyID, params api.Assignment) (*api.Trial, error) {
	rec, err := s.record(studyID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	t := &api.Trial{
		ID:        api.NewTrialID(),
		StudyID:   studyID,
		Params:    params,
		Status:    api.TrialPending,
		CreatedAt: now(),
	}
	rec.trials = append(rec.trials, t)
	rec.trialByID[t.ID] = t
	rec.study.TrialCount++

	s.mu.Lock()
	s.trialOwner[t.ID] = studyID
	s.mu.Unlock()

	return t.Clone(), nil
}

func (s *Store) ownerOf(trialID api.TrialID) (api.StudyID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.trialOwner[trialID]
	return id, ok
}

func (s *Store) UpdateTrial(_ context.Context, trialID api.TrialID, update store.TrialUpdate) (*api.Trial, error) {
	studyID, ok := s.ownerOf(trialID)
	if !ok {
		return nil, store.ErrNotFound
	}
	rec, err := s.record(studyID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	t, ok := rec.trialByID[trialID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status.IsTerminal() {
		return nil, store.ErrTerminal
	}

	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.FinalScore != nil {
		t.FinalScore = *update.FinalScore
		t.HasFinalScore = true
	}
	if update.FailureKind != nil {
		t.FailureKind = *update.FailureKind
	}
	if update.ObjectiveValues != nil {
		t.ObjectiveValues = append([]float64(nil), (*update.ObjectiveValues)...)
	}
	if update.BracketID != nil {
		t.BracketID = *update.BracketID
		t.HasBracket = true
	}
	if update.CompletedAt != nil {
		t.CompletedAt = *update.CompletedAt
	}

	logger.Debugw("trial updated", "trial", trialID, "status", t.Status)
	return t.Clone(), nil
}

func (s *Store) GetTrial(_ context.Context, trialID api.TrialID) (*api.Trial, error) {
	studyID, ok := s.ownerOf(trialID)
	if !ok {
		return nil, store.ErrNotFound
	}
	rec, err := s.record(studyID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	t, ok := rec.trialByID[trialID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) ListTrials(_ context.Context, studyID api.StudyID) ([]*api.Trial, error) {
	rec, err := s.record(studyID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]*api.Trial, len(rec.trials))
	for i, t := range rec.trials {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *Store) RecordObservation(_ context.Context, trialID api.TrialID, rung int, score float64) error {
	studyID, ok := s.ownerOf(trialID)
	if !ok {
		return store.ErrNotFound
	}
	rec, err := s.record(studyID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	t, ok := rec.trialByID[trialID]
	if !ok {
		return store.ErrNotFound
	}
	if _, dup := rec.observations[trialID][rung]; dup {
		return store.ErrDuplicateObservation
	}

	obs := api.Observation{TrialID: trialID, Rung: rung, Score: score, RecordedAt: now()}
	if rec.observations[trialID] == nil {
		rec.observations[trialID] = make(map[int]api.Observation)
	}
	rec.observations[trialID][rung] = obs
	t.Observations = append(t.Observations, obs)
	return nil
}

func (s *Store) ObservationsAtRung(_ context.Context, studyID api.StudyID, bracketID, rung int) ([]api.Observation, error) {
	rec, err := s.record(studyID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	var out []api.Observation
	for _, t := range rec.trials {
		if !t.HasBracket || t.BracketID != bracketID {
			continue
		}
		if obs, ok := rec.observations[t.ID][rung]; ok {
			out = append(out, obs)
		}
	}
	return out, nil
}

// now is a seam so tests can fake clock behavior without monkeypatching
// time.Now.
var now = time.Now

var _ store.Store = (*Store)(nil)
