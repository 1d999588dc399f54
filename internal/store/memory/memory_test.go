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

package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/store"
)

func newStudy(t *testing.T, s *Store) *api.Study {
	t.Helper()
	study := &api.Study{ID: api.NewStudyID(), Status: api.StudyRunning}
	require.NoError(t, s.PutStudy(context.Background(), study))
	return study
}

func TestAddTrialAssignsIDAndIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)

	tr1, err := s.AddTrial(ctx, study.ID, api.Assignment{"x": api.FloatValue(1)})
	require.NoError(t, err)
	tr2, err := s.AddTrial(ctx, study.ID, api.Assignment{"x": api.FloatValue(2)})
	require.NoError(t, err)

	assert.NotEqual(t, tr1.ID, tr2.ID)

	got, err := s.GetStudy(ctx, study.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TrialCount)
}

func TestUpdateTrialRejectsTerminalTransition(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)
	tr, err := s.AddTrial(ctx, study.ID, nil)
	require.NoError(t, err)

	succeeded := api.TrialSucceeded
	_, err = s.UpdateTrial(ctx, tr.ID, store.TrialUpdate{Status: &succeeded})
	require.NoError(t, err)

	running := api.TrialRunning
	_, err = s.UpdateTrial(ctx, tr.ID, store.TrialUpdate{Status: &running})
	assert.ErrorIs(t, err, store.ErrTerminal)
}

func TestRecordObservationRejectsDuplicateRung(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)
	tr, err := s.AddTrial(ctx, study.ID, nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordObservation(ctx, tr.ID, 0, 0.5))
	err = s.RecordObservation(ctx, tr.ID, 0, 0.6)
	assert.ErrorIs(t, err, store.ErrDuplicateObservation)

	require.NoError(t, s.RecordObservation(ctx, tr.ID, 1, 0.7))
}

func TestListTrialsIsStableCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)

	var ids []api.TrialID
	for i := 0; i < 10; i++ {
		tr, err := s.AddTrial(ctx, study.ID, nil)
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	trials, err := s.ListTrials(ctx, study.ID)
	require.NoError(t, err)
	require.Len(t, trials, 10)
	for i, tr := range trials {
		assert.Equal(t, ids[i], tr.ID)
	}
}

func TestObservationsAtRungFiltersByBracket(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)

	tr1, _ := s.AddTrial(ctx, study.ID, nil)
	tr2, _ := s.AddTrial(ctx, study.ID, nil)
	b0, b1 := 0, 1
	_, err := s.UpdateTrial(ctx, tr1.ID, store.TrialUpdate{BracketID: &b0})
	require.NoError(t, err)
	_, err = s.UpdateTrial(ctx, tr2.ID, store.TrialUpdate{BracketID: &b1})
	require.NoError(t, err)

	require.NoError(t, s.RecordObservation(ctx, tr1.ID, 0, 0.1))
	require.NoError(t, s.RecordObservation(ctx, tr2.ID, 0, 0.2))

	obs, err := s.ObservationsAtRung(ctx, study.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, tr1.ID, obs[0].TrialID)
}

func TestConcurrentAddTrialIsSafe(t *testing.T) {
	ctx := context.Background()
	s := New()
	study := newStudy(t, s)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.AddTrial(ctx, study.ID, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetStudy(ctx, study.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.TrialCount)

	trials, err := s.ListTrials(ctx, study.ID)
	require.NoError(t, err)
	assert.Len(t, trials, n)
}

func TestDifferentStudiesDoNotContend(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newStudy(t, s)
	b := newStudy(t, s)

	_, err := s.AddTrial(ctx, a.ID, nil)
	require.NoError(t, err)
	_, err = s.AddTrial(ctx, b.ID, nil)
	require.NoError(t, err)

	gotA, err := s.GetStudy(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.GetStudy(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotA.TrialCount)
	assert.Equal(t, 1, gotB.TrialCount)
}
