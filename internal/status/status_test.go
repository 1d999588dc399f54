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

package status

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/store"
	"github.com/gramlabs/optimize-study/internal/store/memory"
)

func newTestStudy(t *testing.T, goal api.Goal) (*memory.Store, api.StudyID) {
	t.Helper()
	m := memory.New()
	id := api.NewStudyID()
	space, err := api.NewSearchSpace(api.StaticParams{"x": api.NewUniform(0, 1)})
	require.NoError(t, err)
	err = m.PutStudy(context.Background(), &api.Study{
		ID: id,
		Config: api.StudyConfig{
			Goal:        goal,
			MaxTrials:   10,
			Parallelism: 1,
			Space:       space,
		},
		Status: api.StudyRunning,
	})
	require.NoError(t, err)
	return m, id
}

func TestComputeTracksBestTrialAndCounts(t *testing.T) {
	m, studyID := newTestStudy(t, api.Minimize)
	ctx := context.Background()

	good, err := m.AddTrial(ctx, studyID, api.Assignment{"x": api.FloatValue(0.1)})
	require.NoError(t, err)
	bad, err := m.AddTrial(ctx, studyID, api.Assignment{"x": api.FloatValue(0.9)})
	require.NoError(t, err)

	goodScore, badScore := 1.0, 5.0
	succeeded := api.TrialSucceeded
	_, err = m.UpdateTrial(ctx, good.ID, store.TrialUpdate{Status: &succeeded, FinalScore: &goodScore})
	require.NoError(t, err)
	_, err = m.UpdateTrial(ctx, bad.ID, store.TrialUpdate{Status: &succeeded, FinalScore: &badScore})
	require.NoError(t, err)

	st, err := Compute(ctx, m, studyID)
	require.NoError(t, err)
	require.NotNil(t, st.BestTrial)
	assert.Equal(t, good.ID, st.BestTrial.ID)
	assert.Equal(t, 2, st.CountsByStatus[api.TrialSucceeded])
}

func TestComputeAggregatesRungPopulations(t *testing.T) {
	m, studyID := newTestStudy(t, api.Minimize)
	ctx := context.Background()

	t1, err := m.AddTrial(ctx, studyID, api.Assignment{"x": api.FloatValue(0.1)})
	require.NoError(t, err)
	t2, err := m.AddTrial(ctx, studyID, api.Assignment{"x": api.FloatValue(0.2)})
	require.NoError(t, err)

	bracket0 := 0
	_, err = m.UpdateTrial(ctx, t1.ID, store.TrialUpdate{BracketID: &bracket0})
	require.NoError(t, err)
	_, err = m.UpdateTrial(ctx, t2.ID, store.TrialUpdate{BracketID: &bracket0})
	require.NoError(t, err)

	require.NoError(t, m.RecordObservation(ctx, t1.ID, 0, 1.0))
	require.NoError(t, m.RecordObservation(ctx, t2.ID, 0, 2.0))

	st, err := Compute(ctx, m, studyID)
	require.NoError(t, err)

	sort.Slice(st.RungPopulations, func(i, j int) bool { return st.RungPopulations[i].Rung < st.RungPopulations[j].Rung })
	require.Len(t, st.RungPopulations, 1)
	assert.Equal(t, 2, st.RungPopulations[0].Count)
}
