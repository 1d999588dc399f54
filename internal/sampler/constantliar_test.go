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

package sampler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
)

// recorder captures the history it was handed so assertions can inspect it.
type recorder struct {
	seen History
}

func (rec *recorder) Next(_ api.StaticParams, _ int, history History, _ *rand.Rand) (api.Assignment, error) {
	rec.seen = history
	return api.Assignment{}, nil
}

func TestConstantLiarIgnoresInFlightWithoutHistory(t *testing.T) {
	rec := &recorder{}
	cl := NewConstantLiar(rec, api.Minimize)
	cl.SetInFlight(History{{ID: api.NewTrialID(), Params: api.Assignment{"x": api.FloatValue(1)}}})

	_, err := cl.Next(nil, 0, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, rec.seen)
}

func TestConstantLiarAppliesWorstScoreToInFlight(t *testing.T) {
	rec := &recorder{}
	cl := NewConstantLiar(rec, api.Minimize)
	inFlightID := api.NewTrialID()
	cl.SetInFlight(History{{ID: inFlightID, Params: api.Assignment{"x": api.FloatValue(1)}}})

	history := History{
		{Status: api.TrialSucceeded, HasFinalScore: true, FinalScore: 1.0},
		{Status: api.TrialSucceeded, HasFinalScore: true, FinalScore: 5.0},
	}

	_, err := cl.Next(nil, 0, history, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, rec.seen, 3)

	var liar *api.Trial
	for _, t := range rec.seen {
		if t.ID == inFlightID {
			liar = t
		}
	}
	require.NotNil(t, liar)
	assert.Equal(t, 5.0, liar.FinalScore, "minimize goal: worst observed score is the largest")
}
