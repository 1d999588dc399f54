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

func TestGroupFiltersHistoryToMatchingDimensionSets(t *testing.T) {
	rec := &recorder{}
	g := NewGroup(rec)

	params := api.StaticParams{
		"x": api.NewUniform(0, 1),
		"y": api.NewUniform(0, 1),
	}
	matching := &api.Trial{ID: api.NewTrialID(), Params: api.Assignment{
		"x": api.FloatValue(0.5), "y": api.FloatValue(0.5),
	}}
	missingDim := &api.Trial{ID: api.NewTrialID(), Params: api.Assignment{
		"x": api.FloatValue(0.5),
	}}
	extraDim := &api.Trial{ID: api.NewTrialID(), Params: api.Assignment{
		"x": api.FloatValue(0.5), "y": api.FloatValue(0.5), "z": api.FloatValue(0.5),
	}}

	_, err := g.Next(params, 0, History{matching, missingDim, extraDim}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.Len(t, rec.seen, 1)
	assert.Equal(t, matching.ID, rec.seen[0].ID)
}

func TestGroupPassesEmptyHistoryThrough(t *testing.T) {
	rec := &recorder{}
	g := NewGroup(rec)

	params := api.StaticParams{"x": api.NewUniform(0, 1)}
	_, err := g.Next(params, 0, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, rec.seen)
}
