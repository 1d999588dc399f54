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

package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/pruner"
	"github.com/gramlabs/optimize-study/internal/pruner/hyperband"
	"github.com/gramlabs/optimize-study/internal/sampler"
	"github.com/gramlabs/optimize-study/internal/sampler/tpe"
)

func TestNewSamplerBuildsEachKnownKind(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{Sampler: api.SamplerRandom})
	require.NoError(t, err)
	assert.IsType(t, &sampler.Random{}, s)

	s, err = NewSampler(api.StudyConfig{Sampler: api.SamplerGrid})
	require.NoError(t, err)
	assert.IsType(t, &sampler.Grid{}, s)

	s, err = NewSampler(api.StudyConfig{Sampler: api.SamplerTPE, Goal: api.Minimize, SamplerOpts: api.DefaultTPEConfig()})
	require.NoError(t, err)
	assert.IsType(t, &tpe.TPE{}, s)
}

func TestNewSamplerRejectsUnknownKind(t *testing.T) {
	_, err := NewSampler(api.StudyConfig{Sampler: api.SamplerKind("bogus")})
	assert.Error(t, err)
}

func TestNewSamplerWrapsConstantLiarWhenConfigured(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{Sampler: api.SamplerRandom, Goal: api.Minimize, ConstantLiar: true})
	require.NoError(t, err)
	assert.IsType(t, &sampler.ConstantLiar{}, s)
}

func TestNewSamplerWrapsWarmStartWhenPriorsConfigured(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{Sampler: api.SamplerRandom, Priors: []*api.Trial{{ID: api.NewTrialID()}}})
	require.NoError(t, err)
	assert.IsType(t, &sampler.WarmStart{}, s)
}

func TestNewSamplerWrapsMultiObjectiveWhenWeightsConfigured(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{Sampler: api.SamplerRandom, MultiObjectiveWeights: []float64{0.5, 0.5}})
	require.NoError(t, err)
	assert.IsType(t, &sampler.MultiObjective{}, s)
}

func TestNewSamplerWrapsGroupWhenConfigured(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{Sampler: api.SamplerRandom, GroupConditional: true})
	require.NoError(t, err)
	assert.IsType(t, &sampler.Group{}, s)
}

func TestNewSamplerComposesAllWrappers(t *testing.T) {
	s, err := NewSampler(api.StudyConfig{
		Sampler:               api.SamplerRandom,
		Goal:                  api.Minimize,
		ConstantLiar:          true,
		GroupConditional:      true,
		Priors:                []*api.Trial{{ID: api.NewTrialID()}},
		MultiObjectiveWeights: []float64{1},
	})
	require.NoError(t, err)
	liar, ok := s.(*sampler.ConstantLiar)
	require.True(t, ok, "outermost wrapper must be ConstantLiar")
	group, ok := liar.Inner.(*sampler.Group)
	require.True(t, ok, "ConstantLiar must wrap Group")
	warm, ok := group.Inner.(*sampler.WarmStart)
	require.True(t, ok, "Group must wrap WarmStart")
	multi, ok := warm.Inner.(*sampler.MultiObjective)
	require.True(t, ok, "WarmStart must wrap MultiObjective")
	assert.IsType(t, &sampler.Random{}, multi.Inner)
}

func TestNewPrunerBuildsEachKnownKind(t *testing.T) {
	p, err := NewPruner(api.StudyConfig{Pruner: api.PrunerNone})
	require.NoError(t, err)
	assert.Equal(t, pruner.NoPrune{}, p)

	p, err = NewPruner(api.StudyConfig{Pruner: api.PrunerHyperband, PrunerOpts: api.DefaultHyperbandConfig(1, 81)})
	require.NoError(t, err)
	assert.IsType(t, &hyperband.Hyperband{}, p)
}

func TestNewPrunerRejectsUnknownKind(t *testing.T) {
	_, err := NewPruner(api.StudyConfig{Pruner: api.PrunerKind("bogus")})
	assert.Error(t, err)
}
