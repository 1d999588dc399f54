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

package hyperband

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
)

func defaultConfig() api.HyperbandConfig {
	return api.DefaultHyperbandConfig(1, 81)
}

func TestNewBuildsAscendingRungCountPerBracket(t *testing.T) {
	h := New(defaultConfig())
	require.NotEmpty(t, h.brackets)
	for i := 1; i < len(h.brackets); i++ {
		assert.GreaterOrEqual(t, len(h.brackets[i].Rungs), len(h.brackets[i-1].Rungs))
	}
	for _, b := range h.brackets {
		assert.InDelta(t, 81, b.Rungs[len(b.Rungs)-1], 1e-9, "every bracket's final rung reaches MaxResource")
	}
	assert.Equal(t, 1, len(h.brackets[0].Rungs), "bracket s=0 is plain random search: a single rung at R")
}

func TestAssignBracketIsDeterministic(t *testing.T) {
	h := New(defaultConfig())
	for i := 0; i < 50; i++ {
		assert.Equal(t, h.AssignBracket(i), h.AssignBracket(i))
	}
}

func TestAssignBracketCoversEveryBracket(t *testing.T) {
	h := New(defaultConfig())
	seen := map[int]bool{}
	for i := 0; i < len(h.schedule); i++ {
		seen[h.AssignBracket(i)] = true
	}
	assert.Len(t, seen, len(h.brackets))
}

func TestKeepAlwaysTrueBeforeWarmup(t *testing.T) {
	h := New(defaultConfig())
	// Rung 0 of the deepest bracket is not its top rung, so only the warmup
	// rule (one peer, fewer than WarmupPeers) can keep this trial.
	lastBracket := len(h.brackets) - 1
	require.Greater(t, len(h.brackets[lastBracket].Rungs), 1)
	peers := []api.Observation{{Score: 1.0}}
	assert.True(t, h.Keep(api.NewTrialID(), lastBracket, 0, 1.0, peers, api.Minimize))
}

func TestKeepNeverPrunesMonotoneImprovingTrial(t *testing.T) {
	cfg := api.HyperbandConfig{ReductionFactor: 3, MinResource: 1, MaxResource: 81, WarmupPeers: 3}
	h := New(cfg)
	bracketID := 0
	for i, b := range h.brackets {
		if len(b.Rungs) > 1 {
			bracketID = i
			break
		}
	}
	// The best-scoring trial among a warmed-up peer population must survive.
	own := api.NewTrialID()
	peers := []api.Observation{
		{TrialID: api.NewTrialID(), Score: 10},
		{TrialID: api.NewTrialID(), Score: 5},
		{TrialID: api.NewTrialID(), Score: 1},
		{TrialID: own, Score: 0.1},
	}
	assert.True(t, h.Keep(own, bracketID, 0, 0.1, peers, api.Minimize))
}

func TestKeepPrunesBottomFractionAtWarmedUpRung(t *testing.T) {
	cfg := api.HyperbandConfig{ReductionFactor: 3, MinResource: 1, MaxResource: 81, WarmupPeers: 3}
	h := New(cfg)
	bracketID := -1
	for i, b := range h.brackets {
		if len(b.Rungs) > 1 {
			bracketID = i
			break
		}
	}
	require.GreaterOrEqual(t, bracketID, 0, "need a bracket with at least one non-terminal rung")

	// Minimize goal: lower is better. Worst (highest) score should be pruned
	// once enough peers have reported to pass warmup.
	own := api.NewTrialID()
	peers := []api.Observation{
		{TrialID: api.NewTrialID(), Score: 1},
		{TrialID: api.NewTrialID(), Score: 2},
		{TrialID: api.NewTrialID(), Score: 3},
		{TrialID: own, Score: 100},
	}
	assert.False(t, h.Keep(own, bracketID, 0, 100, peers, api.Minimize))
}

func TestKeepTieBreaksByCreationOrderAtExactAdvancementRatio(t *testing.T) {
	cfg := api.HyperbandConfig{ReductionFactor: 2, MinResource: 1, MaxResource: 8, WarmupPeers: 2}
	h := New(cfg)
	bracketID := -1
	for i, b := range h.brackets {
		if len(b.Rungs) > 1 {
			bracketID = i
			break
		}
	}
	require.GreaterOrEqual(t, bracketID, 0, "need a bracket with at least one non-terminal rung")

	// Four peers tied at the same score: floor(4/eta)=2 survive. Ties must
	// resolve by creation order (the order peers are listed in, oldest
	// first), not by however sort.Sort happens to reorder equal elements.
	t1, t2, t3, t4 := api.NewTrialID(), api.NewTrialID(), api.NewTrialID(), api.NewTrialID()
	peers := []api.Observation{
		{TrialID: t1, Score: 5},
		{TrialID: t2, Score: 5},
		{TrialID: t3, Score: 5},
		{TrialID: t4, Score: 5},
	}
	assert.True(t, h.Keep(t1, bracketID, 0, 5, peers, api.Minimize), "oldest tied peer must survive")
	assert.True(t, h.Keep(t2, bracketID, 0, 5, peers, api.Minimize), "second-oldest tied peer must survive")
	assert.False(t, h.Keep(t3, bracketID, 0, 5, peers, api.Minimize), "third tied peer exceeds the exact advancement ratio")
	assert.False(t, h.Keep(t4, bracketID, 0, 5, peers, api.Minimize), "youngest tied peer exceeds the exact advancement ratio")
}

func TestKeepAlwaysTrueAtTopRungOfBracket(t *testing.T) {
	h := New(defaultConfig())
	lastBracket := len(h.brackets) - 1
	topRung := len(h.brackets[lastBracket].Rungs) - 1
	peers := []api.Observation{{Score: 1}, {Score: 2}, {Score: 3}, {Score: 4}}
	assert.True(t, h.Keep(api.NewTrialID(), lastBracket, topRung, 4, peers, api.Minimize))
}

func TestReductionFactorOneNeverPrunes(t *testing.T) {
	cfg := api.HyperbandConfig{ReductionFactor: 1, MinResource: 1, MaxResource: 10, WarmupPeers: 0}
	h := New(cfg)
	peers := []api.Observation{{Score: 1}, {Score: 1000}}
	assert.True(t, h.Keep(api.NewTrialID(), 0, 0, 1000, peers, api.Minimize))
}
