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

// Package study builds the Sampler and Pruner a StudyConfig names into
// concrete implementations, so that callers configure a study declaratively
// instead of wiring package internals by hand.
package study

import (
	"fmt"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/pruner"
	"github.com/gramlabs/optimize-study/internal/pruner/hyperband"
	"github.com/gramlabs/optimize-study/internal/sampler"
	"github.com/gramlabs/optimize-study/internal/sampler/tpe"
)

// GridResolution is the discretization used when cfg.Sampler is
// SamplerGrid; the grid sampler has no dedicated config slot in
// StudyConfig, so a fixed, documented default stands in for one.
const GridResolution = 10

// NewSampler builds the Sampler cfg.Sampler names, then layers on the
// optional wrappers (warm-start priors, conditional-dimension grouping,
// the constant-liar rule, weighted-sum multi-objective scalarization)
// that cfg opted into. Wrapping order, outermost
// first: ConstantLiar sees the live history before warm-start priors are
// added, so its worst-score lie is anchored to this study's own trials;
// Group then drops any trial (prior or live) whose active-dimension set
// differs from the one being proposed; WarmStart prepends priors ahead of
// whatever history reaches it; MultiObjective sits innermost, scalarizing
// every trial just before the base sampler fits against it.
func NewSampler(cfg api.StudyConfig) (sampler.Sampler, error) {
	s, err := newBaseSampler(cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.MultiObjectiveWeights) > 0 {
		s = sampler.NewMultiObjective(s, objectiveValuesScores, cfg.MultiObjectiveWeights)
	}
	if len(cfg.Priors) > 0 {
		s = sampler.NewWarmStart(s, sampler.History(cfg.Priors))
	}
	if cfg.GroupConditional {
		// Outside WarmStart so priors drawn under a different conditional
		// branch are filtered out too; inside ConstantLiar so in-flight
		// lies (which carry each in-flight trial's own params) are filtered
		// by the same dimension-set rule as history.
		s = sampler.NewGroup(s)
	}
	if cfg.ConstantLiar {
		s = sampler.NewConstantLiar(s, cfg.Goal)
	}
	return s, nil
}

// objectiveValuesScores is the sampler.MultiObjective Scores accessor used
// when a study is built through this factory: it reads the vector a host
// recorded via Store.UpdateTrial's TrialUpdate.ObjectiveValues.
func objectiveValuesScores(t *api.Trial) ([]float64, bool) {
	if len(t.ObjectiveValues) == 0 {
		return nil, false
	}
	return t.ObjectiveValues, true
}

func newBaseSampler(cfg api.StudyConfig) (sampler.Sampler, error) {
	switch cfg.Sampler {
	case api.SamplerRandom, "":
		return sampler.NewRandom(), nil
	case api.SamplerGrid:
		return sampler.NewGrid(GridResolution), nil
	case api.SamplerTPE:
		return tpe.New(cfg.Goal, cfg.SamplerOpts), nil
	default:
		return nil, api.NewConfigError(fmt.Errorf("unknown sampler kind %q", cfg.Sampler))
	}
}

// NewPruner builds the Pruner cfg.Pruner names.
func NewPruner(cfg api.StudyConfig) (pruner.Pruner, error) {
	switch cfg.Pruner {
	case api.PrunerNone, "":
		return pruner.NoPrune{}, nil
	case api.PrunerHyperband:
		return hyperband.New(cfg.PrunerOpts), nil
	default:
		return nil, api.NewConfigError(fmt.Errorf("unknown pruner kind %q", cfg.Pruner))
	}
}
