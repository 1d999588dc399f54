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

// Package tpe implements the Tree-structured Parzen Estimator sampler:
// independent per-dimension density estimates l(x) and g(x) fit
// over a good/bad split of history, candidates drawn from l and ranked by
// the l(x)/g(x) expected-improvement acquisition, with an optional
// Gaussian-copula joint density across continuous dimensions.
package tpe

import (
	"math"
	"math/rand"
	"sort"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/sampler"
	"github.com/gramlabs/optimize-study/internal/space"
)

// eps floors any density used as a division denominator or log argument so
// a zero-probability region never produces NaN or +/-Inf acquisition scores.
const eps = 1e-12

// TPE is stateless apart from its fixed configuration; every call refits
// l(x)/g(x) from the history handed to Next, keeping each proposal a pure
// function of (config, history, RNG state).
type TPE struct {
	Goal   api.Goal
	Config api.TPEConfig

	fallback sampler.Sampler
}

// New returns a TPE sampler. cfg should already be validated (TPEConfig.Validate).
func New(goal api.Goal, cfg api.TPEConfig) *TPE {
	return &TPE{Goal: goal, Config: cfg, fallback: sampler.NewRandom()}
}

func (t *TPE) Next(params api.StaticParams, trialIndex int, history sampler.History, r *rand.Rand) (api.Assignment, error) {
	scored := history.Scores(t.Goal)
	if len(scored) < t.Config.MinObservations {
		return t.fallback.Next(params, trialIndex, history, r)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Signed > scored[j].Signed })

	nGood := int(math.Floor(t.Config.Gamma * float64(len(scored))))
	if nGood < 1 {
		nGood = 1
	}
	if nGood > 25 {
		nGood = 25
	}
	if nGood > len(scored) {
		nGood = len(scored)
	}
	good := scored[:nGood]
	bad := scored[nGood:]
	if len(bad) == 0 {
		// Every observation landed in G; G/B cannot be contrasted, so there
		// is no acquisition signal beyond the prior. Borrow the worst-half
		// of G itself as a stand-in B so EI still discriminates.
		mid := len(good) / 2
		if mid < 1 {
			mid = 1
		}
		if mid < len(good) {
			bad = good[mid:]
			good = good[:mid]
		}
	}

	names := sortedNames(params)
	priorWeight := t.Config.PriorWeight

	goodKDEs := make(map[string]*UnivariateKDE)
	badKDEs := make(map[string]*UnivariateKDE)
	goodCats := make(map[string]*CategoricalKDE)
	badCats := make(map[string]*CategoricalKDE)
	goodSamples := make(map[string][]float64)

	for _, name := range names {
		spec := params[name]
		if spec.Kind == api.Categorical {
			goodCats[name] = NewCategoricalKDE(len(spec.Choices), categoricalIndices(spec, name, good), priorWeight)
			badCats[name] = NewCategoricalKDE(len(spec.Choices), categoricalIndices(spec, name, bad), priorWeight)
			continue
		}
		lo, hi := space.UnitBounds(spec)
		goodValues := unitValues(spec, good, name)
		badValues := unitValues(spec, bad, name)
		goodKDEs[name] = NewUnivariateKDE(lo, hi, goodValues, priorWeight)
		badKDEs[name] = NewUnivariateKDE(lo, hi, badValues, priorWeight)
		goodSamples[name] = goodValues
	}

	var copula *GaussianCopula
	if t.Config.Multivariate {
		var continuousDims []string
		for _, name := range names {
			if params[name].Kind != api.Categorical {
				continuousDims = append(continuousDims, name)
			}
		}
		if len(continuousDims) >= 2 {
			copula = NewGaussianCopula(continuousDims, goodSamples, goodKDEs)
		}
	}

	nCandidates := t.Config.NCandidates
	if nCandidates <= 0 {
		nCandidates = 24
	}

	bestEI := math.Inf(-1)
	var best api.Assignment
	for c := 0; c < nCandidates; c++ {
		candidate, unit := t.proposeCandidate(params, names, goodKDEs, goodCats, copula, r)
		ei := acquisition(names, params, unit, candidate, goodKDEs, badKDEs, goodCats, badCats)
		if best == nil || ei > bestEI {
			bestEI = ei
			best = candidate
		}
	}
	if best == nil {
		return t.fallback.Next(params, trialIndex, history, r)
	}
	return best, nil
}

// proposeCandidate draws one candidate assignment from l(x), jointly via
// the copula for continuous dimensions when configured, independently
// otherwise.
func (t *TPE) proposeCandidate(
	params api.StaticParams,
	names []string,
	goodKDEs map[string]*UnivariateKDE,
	goodCats map[string]*CategoricalKDE,
	copula *GaussianCopula,
	r *rand.Rand,
) (api.Assignment, map[string]float64) {
	out := make(api.Assignment, len(names))
	unit := make(map[string]float64, len(names))

	var jointUnit map[string]float64
	if copula != nil {
		jointUnit = copula.Sample(r)
	}

	for _, name := range names {
		spec := params[name]
		if spec.Kind == api.Categorical {
			idx := goodCats[name].Sample(r)
			if idx >= 0 && idx < len(spec.Choices) {
				out[name] = api.CategoricalValue(spec.Choices[idx])
			}
			continue
		}
		var u float64
		if v, ok := jointUnit[name]; ok {
			u = v
		} else {
			u = goodKDEs[name].Sample(r)
		}
		unit[name] = u
		out[name] = space.FromUnit(spec, u)
	}
	return out, unit
}

// acquisition computes log(l(x)) - log(g(x)) summed independently across
// dimensions, the expected-improvement proxy, floored by eps so
// neither term can be zero.
func acquisition(
	names []string,
	params api.StaticParams,
	unit map[string]float64,
	candidate api.Assignment,
	goodKDEs, badKDEs map[string]*UnivariateKDE,
	goodCats, badCats map[string]*CategoricalKDE,
) float64 {
	logEI := 0.0
	for _, name := range names {
		spec := params[name]
		if spec.Kind == api.Categorical {
			idx, ok := space.CategoricalIndex(spec, candidate[name])
			if !ok {
				continue
			}
			lp := math.Max(goodCats[name].Prob(idx), eps)
			gp := math.Max(badCats[name].Prob(idx), eps)
			logEI += math.Log(lp) - math.Log(gp)
			continue
		}
		u, ok := unit[name]
		if !ok {
			continue
		}
		lp := math.Max(goodKDEs[name].Density(u), eps)
		gp := math.Max(badKDEs[name].Density(u), eps)
		logEI += math.Log(lp) - math.Log(gp)
	}
	if math.IsNaN(logEI) {
		return math.Inf(-1)
	}
	return logEI
}

func unitValues(spec api.ParamSpec, scored []sampler.ScoredTrial, name string) []float64 {
	out := make([]float64, 0, len(scored))
	for _, s := range scored {
		v, ok := s.Trial.Params[name]
		if !ok {
			continue
		}
		out = append(out, space.ToUnit(spec, v))
	}
	return out
}

func categoricalIndices(spec api.ParamSpec, name string, scored []sampler.ScoredTrial) []int {
	out := make([]int, 0, len(scored))
	for _, s := range scored {
		v, ok := s.Trial.Params[name]
		if !ok {
			continue
		}
		if idx, ok := space.CategoricalIndex(spec, v); ok {
			out = append(out, idx)
		}
	}
	return out
}

func sortedNames(params api.StaticParams) []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var _ sampler.Sampler = (*TPE)(nil)
