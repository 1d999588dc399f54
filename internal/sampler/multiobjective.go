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

	"github.com/gramlabs/optimize-study/api"
)

// MultiObjective scalarizes a vector of per-trial objective values into the
// single score every other sampler expects, via a fixed weighted sum. Scores
// is a caller-supplied accessor rather than a fixed read of Trial's vector
// field so hosts with their own vector-score convention aren't forced
// through Trial.ObjectiveValues; internal/study.NewSampler passes one that
// reads it. Trials Scores cannot resolve are passed through unchanged so a
// partially-populated history doesn't collapse to zero.
type MultiObjective struct {
	Inner   Sampler
	Scores  func(t *api.Trial) ([]float64, bool)
	Weights []float64
}

// NewMultiObjective wraps inner with weighted-sum scalarization.
func NewMultiObjective(inner Sampler, scores func(t *api.Trial) ([]float64, bool), weights []float64) *MultiObjective {
	return &MultiObjective{Inner: inner, Scores: scores, Weights: weights}
}

func (m *MultiObjective) scalarize(t *api.Trial) (float64, bool) {
	if m.Scores == nil {
		return 0, false
	}
	values, ok := m.Scores(t)
	if !ok || len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for i, v := range values {
		w := 1.0
		if i < len(m.Weights) {
			w = m.Weights[i]
		}
		sum += w * v
	}
	return sum, true
}

func (m *MultiObjective) Next(params api.StaticParams, trialIndex int, history History, r *rand.Rand) (api.Assignment, error) {
	merged := make(History, 0, len(history))
	for _, t := range history {
		if t == nil {
			continue
		}
		if s, ok := m.scalarize(t); ok {
			clone := t.Clone()
			clone.FinalScore = s
			clone.HasFinalScore = true
			merged = append(merged, clone)
		} else {
			merged = append(merged, t)
		}
	}
	return m.Inner.Next(params, trialIndex, merged, r)
}

func (m *MultiObjective) SetInFlight(inFlight History) {
	if ia, ok := m.Inner.(InFlightAware); ok {
		ia.SetInFlight(inFlight)
	}
}

var _ Sampler = (*MultiObjective)(nil)
var _ InFlightAware = (*MultiObjective)(nil)
