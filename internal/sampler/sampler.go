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

// Package sampler implements the proposal framework and the Random and
// Grid baselines. The TPE sampler lives in the tpe subpackage.
package sampler

import (
	"math/rand"

	"github.com/gramlabs/optimize-study/api"
)

// History is the terminal trials of a study in creation order, the only
// state a Sampler is allowed to read besides its own config and the RNG
// handed to it; a sampler is a pure function of (config, history, RNG
// state).
type History []*api.Trial

// Scores returns, for each trial in h that carries a final score, the
// score in the direction where bigger is better (i.e. already multiplied
// by goal.Sign()), alongside its source trial. Samplers fit densities
// against this "bigger is better" view so TPE's good/bad split logic does
// not need to special-case the goal.
func (h History) Scores(goal api.Goal) []ScoredTrial {
	out := make([]ScoredTrial, 0, len(h))
	for _, t := range h {
		if t.Status != api.TrialSucceeded || !t.HasFinalScore {
			continue
		}
		out = append(out, ScoredTrial{Trial: t, Signed: t.FinalScore * goal.Sign()})
	}
	return out
}

// ScoredTrial pairs a trial with its goal-oriented ("bigger is better") score.
type ScoredTrial struct {
	Trial  *api.Trial
	Signed float64
}

// Sampler proposes the parameter assignment for one trial. Implementations
// hold their own immutable config and are pure functions of
// (space, trialIndex, history, rng).
type Sampler interface {
	Next(space api.StaticParams, trialIndex int, history History, r *rand.Rand) (api.Assignment, error)
}

// InFlightAware is implemented by samplers that can incorporate in-flight
// (still-running) trials into their proposal via the constant-liar rule.
// The executor runs up to Parallelism trials concurrently, so
// SetInFlight and Next may both be called from different goroutines at the
// same time; implementations must synchronize their own state accordingly
// (see ConstantLiar's mutex).
type InFlightAware interface {
	SetInFlight(inFlight History)
}
