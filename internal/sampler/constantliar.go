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
	"sync"

	"github.com/gramlabs/optimize-study/api"
)

// ConstantLiar wraps a Sampler so that in-flight (still-running) trials are
// folded into the density fit with a conservative "lie": the worst score
// seen in history so far, in the goal direction. This is the constant-liar
// rule, which lets a multi-worker study avoid
// clustering proposals around parameter regions that are already being
// explored by a trial whose outcome isn't known yet.
type ConstantLiar struct {
	Inner Sampler
	Goal  api.Goal

	mu       sync.Mutex
	inFlight History
}

// NewConstantLiar wraps inner with the constant-liar rule.
func NewConstantLiar(inner Sampler, goal api.Goal) *ConstantLiar {
	return &ConstantLiar{Inner: inner, Goal: goal}
}

// SetInFlight implements InFlightAware.
func (c *ConstantLiar) SetInFlight(inFlight History) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = inFlight
}

func (c *ConstantLiar) Next(params api.StaticParams, trialIndex int, history History, r *rand.Rand) (api.Assignment, error) {
	c.mu.Lock()
	inFlight := c.inFlight
	c.mu.Unlock()

	if len(inFlight) == 0 {
		return c.Inner.Next(params, trialIndex, history, r)
	}

	worst, ok := worstScore(history, c.Goal)
	if !ok {
		// No completed trial yet to anchor a conservative score against; an
		// invented score would bias the density arbitrarily, so in-flight
		// trials are simply not yet visible to the sampler.
		return c.Inner.Next(params, trialIndex, history, r)
	}

	augmented := make(History, 0, len(history)+len(inFlight))
	augmented = append(augmented, history...)
	for _, t := range inFlight {
		if t == nil || t.Params == nil {
			continue
		}
		liar := &api.Trial{
			ID:            t.ID,
			StudyID:       t.StudyID,
			Params:        t.Params,
			Status:        api.TrialSucceeded,
			FinalScore:    worst,
			HasFinalScore: true,
		}
		augmented = append(augmented, liar)
	}
	return c.Inner.Next(params, trialIndex, augmented, r)
}

func worstScore(history History, goal api.Goal) (float64, bool) {
	found := false
	var worst float64
	for _, t := range history {
		if t.Status != api.TrialSucceeded || !t.HasFinalScore {
			continue
		}
		if !found {
			worst = t.FinalScore
			found = true
			continue
		}
		if goal == api.Maximize {
			if t.FinalScore < worst {
				worst = t.FinalScore
			}
		} else if t.FinalScore > worst {
			worst = t.FinalScore
		}
	}
	return worst, found
}

var _ Sampler = (*ConstantLiar)(nil)
var _ InFlightAware = (*ConstantLiar)(nil)
