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

// Group is the "group mode" for dynamic search spaces: the inner sampler
// only sees trials whose active-dimension set matches the dimensions being
// proposed right now, so density fits never mix observations drawn under
// different conditional branches of the space. Without it, a trial that
// never drew dimension "x" is simply treated as missing data for "x"; with
// it, such a trial is excluded from the fit entirely.
type Group struct {
	Inner Sampler
}

// NewGroup wraps inner with active-dimension-set pooling.
func NewGroup(inner Sampler) *Group {
	return &Group{Inner: inner}
}

func (g *Group) Next(params api.StaticParams, trialIndex int, history History, r *rand.Rand) (api.Assignment, error) {
	filtered := make(History, 0, len(history))
	for _, t := range history {
		if t != nil && sameDimensionSet(params, t.Params) {
			filtered = append(filtered, t)
		}
	}
	return g.Inner.Next(params, trialIndex, filtered, r)
}

func sameDimensionSet(params api.StaticParams, assignment api.Assignment) bool {
	if len(params) != len(assignment) {
		return false
	}
	for name := range params {
		if _, ok := assignment[name]; !ok {
			return false
		}
	}
	return true
}

// SetInFlight forwards to the inner sampler. The inner sampler folds those
// trials in below Group, so Group's dimension-set filter does not apply to
// them.
func (g *Group) SetInFlight(inFlight History) {
	if ia, ok := g.Inner.(InFlightAware); ok {
		ia.SetInFlight(inFlight)
	}
}

var _ Sampler = (*Group)(nil)
var _ InFlightAware = (*Group)(nil)
