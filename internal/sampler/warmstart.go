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

// WarmStart prepends a fixed set of previously completed trials (imported
// from an earlier study, or hand-picked seed configurations) to every
// history the inner sampler sees. The priors are never mutated or persisted
// by this wrapper; the caller owns their lifecycle.
type WarmStart struct {
	Inner  Sampler
	Priors History
}

// NewWarmStart wraps inner so it always observes priors ahead of the live
// trial history.
func NewWarmStart(inner Sampler, priors History) *WarmStart {
	return &WarmStart{Inner: inner, Priors: priors}
}

func (w *WarmStart) Next(params api.StaticParams, trialIndex int, history History, r *rand.Rand) (api.Assignment, error) {
	if len(w.Priors) == 0 {
		return w.Inner.Next(params, trialIndex, history, r)
	}
	merged := make(History, 0, len(w.Priors)+len(history))
	merged = append(merged, w.Priors...)
	merged = append(merged, history...)
	return w.Inner.Next(params, trialIndex, merged, r)
}

// SetInFlight forwards to the inner sampler when it cares about in-flight
// trials; warm-start priors are always complete and never in flight.
func (w *WarmStart) SetInFlight(inFlight History) {
	if ia, ok := w.Inner.(InFlightAware); ok {
		ia.SetInFlight(inFlight)
	}
}

var _ Sampler = (*WarmStart)(nil)
var _ InFlightAware = (*WarmStart)(nil)
