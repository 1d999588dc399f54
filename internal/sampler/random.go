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
	"github.com/gramlabs/optimize-study/internal/space"
)

// Random is the baseline sampler: every dimension drawn independently from
// its spec, history ignored entirely.
type Random struct{}

// NewRandom returns a Random sampler.
func NewRandom() *Random { return &Random{} }

func (Random) Next(params api.StaticParams, _ int, _ History, r *rand.Rand) (api.Assignment, error) {
	out := make(api.Assignment, len(params))
	for name, spec := range params {
		out[name] = space.Sample(spec, r)
	}
	return out, nil
}

var _ Sampler = Random{}
