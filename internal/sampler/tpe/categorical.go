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

package tpe

import "math/rand"

// CategoricalKDE is a Dirichlet-smoothed multinomial over k choices: the
// "density" of a categorical dimension. A pseudocount of
// PriorWeight/k is added to every category so an unobserved choice is never
// assigned zero probability.
type CategoricalKDE struct {
	K           int
	Counts      []float64
	PriorWeight float64
}

// NewCategoricalKDE fits the smoothed multinomial from the observed
// category indices.
func NewCategoricalKDE(k int, indices []int, priorWeight float64) *CategoricalKDE {
	counts := make([]float64, k)
	for _, idx := range indices {
		if idx >= 0 && idx < k {
			counts[idx]++
		}
	}
	return &CategoricalKDE{K: k, Counts: counts, PriorWeight: priorWeight}
}

func (c *CategoricalKDE) total() float64 {
	n := 0.0
	for _, cnt := range c.Counts {
		n += cnt
	}
	return n
}

// Prob returns the smoothed probability of category i.
func (c *CategoricalKDE) Prob(i int) float64 {
	if i < 0 || i >= c.K || c.K == 0 {
		return 0
	}
	pseudo := c.PriorWeight / float64(c.K)
	return (c.Counts[i] + pseudo) / (c.total() + c.PriorWeight)
}

// Sample draws a category index according to the fitted distribution.
func (c *CategoricalKDE) Sample(r *rand.Rand) int {
	if c.K == 0 {
		return 0
	}
	u := r.Float64()
	cum := 0.0
	for i := 0; i < c.K; i++ {
		cum += c.Prob(i)
		if u <= cum {
			return i
		}
	}
	return c.K - 1
}
