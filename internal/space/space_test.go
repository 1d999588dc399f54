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

package space

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
)

func TestSampleStaysInBounds(t *testing.T) {
	specs := map[string]api.ParamSpec{
		"u":  api.NewUniform(-5, 10),
		"lu": api.NewLogUniform(1e-4, 1),
		"du": api.NewDiscreteUniform(0, 10, 0.5),
		"i":  api.NewInt(-3, 3),
		"c":  api.NewCategorical("a", "b", "c"),
	}

	r := rand.New(rand.NewSource(7))
	for name, spec := range specs {
		for i := 0; i < 500; i++ {
			v := Sample(spec, r)
			assert.Truef(t, spec.Contains(v), "%s: value %v out of bounds for %+v", name, v, spec)
		}
	}
}

func TestDiscreteUniformSnapsToGrid(t *testing.T) {
	spec := api.NewDiscreteUniform(0, 10, 2.5)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		v := Sample(spec, r)
		steps := (v.Float - spec.Low) / spec.Step
		assert.InDelta(t, steps, float64(int(steps+0.5)), 1e-9)
	}
}

func TestUnitTransformRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		spec api.ParamSpec
		val  api.Value
	}{
		{"uniform", api.NewUniform(-5, 10), api.FloatValue(2.3)},
		{"log_uniform", api.NewLogUniform(1e-4, 1), api.FloatValue(0.01)},
		{"int", api.NewInt(-3, 3), api.IntValue(2)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			u := ToUnit(c.spec, c.val)
			back := FromUnit(c.spec, u)
			require.True(t, c.spec.Contains(back))
		})
	}
}

func TestCategoricalIndex(t *testing.T) {
	spec := api.NewCategorical("red", "green", "blue")
	idx, ok := CategoricalIndex(spec, api.CategoricalValue("green"))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = CategoricalIndex(spec, api.CategoricalValue("purple"))
	assert.False(t, ok)
}

func TestUnitBoundsLogUniform(t *testing.T) {
	spec := api.NewLogUniform(1, 100)
	lo, hi := UnitBounds(spec)
	assert.InDelta(t, 0, lo, 1e-9)
	assert.InDelta(t, 4.605170185988092, hi, 1e-9)
}
