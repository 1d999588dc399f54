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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramlabs/optimize-study/api"
)

func TestGridIsDeterministicAndInBounds(t *testing.T) {
	params := api.StaticParams{
		"c": api.NewCategorical("a", "b", "c"),
		"i": api.NewInt(0, 2),
	}
	g := NewGrid(5)

	seen := map[string]bool{}
	for i := 0; i < 9; i++ {
		a1, err := g.Next(params, i, nil, nil)
		require.NoError(t, err)
		a2, err := g.Next(params, i, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		for name, v := range a1 {
			assert.True(t, params[name].Contains(v))
		}
		key := a1["c"].String() + "/" + a1["i"].String()
		seen[key] = true
	}
	assert.Len(t, seen, 9, "expected all 9 combinations to be visited exactly once before wrapping")
}

func TestGridWrapsAroundAfterAllCombinations(t *testing.T) {
	params := api.StaticParams{"c": api.NewCategorical("a", "b")}
	g := NewGrid(5)

	a, err := g.Next(params, 0, nil, nil)
	require.NoError(t, err)
	b, err := g.Next(params, 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
