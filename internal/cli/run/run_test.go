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

package run

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdutil "github.com/gramlabs/optimize-study/internal/cli/util"
)

func TestRunOptionsCompletesQuadraticWithRandomSampler(t *testing.T) {
	var out bytes.Buffer
	o := NewOptions(cmdutil.IOStreams{Out: &out, ErrOut: &out})
	o.Objective = "quadratic"
	o.Sampler = "random"
	o.Pruner = "none"
	o.MaxTrials = 5
	o.Parallelism = 2

	require.NoError(t, o.Complete())
	require.NoError(t, o.Run(context.Background()))

	assert.Contains(t, out.String(), "study")
}

func TestRunOptionsRejectsUnknownObjective(t *testing.T) {
	o := NewOptions(cmdutil.IOStreams{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}})
	o.Objective = "does-not-exist"

	assert.Error(t, o.Complete())
}

func TestRunOptionsWithConstantLiar(t *testing.T) {
	var out bytes.Buffer
	o := NewOptions(cmdutil.IOStreams{Out: &out, ErrOut: &out})
	o.Objective = "quadratic"
	o.Sampler = "tpe"
	o.Pruner = "none"
	o.MaxTrials = 8
	o.Parallelism = 4
	o.ConstantLiar = true

	require.NoError(t, o.Complete())
	require.NoError(t, o.Run(context.Background()))

	assert.Contains(t, out.String(), "study")
}

func TestRunOptionsWithHyperbandPruner(t *testing.T) {
	var out bytes.Buffer
	o := NewOptions(cmdutil.IOStreams{Out: &out, ErrOut: &out})
	o.Objective = "rastrigin"
	o.Sampler = "tpe"
	o.Pruner = "hyperband"
	o.MaxTrials = 6
	o.Parallelism = 3
	o.Output = "json"

	require.NoError(t, o.Complete())
	require.NoError(t, o.Run(context.Background()))

	assert.Contains(t, out.String(), "\"Study\"")
}
