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
	"context"
	"fmt"
	"math"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/executor"
)

// builtinObjective pairs a search space with an Objective, so hpoctl run
// can exercise the Executor without a real workload to call out to.
type builtinObjective struct {
	space     api.StaticParams
	objective executor.Objective
}

// builtins are the objectives hpoctl run --objective accepts. Both report
// intermediate scores once per rung so a Hyperband pruner has something to
// prune on.
var builtins = map[string]builtinObjective{
	"quadratic": {
		space: api.StaticParams{
			"x": api.NewUniform(-10, 10),
		},
		objective: quadraticObjective,
	},
	"rastrigin": {
		space: api.StaticParams{
			"x": api.NewUniform(-5.12, 5.12),
			"y": api.NewUniform(-5.12, 5.12),
		},
		objective: rastriginObjective,
	},
}

func quadraticObjective(ctx context.Context, trialID api.TrialID, params api.Assignment, report executor.Report) (float64, error) {
	x := params["x"].AsFloat()
	score := x * x
	for rung := 0; rung < 3; rung++ {
		decision, err := report(ctx, rung, score/float64(3-rung))
		if err != nil {
			return 0, err
		}
		if decision == executor.Prune {
			return 0, nil
		}
	}
	return score, nil
}

func rastriginObjective(ctx context.Context, trialID api.TrialID, params api.Assignment, report executor.Report) (float64, error) {
	x, y := params["x"].AsFloat(), params["y"].AsFloat()
	const a = 10
	score := 2*a + (x*x - a*math.Cos(2*math.Pi*x)) + (y*y - a*math.Cos(2*math.Pi*y))
	for rung := 0; rung < 3; rung++ {
		decision, err := report(ctx, rung, score/float64(3-rung))
		if err != nil {
			return 0, err
		}
		if decision == executor.Prune {
			return 0, nil
		}
	}
	return score, nil
}

func builtinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

func lookupBuiltin(name string) (builtinObjective, error) {
	b, ok := builtins[name]
	if !ok {
		return builtinObjective{}, fmt.Errorf("unknown objective %q, want one of %v", name, builtinNames())
	}
	return b, nil
}
