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

// Package space implements primitive sampling from a ParamSpec and
// the unit transform that TPE's density estimators operate in.
package space

import (
	"math"
	"math/rand"

	"github.com/gramlabs/optimize-study/api"
)

// Sample draws a primitive value directly from spec, used by the Random
// baseline and as the fallback path for TPE below min_obs.
func Sample(spec api.ParamSpec, r *rand.Rand) api.Value {
	switch spec.Kind {
	case api.Uniform, api.DiscreteUniform:
		v := spec.Low + r.Float64()*(spec.High-spec.Low)
		if spec.Kind == api.DiscreteUniform {
			v = snapToGrid(v, spec.Low, spec.Step)
		}
		return api.FloatValue(v)
	case api.LogUniform:
		lo, hi := math.Log(spec.Low), math.Log(spec.High)
		return api.FloatValue(math.Exp(lo + r.Float64()*(hi-lo)))
	case api.IntParam:
		lo, hi := float64(spec.IntLow)-0.5, float64(spec.IntHigh)+0.5
		v := lo + r.Float64()*(hi-lo)
		return api.IntValue(clampInt(int64(math.Round(v)), spec.IntLow, spec.IntHigh))
	case api.Categorical:
		return api.CategoricalValue(spec.Choices[r.Intn(len(spec.Choices))])
	default:
		return api.Value{}
	}
}

func snapToGrid(v, lo, step float64) float64 {
	n := math.Round((v - lo) / step)
	return lo + n*step
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsContinuous reports whether spec is fit with a KDE in unit space
// (everything except Categorical).
func IsContinuous(spec api.ParamSpec) bool {
	return spec.Kind != api.Categorical
}

// UnitBounds returns the continuous domain a continuous-kind ParamSpec is
// fit in: identity for Uniform/DiscreteUniform, log-space for LogUniform,
// and the half-integer-padded range for IntParam.
func UnitBounds(spec api.ParamSpec) (lo, hi float64) {
	switch spec.Kind {
	case api.Uniform, api.DiscreteUniform:
		return spec.Low, spec.High
	case api.LogUniform:
		return math.Log(spec.Low), math.Log(spec.High)
	case api.IntParam:
		return float64(spec.IntLow) - 0.5, float64(spec.IntHigh) + 0.5
	default:
		return 0, 0
	}
}

// ToUnit maps a concrete value into the continuous coordinate its KDE is
// fit in. Only valid for continuous-kind specs.
func ToUnit(spec api.ParamSpec, v api.Value) float64 {
	switch spec.Kind {
	case api.Uniform, api.DiscreteUniform:
		return v.AsFloat()
	case api.LogUniform:
		return math.Log(v.AsFloat())
	case api.IntParam:
		return float64(v.Int)
	default:
		return 0
	}
}

// FromUnit maps a continuous unit-space coordinate back to a concrete
// value, applying the inverse transform and, for DiscreteUniform/IntParam,
// the grid snap or rounding appropriate to the kind. The result is always
// clamped so that out-of-range candidates (possible after adding KDE
// bandwidth noise near a boundary) still satisfy spec.Contains.
func FromUnit(spec api.ParamSpec, u float64) api.Value {
	switch spec.Kind {
	case api.Uniform:
		return api.FloatValue(clampFloat(u, spec.Low, spec.High))
	case api.DiscreteUniform:
		v := snapToGrid(u, spec.Low, spec.Step)
		return api.FloatValue(clampFloat(v, spec.Low, spec.High))
	case api.LogUniform:
		v := math.Exp(u)
		return api.FloatValue(clampFloat(v, spec.Low, spec.High))
	case api.IntParam:
		return api.IntValue(clampInt(int64(math.Round(u)), spec.IntLow, spec.IntHigh))
	default:
		return api.Value{}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CategoricalIndex returns the integer encoding of v within spec.Choices,
// mapping a categorical(k) choice to an integer in [0,k).
func CategoricalIndex(spec api.ParamSpec, v api.Value) (int, bool) {
	for i, c := range spec.Choices {
		if c == v.Str {
			return i, true
		}
	}
	return 0, false
}
