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

package api

import "fmt"

// ParamKind identifies which variant of a search-space dimension a ParamSpec
// carries.
type ParamKind int

const (
	// Uniform samples continuously from [Low, High].
	Uniform ParamKind = iota
	// LogUniform samples from exp(uniform(log Low, log High)); Low must be > 0.
	LogUniform
	// DiscreteUniform samples from [Low, High] snapped to a Step grid.
	DiscreteUniform
	// IntParam samples an integer inclusively from [IntLow, IntHigh].
	IntParam
	// Categorical samples one of Choices.
	Categorical
)

func (k ParamKind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case LogUniform:
		return "log_uniform"
	case DiscreteUniform:
		return "discrete_uniform"
	case IntParam:
		return "int"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ParamSpec is a single dimension of a SearchSpace. Only the fields
// relevant to Kind are meaningful; construct one with the helpers below
// rather than a literal.
type ParamSpec struct {
	Kind ParamKind

	// Low, High bound Uniform, LogUniform and DiscreteUniform.
	Low, High float64
	// Step is the grid spacing for DiscreteUniform.
	Step float64

	// IntLow, IntHigh bound IntParam, inclusive.
	IntLow, IntHigh int64

	// Choices enumerates a Categorical dimension. Order is significant: it
	// fixes the integer encoding used by the unit transform.
	Choices []string
}

// NewUniform builds a continuous uniform(lo,hi) spec.
func NewUniform(lo, hi float64) ParamSpec {
	return ParamSpec{Kind: Uniform, Low: lo, High: hi}
}

// NewLogUniform builds a log_uniform(lo,hi) spec; lo must be > 0.
func NewLogUniform(lo, hi float64) ParamSpec {
	return ParamSpec{Kind: LogUniform, Low: lo, High: hi}
}

// NewDiscreteUniform builds a discrete_uniform(lo,hi,step) spec.
func NewDiscreteUniform(lo, hi, step float64) ParamSpec {
	return ParamSpec{Kind: DiscreteUniform, Low: lo, High: hi, Step: step}
}

// NewInt builds an int(lo,hi) spec, inclusive of both bounds.
func NewInt(lo, hi int64) ParamSpec {
	return ParamSpec{Kind: IntParam, IntLow: lo, IntHigh: hi}
}

// NewCategorical builds a categorical(choices) spec. choices must be non-empty.
func NewCategorical(choices ...string) ParamSpec {
	return ParamSpec{Kind: Categorical, Choices: choices}
}

// Validate checks a dimension's invariants: invalid bounds are rejected at
// construction rather than surfacing as a sampler bug later.
func (p ParamSpec) Validate(name string) error {
	switch p.Kind {
	case Uniform, DiscreteUniform:
		if p.Low >= p.High {
			return fmt.Errorf("parameter %q: low (%g) must be < high (%g)", name, p.Low, p.High)
		}
		if p.Kind == DiscreteUniform && p.Step <= 0 {
			return fmt.Errorf("parameter %q: step (%g) must be > 0", name, p.Step)
		}
	case LogUniform:
		if p.Low <= 0 {
			return fmt.Errorf("parameter %q: log_uniform requires low > 0, got %g", name, p.Low)
		}
		if p.Low >= p.High {
			return fmt.Errorf("parameter %q: low (%g) must be < high (%g)", name, p.Low, p.High)
		}
	case IntParam:
		if p.IntLow >= p.IntHigh {
			return fmt.Errorf("parameter %q: int low (%d) must be < high (%d)", name, p.IntLow, p.IntHigh)
		}
	case Categorical:
		if len(p.Choices) == 0 {
			return fmt.Errorf("parameter %q: categorical requires a non-empty choice set", name)
		}
	default:
		return fmt.Errorf("parameter %q: unknown kind %v", name, p.Kind)
	}
	return nil
}

// Contains reports whether v satisfies p, used to guard against samplers
// proposing out-of-range values, which is always a sampler bug.
func (p ParamSpec) Contains(v Value) bool {
	switch p.Kind {
	case Uniform, LogUniform:
		return v.Kind == KindFloat && v.Float >= p.Low && v.Float <= p.High
	case DiscreteUniform:
		return v.Kind == KindFloat && v.Float >= p.Low && v.Float <= p.High
	case IntParam:
		return v.Kind == KindInt && v.Int >= p.IntLow && v.Int <= p.IntHigh
	case Categorical:
		if v.Kind != KindCategorical {
			return false
		}
		for _, c := range p.Choices {
			if c == v.Str {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// StaticParams is a fixed name-to-spec mapping.
type StaticParams map[string]ParamSpec

// DynamicParams resolves the active dimensions for a given trial index,
// permitting conditional dimensions. Any dimension name it
// returns must carry the same spec on every call where it applies.
type DynamicParams func(trialIndex int) (StaticParams, error)

// SearchSpace is either a fixed parameter mapping or a function of trial
// index, permitting dimensions whose presence depends on earlier draws.
type SearchSpace struct {
	static  StaticParams
	dynamic DynamicParams
}

// NewSearchSpace builds a static SearchSpace, validating every dimension.
func NewSearchSpace(params StaticParams) (*SearchSpace, error) {
	for name, p := range params {
		if err := p.Validate(name); err != nil {
			return nil, NewConfigError(err)
		}
	}
	cp := make(StaticParams, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return &SearchSpace{static: cp}, nil
}

// NewDynamicSearchSpace builds a SearchSpace whose dimensions depend on the
// trial index. Each resolved mapping is validated when it is produced.
func NewDynamicSearchSpace(fn DynamicParams) *SearchSpace {
	return &SearchSpace{dynamic: fn}
}

// IsDynamic reports whether the space has conditional dimensions.
func (s *SearchSpace) IsDynamic() bool { return s.dynamic != nil }

// Resolve returns the concrete parameter mapping in effect for trialIndex,
// validating every dimension it contains.
func (s *SearchSpace) Resolve(trialIndex int) (StaticParams, error) {
	if s.dynamic == nil {
		return s.static, nil
	}
	params, err := s.dynamic(trialIndex)
	if err != nil {
		return nil, NewConfigError(fmt.Errorf("resolving dynamic search space: %w", err))
	}
	for name, p := range params {
		if err := p.Validate(name); err != nil {
			return nil, NewConfigError(err)
		}
	}
	return params, nil
}
