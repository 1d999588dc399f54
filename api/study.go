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

// Goal is the direction of optimization.
type Goal string

const (
	Minimize Goal = "minimize"
	Maximize Goal = "maximize"
)

// Better reports whether score a should be preferred over score b under
// this goal.
func (g Goal) Better(a, b float64) bool {
	if g == Maximize {
		return a > b
	}
	return a < b
}

// Sign returns -1 for Minimize and +1 for Maximize, used by samplers that
// need to flip a score into "bigger is better" space internally.
func (g Goal) Sign() float64 {
	if g == Maximize {
		return 1
	}
	return -1
}

// StudyStatus is a Study's lifecycle state.
type StudyStatus string

const (
	StudyRunning   StudyStatus = "running"
	StudyPaused    StudyStatus = "paused"
	StudyCompleted StudyStatus = "completed"
	StudyCancelled StudyStatus = "cancelled"
	// StudyFailed marks a study aborted by a persistence failure; a store
	// write error is fatal to the whole study.
	StudyFailed StudyStatus = "failed"
)

// SamplerKind selects the sampler implementation a Study uses.
type SamplerKind string

const (
	SamplerRandom SamplerKind = "random"
	SamplerGrid   SamplerKind = "grid"
	SamplerTPE    SamplerKind = "tpe"
)

// BandwidthRule selects the KDE bandwidth formula used by the TPE sampler.
type BandwidthRule string

// ScottRule is the Scott bandwidth formula: σ̂ · n^(−1/5).
const ScottRule BandwidthRule = "scott"

// EICandidateStrategy selects how TPE picks among n_candidates proposals.
type EICandidateStrategy string

// GreedyStrategy always returns the single highest-EI candidate.
const GreedyStrategy EICandidateStrategy = "greedy"

// TPEConfig enumerates the TPE sampler's configuration.
type TPEConfig struct {
	// Gamma is the top-fraction used for the good/bad split. Default 0.25.
	Gamma float64
	// MinObservations is the number of succeeded trials with a final score
	// required before TPE engages; below this, delegate to Random. Default 10.
	MinObservations int
	// NCandidates is the number of candidates scored per proposal. Default 24.
	NCandidates int
	// BandwidthRule selects the KDE bandwidth formula. Default ScottRule.
	BandwidthRule BandwidthRule
	// Multivariate enables the Gaussian-copula joint density across
	// continuous dimensions.
	Multivariate bool
	// PriorWeight weights the uniform prior mixed into every KDE. Default 1.0.
	PriorWeight float64
	// EICandidateStrategy selects among scored candidates. Default GreedyStrategy.
	EICandidateStrategy EICandidateStrategy
}

// DefaultTPEConfig returns gamma=0.25 and min_obs=10, the defaults that
// keep proposal behavior at parity with established TPE baselines.
func DefaultTPEConfig() TPEConfig {
	return TPEConfig{
		Gamma:               0.25,
		MinObservations:     10,
		NCandidates:         24,
		BandwidthRule:       ScottRule,
		Multivariate:        false,
		PriorWeight:         1.0,
		EICandidateStrategy: GreedyStrategy,
	}
}

// Validate checks the TPEConfig invariants.
func (c TPEConfig) Validate() error {
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("tpe: gamma must be in (0,1], got %g", c.Gamma)
	}
	if c.MinObservations < 0 {
		return fmt.Errorf("tpe: min_obs must be >= 0, got %d", c.MinObservations)
	}
	if c.NCandidates <= 0 {
		return fmt.Errorf("tpe: n_candidates must be > 0, got %d", c.NCandidates)
	}
	if c.PriorWeight < 0 {
		return fmt.Errorf("tpe: prior_weight must be >= 0, got %g", c.PriorWeight)
	}
	return nil
}

// PrunerKind selects the pruner implementation a Study uses.
type PrunerKind string

const (
	PrunerNone      PrunerKind = "none"
	PrunerHyperband PrunerKind = "hyperband"
)

// HyperbandConfig enumerates the Hyperband/Successive-Halving pruner's
// configuration.
type HyperbandConfig struct {
	// ReductionFactor is η, the per-rung culling factor. Default 3. A value
	// of 1 degenerates Hyperband to plain parallel random search.
	ReductionFactor float64
	// MinResource is r_min, the starting resource of the deepest bracket.
	MinResource float64
	// MaxResource is R, the resource a trial consumes if it survives every rung.
	MaxResource float64
	// WarmupPeers is the number of peers that must report at a rung before
	// any pruning decision is made there. Default = ReductionFactor.
	WarmupPeers int
}

// DefaultHyperbandConfig returns η=3 with warmup_peers=η.
func DefaultHyperbandConfig(minResource, maxResource float64) HyperbandConfig {
	return HyperbandConfig{
		ReductionFactor: 3,
		MinResource:     minResource,
		MaxResource:     maxResource,
		WarmupPeers:     3,
	}
}

// Validate checks the HyperbandConfig invariants.
func (c HyperbandConfig) Validate() error {
	if c.ReductionFactor < 1 {
		return fmt.Errorf("hyperband: reduction_factor must be >= 1, got %g", c.ReductionFactor)
	}
	if c.MinResource <= 0 {
		return fmt.Errorf("hyperband: min_resource must be > 0, got %g", c.MinResource)
	}
	if c.MaxResource < c.MinResource {
		return fmt.Errorf("hyperband: max_resource (%g) must be >= min_resource (%g)", c.MaxResource, c.MinResource)
	}
	if c.WarmupPeers < 0 {
		return fmt.Errorf("hyperband: warmup_peers must be >= 0, got %d", c.WarmupPeers)
	}
	return nil
}

// StudyConfig is the caller-supplied specification a Study is built from.
type StudyConfig struct {
	Goal        Goal
	MaxTrials   int
	Parallelism int
	Seed        int64

	Sampler     SamplerKind
	SamplerOpts TPEConfig

	Pruner     PrunerKind
	PrunerOpts HyperbandConfig

	// ConstantLiar wraps the configured sampler with the constant-liar
	// rule: in-flight trials are folded into the density
	// fit using a conservative worst-observed score, so concurrent
	// workers (Parallelism > 1) don't cluster proposals around a
	// parameter region another trial is already exploring.
	ConstantLiar bool

	// Priors is an optional warm-start history: trials imported from
	// an earlier study, or hand-picked seed configurations, prepended to
	// every history the sampler sees ahead of this study's own trials.
	Priors []*Trial

	// MultiObjectiveWeights, when non-empty, wraps the configured sampler
	// with weighted-sum scalarization over each trial's ObjectiveValues
	// instead of its scalar FinalScore.
	MultiObjectiveWeights []float64

	// GroupConditional pools the history a sampler fits against by
	// active-dimension set (the "group" mode for dynamic search spaces):
	// only trials whose parameter set matches the dimensions currently
	// being proposed contribute to the density fit. Without it, a trial
	// that never drew a dimension is treated as missing data for it.
	GroupConditional bool

	Space *SearchSpace
}

// Validate checks the StudyConfig invariants: parallelism<=0,
// missing search space, and nested sampler/pruner config are all
// ConfigErrorKind, raised before any trial runs.
func (c StudyConfig) Validate() error {
	if c.Goal != Minimize && c.Goal != Maximize {
		return NewConfigError(fmt.Errorf("goal must be %q or %q, got %q", Minimize, Maximize, c.Goal))
	}
	if c.MaxTrials <= 0 {
		return NewConfigError(fmt.Errorf("max_trials must be > 0, got %d", c.MaxTrials))
	}
	if c.Parallelism <= 0 {
		return NewConfigError(fmt.Errorf("parallelism must be > 0, got %d", c.Parallelism))
	}
	if c.Space == nil {
		return NewConfigError(fmt.Errorf("search space is required"))
	}
	if c.Sampler == SamplerTPE {
		if err := c.SamplerOpts.Validate(); err != nil {
			return NewConfigError(err)
		}
	}
	if c.Pruner == PrunerHyperband {
		if err := c.PrunerOpts.Validate(); err != nil {
			return NewConfigError(err)
		}
	}
	return nil
}

// Study is the durable record of one optimization run. Study owns a
// monotonically increasing trial counter (TrialCount) maintained by the
// Store.
type Study struct {
	ID     StudyID
	Config StudyConfig
	Status StudyStatus

	// TrialCount is the number of trials ever created (pending or
	// terminal); it is monotonically increasing and assigns trial order.
	TrialCount int
}

// IsDone reports whether the study has stopped dispatching new trials.
func (s *Study) IsDone() bool {
	return s.Status == StudyCompleted || s.Status == StudyCancelled || s.Status == StudyFailed
}
