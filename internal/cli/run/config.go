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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gramlabs/optimize-study/api"
)

// fileConfig is the on-disk shape of a study configuration, decoded
// separately from api.StudyConfig because the domain type carries a
// *SearchSpace built through validating constructors rather than plain
// struct literals.
type fileConfig struct {
	Goal        string         `yaml:"goal"`
	MaxTrials   int            `yaml:"max_trials"`
	Parallelism int            `yaml:"parallelism"`
	Seed        int64          `yaml:"seed"`
	Sampler     string         `yaml:"sampler"`
	Pruner      string         `yaml:"pruner"`
	TPE         *tpeFileConfig `yaml:"tpe,omitempty"`
	Hyperband   *hbFileConfig  `yaml:"hyperband,omitempty"`

	// ConstantLiar and MultiObjectiveWeights surface the api.StudyConfig
	// sampler wrappers through the config file; there is no flag
	// for MultiObjectiveWeights since it is a vector, not a single value.
	ConstantLiar          bool      `yaml:"constant_liar"`
	GroupConditional      bool      `yaml:"group_conditional"`
	MultiObjectiveWeights []float64 `yaml:"multi_objective_weights,omitempty"`
}

type tpeFileConfig struct {
	Gamma           float64 `yaml:"gamma"`
	MinObservations int     `yaml:"min_observations"`
	NCandidates     int     `yaml:"n_candidates"`
	Multivariate    bool    `yaml:"multivariate"`
	PriorWeight     float64 `yaml:"prior_weight"`
}

type hbFileConfig struct {
	ReductionFactor float64 `yaml:"reduction_factor"`
	MinResource     float64 `yaml:"min_resource"`
	MaxResource     float64 `yaml:"max_resource"`
	WarmupPeers     int     `yaml:"warmup_peers"`
}

// loadFileConfig reads and parses a YAML study configuration from path.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &fc, nil
}

// applyTo overlays fc onto cfg, leaving cfg's zero-valued fields in place
// wherever fc does not specify an override.
func (fc *fileConfig) applyTo(cfg *api.StudyConfig) {
	if fc == nil {
		return
	}
	if fc.Goal != "" {
		cfg.Goal = api.Goal(fc.Goal)
	}
	if fc.MaxTrials > 0 {
		cfg.MaxTrials = fc.MaxTrials
	}
	if fc.Parallelism > 0 {
		cfg.Parallelism = fc.Parallelism
	}
	if fc.Seed != 0 {
		cfg.Seed = fc.Seed
	}
	if fc.Sampler != "" {
		cfg.Sampler = api.SamplerKind(fc.Sampler)
	}
	if fc.Pruner != "" {
		cfg.Pruner = api.PrunerKind(fc.Pruner)
	}
	if fc.ConstantLiar {
		cfg.ConstantLiar = true
	}
	if fc.GroupConditional {
		cfg.GroupConditional = true
	}
	if len(fc.MultiObjectiveWeights) > 0 {
		cfg.MultiObjectiveWeights = fc.MultiObjectiveWeights
	}
	if fc.TPE != nil {
		opts := api.DefaultTPEConfig()
		if fc.TPE.Gamma > 0 {
			opts.Gamma = fc.TPE.Gamma
		}
		if fc.TPE.MinObservations > 0 {
			opts.MinObservations = fc.TPE.MinObservations
		}
		if fc.TPE.NCandidates > 0 {
			opts.NCandidates = fc.TPE.NCandidates
		}
		if fc.TPE.PriorWeight > 0 {
			opts.PriorWeight = fc.TPE.PriorWeight
		}
		opts.Multivariate = fc.TPE.Multivariate
		cfg.SamplerOpts = opts
	}
	if fc.Hyperband != nil {
		min, max := fc.Hyperband.MinResource, fc.Hyperband.MaxResource
		if min <= 0 {
			min = 1
		}
		if max <= 0 {
			max = 81
		}
		opts := api.DefaultHyperbandConfig(min, max)
		if fc.Hyperband.ReductionFactor > 0 {
			opts.ReductionFactor = fc.Hyperband.ReductionFactor
		}
		if fc.Hyperband.WarmupPeers > 0 {
			opts.WarmupPeers = fc.Hyperband.WarmupPeers
		}
		cfg.PrunerOpts = opts
	}
}
