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

package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports three metrics:
// hpo_trials_total{status}, hpo_trial_duration_seconds, and
// hpo_rung_population{bracket,rung}.
type PrometheusSink struct {
	trialsTotal    *prometheus.CounterVec
	trialDuration  prometheus.Histogram
	rungPopulation *prometheus.GaugeVec
}

// NewPrometheusSink constructs and registers the metrics against reg. Pass
// prometheus.DefaultRegisterer for process-wide export.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		trialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hpo_trials_total",
			Help: "Total trials reaching a terminal status, by status.",
		}, []string{"status"}),
		trialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hpo_trial_duration_seconds",
			Help:    "Wall-clock duration of completed trials.",
			Buckets: prometheus.DefBuckets,
		}),
		rungPopulation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpo_rung_population",
			Help: "Number of trials that have reported at a given bracket/rung.",
		}, []string{"bracket", "rung"}),
	}
	reg.MustRegister(s.trialsTotal, s.trialDuration, s.rungPopulation)
	return s
}

// Handle implements Sink.
func (s *PrometheusSink) Handle(e Event) {
	switch e.Kind {
	case TrialSucceeded:
		s.trialsTotal.WithLabelValues("succeeded").Inc()
		if e.Duration > 0 {
			s.trialDuration.Observe(e.Duration.Seconds())
		}
	case TrialFailed:
		s.trialsTotal.WithLabelValues("failed").Inc()
		if e.Duration > 0 {
			s.trialDuration.Observe(e.Duration.Seconds())
		}
	case TrialPruned:
		s.trialsTotal.WithLabelValues("pruned").Inc()
		if e.Duration > 0 {
			s.trialDuration.Observe(e.Duration.Seconds())
		}
	case TrialReported:
		s.rungPopulation.WithLabelValues(strconv.Itoa(e.BracketID), strconv.Itoa(e.Rung)).Inc()
	}
}

var _ Sink = (*PrometheusSink)(nil)
