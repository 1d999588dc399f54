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

// Package run implements `hpoctl run`, a demonstration harness that drives
// the Executor against a built-in objective so the library can be exercised
// end to end without a real workload behind it.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gramlabs/optimize-study/api"
	cmdutil "github.com/gramlabs/optimize-study/internal/cli/util"
	"github.com/gramlabs/optimize-study/internal/executor"
	"github.com/gramlabs/optimize-study/internal/log"
	"github.com/gramlabs/optimize-study/internal/status"
	"github.com/gramlabs/optimize-study/internal/store/memory"
	"github.com/gramlabs/optimize-study/internal/study"
	"github.com/gramlabs/optimize-study/internal/telemetry"
)

const (
	runLong = `Run a built-in objective through the study executor.

hpoctl run exists to exercise the sampler, pruner and executor packages end
to end against a real optimization loop; it is a demonstration harness, not
a replacement for wiring a Store and Objective into a host program.`
)

// Options holds `hpoctl run`'s configuration, built up by Complete from
// flags and an optional config file and consumed by Run.
type Options struct {
	Objective    string
	ConfigFile   string
	MaxTrials    int
	Parallelism  int
	Seed         int64
	Sampler      string
	Pruner       string
	Output       string
	MetricsAddr  string
	ConstantLiar bool

	cfg api.StudyConfig

	cmdutil.IOStreams
}

// NewOptions returns an Options bound to streams, with flag defaults set.
func NewOptions(streams cmdutil.IOStreams) *Options {
	return &Options{
		Objective:   "quadratic",
		MaxTrials:   30,
		Parallelism: 4,
		Seed:        1,
		Sampler:     string(api.SamplerTPE),
		Pruner:      string(api.PrunerNone),
		Output:      "table",
		IOStreams:   streams,
	}
}

// NewCommand builds the `run` subcommand.
func NewCommand(streams cmdutil.IOStreams) *cobra.Command {
	o := NewOptions(streams)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a built-in objective through the study executor",
		Long:  runLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.Objective, "objective", o.Objective, fmt.Sprintf("Built-in objective to optimize. One of: %v", builtinNames()))
	flags.StringVar(&o.ConfigFile, "config", "", "Path to a YAML study configuration overriding the flag defaults")
	flags.IntVar(&o.MaxTrials, "max-trials", o.MaxTrials, "Number of trials to run")
	flags.IntVar(&o.Parallelism, "parallelism", o.Parallelism, "Number of trials to run concurrently")
	flags.Int64Var(&o.Seed, "seed", o.Seed, "Base seed for deterministic trial RNG derivation")
	flags.StringVar(&o.Sampler, "sampler", o.Sampler, "Sampler to use. One of: random|grid|tpe")
	flags.StringVar(&o.Pruner, "pruner", o.Pruner, "Pruner to use. One of: none|hyperband")
	flags.StringVar(&o.Output, "output", o.Output, "Final status output format. One of: table|json|yaml")
	flags.StringVar(&o.MetricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address for the run's duration")
	flags.BoolVar(&o.ConstantLiar, "constant-liar", o.ConstantLiar, "Apply the constant-liar rule so in-flight trials are folded into the sampler's density fit")

	return cmd
}

// Complete resolves flags (and an optional config file) into a validated
// api.StudyConfig.
func (o *Options) Complete() error {
	b, err := lookupBuiltin(o.Objective)
	if err != nil {
		return err
	}
	space, err := api.NewSearchSpace(b.space)
	if err != nil {
		return err
	}

	cfg := api.StudyConfig{
		Goal:         api.Minimize,
		MaxTrials:    o.MaxTrials,
		Parallelism:  o.Parallelism,
		Seed:         o.Seed,
		Sampler:      api.SamplerKind(o.Sampler),
		SamplerOpts:  api.DefaultTPEConfig(),
		Pruner:       api.PrunerKind(o.Pruner),
		PrunerOpts:   api.DefaultHyperbandConfig(1, 81),
		ConstantLiar: o.ConstantLiar,
		Space:        space,
	}

	if o.ConfigFile != "" {
		fc, err := loadFileConfig(o.ConfigFile)
		if err != nil {
			return err
		}
		fc.applyTo(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// Run builds the Sampler/Pruner/Store the resolved config names, drives the
// Executor to completion, and prints the final Status.
func (o *Options) Run(ctx context.Context) error {
	b, err := lookupBuiltin(o.Objective)
	if err != nil {
		return err
	}

	sm, err := study.NewSampler(o.cfg)
	if err != nil {
		return err
	}
	pr, err := study.NewPruner(o.cfg)
	if err != nil {
		return err
	}

	st := memory.New()
	studyID := api.NewStudyID()
	if err := st.PutStudy(ctx, &api.Study{ID: studyID, Config: o.cfg, Status: api.StudyRunning}); err != nil {
		return err
	}

	dispatcher := telemetry.NewDispatcher()
	reg := prometheus.NewRegistry()
	dispatcher.Subscribe(telemetry.NewPrometheusSink(reg))
	dispatcher.Subscribe(telemetry.SinkFunc(o.logEvent))

	var metricsSrv *http.Server
	if o.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: o.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Named("cli.run").Warnw("metrics server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	exec := executor.New(st, sm, pr, dispatcher)
	if _, err := exec.Run(ctx, studyID, b.objective); err != nil {
		return err
	}

	snapshot, err := status.Compute(ctx, st, studyID)
	if err != nil {
		return err
	}
	return o.printStatus(snapshot)
}

func (o *Options) logEvent(e telemetry.Event) {
	logger := log.Named("cli.run")
	switch e.Kind {
	case telemetry.TrialSucceeded:
		logger.Infow("trial succeeded", "trial", e.TrialID.String(), "score", e.Score)
	case telemetry.TrialFailed:
		logger.Infow("trial failed", "trial", e.TrialID.String(), "err", e.Err)
	case telemetry.TrialPruned:
		logger.Infow("trial pruned", "trial", e.TrialID.String(), "bracket", e.BracketID, "rung", e.Rung)
	case telemetry.StudyCompleted:
		logger.Infow("study completed")
	}
}

func (o *Options) printStatus(s *status.Status) error {
	switch o.Output {
	case "json":
		enc := json.NewEncoder(o.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(o.Out)
		defer enc.Close()
		return enc.Encode(s)
	default:
		return printTable(o.Out, s)
	}
}

func printTable(w io.Writer, s *status.Status) error {
	if _, err := fmt.Fprintf(w, "study %s (%s)\n", s.Study.ID, s.Study.Status); err != nil {
		return err
	}
	for trialStatus, count := range s.CountsByStatus {
		if _, err := fmt.Fprintf(w, "  %-10s %d\n", trialStatus, count); err != nil {
			return err
		}
	}
	if s.BestTrial != nil {
		if _, err := fmt.Fprintf(w, "best trial %s: score=%g params=%s\n",
			s.BestTrial.ID, s.BestTrial.FinalScore, formatAssignment(s.BestTrial.Params)); err != nil {
			return err
		}
	}
	for _, rp := range s.RungPopulations {
		if _, err := fmt.Fprintf(w, "  bracket=%d rung=%d population=%d\n", rp.BracketID, rp.Rung, rp.Count); err != nil {
			return err
		}
	}
	return nil
}

func formatAssignment(a api.Assignment) string {
	out := "{"
	first := true
	for name, v := range a {
		if !first {
			out += ", "
		}
		first = false
		out += name + "=" + v.String()
	}
	return out + "}"
}
