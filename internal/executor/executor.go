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

// Package executor implements the worker pool that drives a study to
// completion, coordinating the Sampler, Pruner and Store around each
// trial's report-callback protocol.
package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/log"
	"github.com/gramlabs/optimize-study/internal/pruner"
	"github.com/gramlabs/optimize-study/internal/rng"
	"github.com/gramlabs/optimize-study/internal/sampler"
	"github.com/gramlabs/optimize-study/internal/space"
	"github.com/gramlabs/optimize-study/internal/store"
	"github.com/gramlabs/optimize-study/internal/telemetry"
)

// Decision is returned from Report to tell the objective whether to
// continue running or stop, the two outcomes of the report-callback
// protocol.
type Decision int

const (
	Continue Decision = iota
	Prune
)

// Report is handed to the Objective for every intermediate observation it
// makes. It persists the observation, asks the Pruner whether the trial
// should continue, and returns the verdict.
type Report func(ctx context.Context, rung int, score float64) (Decision, error)

// Objective runs one trial to completion. It calls report for every
// intermediate observation in strictly increasing rung order; if report
// returns Prune, a well-behaved objective stops promptly and returns
// without reporting a final score. A non-nil error is recorded as the
// trial's failure and never propagates to Run's return value; only a
// Store error raised inside report does that.
type Objective func(ctx context.Context, trialID api.TrialID, params api.Assignment, report Report) (finalScore float64, err error)

// Executor coordinates Sampler, Pruner and Store to drive one study.
type Executor struct {
	Store   store.Store
	Sampler sampler.Sampler
	Pruner  pruner.Pruner
	Sink    telemetry.Sink

	inFlightMu sync.Mutex
	inFlight   sampler.History
}

// New returns an Executor. sink may be nil, in which case telemetry events
// are simply discarded.
func New(st store.Store, sm sampler.Sampler, pr pruner.Pruner, sink telemetry.Sink) *Executor {
	if pr == nil {
		pr = pruner.NoPrune{}
	}
	if sink == nil {
		sink = telemetry.SinkFunc(func(telemetry.Event) {})
	}
	return &Executor{Store: st, Sampler: sm, Pruner: pr, Sink: sink}
}

// Result is what Run hands back: the terminal Study value together with
// the best trial by goal. BestTrial is nil when no trial succeeded.
type Result struct {
	Study     *api.Study
	BestTrial *api.Trial
}

// Run drives studyID to completion: it dispatches new trials up to
// Config.Parallelism concurrent workers until Config.MaxTrials have been
// created, then waits for the in-flight trials to finish. Dispatch stops
// early when ctx is cancelled or when the study's Store status leaves
// StudyRunning (pause or cancel); in-flight trials are told to
// stop at their next report callback. Run returns a non-nil error only for
// a Store failure or for a search space that cannot be resolved for the
// next trial (a config error) — individual trial failures are recorded in
// the Store and do not fail Run. Even alongside an error, the returned Result
// carries the last readable Study snapshot so callers can diagnose.
func (e *Executor) Run(ctx context.Context, studyID api.StudyID, objective Objective) (*Result, error) {
	logger := log.Named("executor")
	study, err := e.Store.GetStudy(ctx, studyID)
	if err != nil {
		return nil, api.NewStoreError(studyID, err)
	}
	cfg := study.Config

	sem := make(chan struct{}, cfg.Parallelism)
	g, gctx := errgroup.WithContext(ctx)

dispatch:
	for i := 0; i < cfg.MaxTrials; i++ {
		trialIndex := i
		select {
		case <-gctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		// A pause or cancel written to the Store stops dispatch before the
		// next proposal.
		current, err := e.Store.GetStudy(gctx, studyID)
		if err != nil {
			<-sem
			storeErr := api.NewStoreError(studyID, err)
			g.Go(func() error { return storeErr })
			break dispatch
		}
		if current.Status != api.StudyRunning {
			<-sem
			break dispatch
		}

		// propose runs synchronously in this single dispatch loop, never
		// inside a worker goroutine: the sampler is invoked serially,
		// against a history snapshot taken at call time. Only the resulting
		// trial's evaluation (the objective call and its report-callback
		// protocol) is handed off to a worker to run concurrently.
		trial, bracketID, assignment, err := e.propose(gctx, studyID, cfg, trialIndex, logger)
		if err != nil {
			<-sem
			g.Go(func() error { return err })
			break dispatch
		}

		g.Go(func() error {
			defer func() { <-sem }()
			return e.execute(gctx, studyID, cfg, trial, bracketID, assignment, objective, logger)
		})
	}

	if err := g.Wait(); err != nil {
		// Fatal to the study: record the failed status best-effort and
		// still hand back whatever Study snapshot is readable.
		_ = e.Store.SetStudyStatus(context.WithoutCancel(ctx), studyID, api.StudyFailed)
		res, _ := e.result(context.WithoutCancel(ctx), studyID, cfg.Goal)
		return res, err
	}

	finalCtx := context.WithoutCancel(ctx)
	if st, sErr := e.Store.GetStudy(finalCtx, studyID); sErr == nil && !st.IsDone() && st.Status != api.StudyPaused {
		final := api.StudyCompleted
		if ctx.Err() == context.Canceled {
			final = api.StudyCancelled
		}
		_ = e.Store.SetStudyStatus(finalCtx, studyID, final)
	}
	e.Sink.Handle(telemetry.Event{Kind: telemetry.StudyCompleted, StudyID: studyID, At: time.Now()})
	return e.result(finalCtx, studyID, cfg.Goal)
}

// result assembles Run's return value from the Store's final state.
func (e *Executor) result(ctx context.Context, studyID api.StudyID, goal api.Goal) (*Result, error) {
	study, err := e.Store.GetStudy(ctx, studyID)
	if err != nil {
		return nil, api.NewStoreError(studyID, err)
	}
	trials, err := e.Store.ListTrials(ctx, studyID)
	if err != nil {
		return nil, api.NewStoreError(studyID, err)
	}
	res := &Result{Study: study}
	for _, t := range trials {
		if t.Status != api.TrialSucceeded || !t.HasFinalScore {
			continue
		}
		if res.BestTrial == nil || goal.Better(t.FinalScore, res.BestTrial.FinalScore) {
			res.BestTrial = t
		}
	}
	return res, nil
}

func (e *Executor) addInFlight(t *api.Trial) {
	e.inFlightMu.Lock()
	e.inFlight = append(e.inFlight, t)
	snapshot := append(sampler.History(nil), e.inFlight...)
	e.inFlightMu.Unlock()
	e.notifyInFlight(snapshot)
}

func (e *Executor) removeInFlight(id api.TrialID) {
	e.inFlightMu.Lock()
	for i, t := range e.inFlight {
		if t.ID == id {
			e.inFlight = append(e.inFlight[:i], e.inFlight[i+1:]...)
			break
		}
	}
	snapshot := append(sampler.History(nil), e.inFlight...)
	e.inFlightMu.Unlock()
	e.notifyInFlight(snapshot)
}

// notifyInFlight implements the constant-liar wiring: the
// executor pushes the current in-flight set to the sampler whenever it
// changes, if the configured sampler opted in via InFlightAware.
func (e *Executor) notifyInFlight(snapshot sampler.History) {
	if ia, ok := e.Sampler.(sampler.InFlightAware); ok {
		ia.SetInFlight(snapshot)
	}
}

// propose implements the serial half of dispatch (sampler.Next, persisting
// the pending Trial, the bracket assignment and running transition) from
// the single dispatch loop in Run. It must never run concurrently with another call
// to itself: e.Sampler.Next's history snapshot is only meaningful if no
// other proposal is being formed, persisted, or marked running at the
// same time.
func (e *Executor) propose(
	ctx context.Context,
	studyID api.StudyID,
	cfg api.StudyConfig,
	trialIndex int,
	logger *zap.SugaredLogger,
) (*api.Trial, int, api.Assignment, error) {
	params, err := cfg.Space.Resolve(trialIndex)
	if err != nil {
		return nil, 0, nil, api.NewConfigError(err)
	}

	all, err := e.Store.ListTrials(ctx, studyID)
	if err != nil {
		return nil, 0, nil, api.NewStoreError(studyID, err)
	}
	// The sampler's history is the terminal trials only; pending and
	// running trials reach an opted-in sampler through SetInFlight instead.
	history := make(sampler.History, 0, len(all))
	for _, t := range all {
		if t.Status.IsTerminal() {
			history = append(history, t)
		}
	}

	r := rng.ForTrial(cfg.Seed, trialIndex)
	assignment, err := e.Sampler.Next(params, trialIndex, history, r)
	if err != nil {
		// A sampler failure is recoverable by falling back to a plain
		// random draw for this one trial; it is never fatal to the
		// study.
		logger.Debugw("sampler failed, falling back to random", "trial_index", trialIndex, "err", err)
		assignment = randomFallback(params, r)
	}

	trial, err := e.Store.AddTrial(ctx, studyID, assignment)
	if err != nil {
		return nil, 0, nil, api.NewStoreError(studyID, err)
	}

	bracketID := e.Pruner.AssignBracket(trialIndex)
	if _, err := e.Store.UpdateTrial(ctx, trial.ID, store.TrialUpdate{BracketID: &bracketID}); err != nil {
		return nil, 0, nil, api.NewStoreError(studyID, err)
	}

	running := api.TrialRunning
	if _, err := e.Store.UpdateTrial(ctx, trial.ID, store.TrialUpdate{Status: &running}); err != nil {
		return nil, 0, nil, api.NewStoreError(studyID, err)
	}

	e.addInFlight(trial)
	return trial, bracketID, assignment, nil
}

// execute implements the concurrent half: a worker runs the
// objective against an already-proposed, already-running trial and
// records its outcome. Multiple calls run concurrently (up to
// Parallelism), each against its own trial; no two calls share a trial.
func (e *Executor) execute(
	ctx context.Context,
	studyID api.StudyID,
	cfg api.StudyConfig,
	trial *api.Trial,
	bracketID int,
	assignment api.Assignment,
	objective Objective,
	logger *zap.SugaredLogger,
) error {
	defer e.removeInFlight(trial.ID)

	start := time.Now()
	e.Sink.Handle(telemetry.Event{Kind: telemetry.TrialStarted, StudyID: studyID, TrialID: trial.ID, BracketID: bracketID, At: start})

	var pruned bool
	// storeErr keeps a Store failure raised inside report, so it fails Run
	// whatever the objective does with the error report handed back.
	var storeErr error
	report := func(reportCtx context.Context, rung int, score float64) (Decision, error) {
		// Cooperative cancellation: a paused or cancelled study stops
		// its in-flight trials at their next report, as a synthetic prune.
		if st, err := e.Store.GetStudy(reportCtx, studyID); err == nil && st.Status != api.StudyRunning {
			pruned = true
			return Prune, nil
		}
		if err := e.Store.RecordObservation(reportCtx, trial.ID, rung, score); err != nil {
			storeErr = api.NewStoreError(studyID, err)
			return Continue, storeErr
		}
		e.Sink.Handle(telemetry.Event{Kind: telemetry.TrialReported, StudyID: studyID, TrialID: trial.ID, BracketID: bracketID, Rung: rung, Score: score, At: time.Now()})

		peers, err := e.Store.ObservationsAtRung(reportCtx, studyID, bracketID, rung)
		if err != nil {
			storeErr = api.NewStoreError(studyID, err)
			return Continue, storeErr
		}
		if e.Pruner.Keep(trial.ID, bracketID, rung, score, peers, cfg.Goal) {
			return Continue, nil
		}
		pruned = true
		return Prune, nil
	}

	finalScore, objErr := objective(ctx, trial.ID, assignment, report)
	if storeErr != nil {
		return storeErr
	}
	completed := time.Now()
	duration := completed.Sub(start)

	// The terminal status is written even when ctx was cancelled mid-trial:
	// a draining trial still ends in exactly one terminal state.
	writeCtx := context.WithoutCancel(ctx)

	switch {
	case pruned:
		prunedStatus := api.TrialPruned
		if _, err := e.Store.UpdateTrial(writeCtx, trial.ID, store.TrialUpdate{Status: &prunedStatus, CompletedAt: &completed}); err != nil {
			return api.NewStoreError(studyID, err)
		}
		e.Sink.Handle(telemetry.Event{Kind: telemetry.TrialPruned, StudyID: studyID, TrialID: trial.ID, BracketID: bracketID, Duration: duration, At: completed})
	case objErr != nil:
		failureKind := api.TrialFailureKind
		failed := api.TrialFailed
		if _, err := e.Store.UpdateTrial(writeCtx, trial.ID, store.TrialUpdate{Status: &failed, FailureKind: &failureKind, CompletedAt: &completed}); err != nil {
			return api.NewStoreError(studyID, err)
		}
		logger.Debugw("trial failed", "trial", trial.ID.String(), "err", objErr)
		e.Sink.Handle(telemetry.Event{Kind: telemetry.TrialFailed, StudyID: studyID, TrialID: trial.ID, BracketID: bracketID, Duration: duration, Err: objErr, At: completed})
	default:
		succeeded := api.TrialSucceeded
		if _, err := e.Store.UpdateTrial(writeCtx, trial.ID, store.TrialUpdate{Status: &succeeded, FinalScore: &finalScore, CompletedAt: &completed}); err != nil {
			return api.NewStoreError(studyID, err)
		}
		e.Sink.Handle(telemetry.Event{Kind: telemetry.TrialSucceeded, StudyID: studyID, TrialID: trial.ID, BracketID: bracketID, Score: finalScore, Duration: duration, At: completed})
	}
	return nil
}

func randomFallback(params api.StaticParams, r *rand.Rand) api.Assignment {
	out := make(api.Assignment, len(params))
	for name, spec := range params {
		out[name] = space.Sample(spec, r)
	}
	return out
}
