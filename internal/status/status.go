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

// Package status implements a read-only projection over a study's
// current trials, computed fresh from the Store on every call rather than
// maintained incrementally, since it is a reporting concern, not part of
// the execution path.
package status

import (
	"context"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/store"
)

// RungPopulation is the number of trials that have reported an observation
// at a given (bracket, rung) pair.
type RungPopulation struct {
	BracketID int
	Rung      int
	Count     int
}

// Status is the point-in-time read model of a study.
type Status struct {
	Study *api.Study

	CountsByStatus map[api.TrialStatus]int

	// BestTrial is nil if no trial has succeeded yet.
	BestTrial *api.Trial

	RungPopulations []RungPopulation
}

// Compute builds a Status snapshot for studyID by reading the study and its
// trials from s. It takes no lock of its own; consistency is whatever the
// Store's per-study linearizability already guarantees across the two
// reads.
func Compute(ctx context.Context, s store.Store, studyID api.StudyID) (*Status, error) {
	study, err := s.GetStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}
	trials, err := s.ListTrials(ctx, studyID)
	if err != nil {
		return nil, err
	}

	out := &Status{
		Study:          study,
		CountsByStatus: make(map[api.TrialStatus]int),
	}

	rungCounts := make(map[[2]int]int)
	for _, t := range trials {
		out.CountsByStatus[t.Status]++

		if t.Status == api.TrialSucceeded && t.HasFinalScore {
			if out.BestTrial == nil || study.Config.Goal.Better(t.FinalScore, out.BestTrial.FinalScore) {
				out.BestTrial = t
			}
		}

		if t.HasBracket {
			for _, obs := range t.Observations {
				rungCounts[[2]int{t.BracketID, obs.Rung}]++
			}
		}
	}

	out.RungPopulations = make([]RungPopulation, 0, len(rungCounts))
	for key, count := range rungCounts {
		out.RungPopulations = append(out.RungPopulations, RungPopulation{BracketID: key[0], Rung: key[1], Count: count})
	}

	return out, nil
}
