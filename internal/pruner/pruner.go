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

// Package pruner implements the early-stopping framework that decides,
// at each rung a trial reports into, whether it should continue or be cut.
// The Successive Halving/Hyperband implementation lives in the hyperband
// subpackage; this package also holds the no-op pruner used when a study is
// configured with PrunerNone.
package pruner

import "github.com/gramlabs/optimize-study/api"

// Pruner decides trial survival at each rung. Implementations hold their
// own immutable config and are pure functions of (bracket, rung, score,
// peer observations, goal), with no internal mutable state to thread
// through calls.
type Pruner interface {
	// AssignBracket deterministically maps a trial's creation index to a
	// bracket. Called once per trial, at creation.
	AssignBracket(trialIndex int) int

	// Keep decides whether the trial that just reported score at rungIndex
	// within bracketID should continue to the next rung. peers is the
	// population of every trial's observation at that rung within that
	// bracket, including the reporting trial's own: the population the
	// pruner ranks over.
	Keep(trialID api.TrialID, bracketID, rungIndex int, score float64, peers []api.Observation, goal api.Goal) bool
}

// NoPrune never cuts a trial short; every trial always runs to its natural
// completion. It is the pruner for PrunerNone. (A Hyperband pruner built
// with ReductionFactor=1 behaves the same way: it never prunes.)
type NoPrune struct{}

func (NoPrune) AssignBracket(trialIndex int) int { return 0 }

func (NoPrune) Keep(api.TrialID, int, int, float64, []api.Observation, api.Goal) bool {
	return true
}

var _ Pruner = NoPrune{}
