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

// Package hyperband implements Hyperband/Successive Halving. Rung
// bookkeeping follows the asynchronous promotion rule of ASHA (Li et al.):
// a trial is promoted out of a rung as soon as it ranks among the top 1/η
// fraction of everything reported at that rung so far, rather than waiting
// for the whole rung's population to complete synchronously.
package hyperband

import (
	"math"
	"sort"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/pruner"
)

// bracket is one (s, n_s, rungs) triple of the Hyperband table.
type bracket struct {
	S     int
	Rungs []float64 // ascending resource budget at each rung, last == MaxResource
	N     int       // n_s: number of trials this bracket is allotted
}

// Hyperband is stateless: every decision is a pure function of the bracket
// table fixed at construction and the peer population handed to Keep.
type Hyperband struct {
	cfg      api.HyperbandConfig
	brackets []bracket
	schedule []int // trialIndex % len(schedule) -> bracket index
}

// New builds the bracket table from cfg:
//
//	s_max = floor(log_η(R / r_min))
//	n_s   = ceil((s_max+1) · η^s / (s+1))          for s in [0, s_max]
//	r_s   = R · η^(-s)
//
// bracket s runs (s+1) rungs, rung j (0..s) at resource r_s · η^j, capped
// at R. s=0 is the most conservative bracket (a single rung at R, i.e.
// plain parallel random search); s=s_max is the most aggressive, starting
// at r_min and running s_max+1 rungs up to R.
func New(cfg api.HyperbandConfig) *Hyperband {
	eta := cfg.ReductionFactor
	if eta <= 1 {
		return &Hyperband{cfg: cfg, brackets: []bracket{{S: 0, Rungs: []float64{cfg.MaxResource}, N: 1}}, schedule: []int{0}}
	}

	sMax := int(math.Floor(math.Log(cfg.MaxResource/cfg.MinResource) / math.Log(eta)))
	if sMax < 0 {
		sMax = 0
	}

	brackets := make([]bracket, 0, sMax+1)
	for s := 0; s <= sMax; s++ {
		rS := cfg.MaxResource * math.Pow(eta, -float64(s))
		numRungs := s + 1
		rungs := make([]float64, numRungs)
		for j := 0; j < numRungs; j++ {
			rungs[j] = math.Min(rS*math.Pow(eta, float64(j)), cfg.MaxResource)
		}
		n := int(math.Ceil(float64(sMax+1) * math.Pow(eta, float64(s)) / float64(s+1)))
		if n < 1 {
			n = 1
		}
		brackets = append(brackets, bracket{S: s, Rungs: rungs, N: n})
	}

	return &Hyperband{cfg: cfg, brackets: brackets, schedule: buildSchedule(brackets)}
}

// buildSchedule interleaves bracket assignments round-robin, weighted by
// each bracket's N, so concurrent workers populate every bracket
// concurrently instead of draining one bracket before starting the next.
func buildSchedule(brackets []bracket) []int {
	remaining := make([]int, len(brackets))
	total := 0
	for i, b := range brackets {
		remaining[i] = b.N
		total += b.N
	}
	schedule := make([]int, 0, total)
	for len(schedule) < total {
		progressed := false
		for i := range brackets {
			if remaining[i] > 0 {
				schedule = append(schedule, i)
				remaining[i]--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return schedule
}

// AssignBracket implements pruner.Pruner.
func (h *Hyperband) AssignBracket(trialIndex int) int {
	if len(h.schedule) == 0 {
		return 0
	}
	return h.schedule[trialIndex%len(h.schedule)]
}

// RungsForBracket returns the ascending resource budget of each rung in
// bracketID, for the executor to know how much resource a trial should run
// before reporting its next observation.
func (h *Hyperband) RungsForBracket(bracketID int) []float64 {
	if bracketID < 0 || bracketID >= len(h.brackets) {
		return nil
	}
	return append([]float64(nil), h.brackets[bracketID].Rungs...)
}

// Keep implements pruner.Pruner: a trial reporting at rungIndex survives to
// the next rung iff it ranks among the top 1/η peers reported at that rung
// so far, once at least WarmupPeers have reported; pruning never fires on
// a rung's first few reports, which would otherwise be decided on a
// near-empty, noisy population.
//
// peers must be in trial creation order (both Store backends guarantee
// this); ranking by a stable sort over that order breaks ties by trial
// creation order, older first, and
// cutting the ranked slice to exactly numPromote rather than comparing
// against a threshold score keeps the surviving population at exactly
// floor(len(peers)/η) even when several peers tie at the cut (a >=
// threshold comparison would let every tied peer through, growing the
// rung population past the advancement rule).
func (h *Hyperband) Keep(trialID api.TrialID, bracketID, rungIndex int, score float64, peers []api.Observation, goal api.Goal) bool {
	if h.cfg.ReductionFactor <= 1 {
		return true
	}
	if bracketID < 0 || bracketID >= len(h.brackets) {
		return true
	}
	b := h.brackets[bracketID]
	if rungIndex >= len(b.Rungs)-1 {
		// Top rung of this bracket: nothing further to promote into.
		return true
	}
	if len(peers) < h.cfg.WarmupPeers {
		return true
	}

	ranked := append([]api.Observation(nil), peers...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score*goal.Sign() > ranked[j].Score*goal.Sign()
	})

	numPromote := int(float64(len(ranked)) / h.cfg.ReductionFactor)
	if numPromote < 1 {
		numPromote = 1
	}
	if numPromote > len(ranked) {
		numPromote = len(ranked)
	}

	for _, p := range ranked[:numPromote] {
		if p.TrialID == trialID {
			return true
		}
	}
	return false
}

var _ pruner.Pruner = (*Hyperband)(nil)
