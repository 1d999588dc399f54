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

// Package rng threads deterministic randomness through the executor and
// sampler; RNG state is handed explicitly to every sampler call, with no
// ambient global generator.
package rng

import "math/rand"

// ForTrial derives a *rand.Rand for proposing the trialIndex'th trial of a
// study seeded with seed. Two calls with the same (seed, trialIndex) always
// produce a generator with identical future output, which is what gives the
// TPE/Random samplers their "same seed, same history -> same proposal"
// property.
//
// The derivation mixes seed and trialIndex through splitmix64 rather than
// using trialIndex as a small perturbation of seed, so that nearby trial
// indices do not produce correlated streams.
func ForTrial(seed int64, trialIndex int) *rand.Rand {
	mixed := splitmix64(uint64(seed) ^ splitmix64(uint64(trialIndex)+0x9E3779B97F4A7C15))
	return rand.New(rand.NewSource(int64(mixed)))
}

// splitmix64 is the standard SplitMix64 finalizer, used here purely as a
// deterministic integer hash (not as a generator in its own right).
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}
