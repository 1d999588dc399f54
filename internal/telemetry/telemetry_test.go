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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherFansOutToEverySubscriber(t *testing.T) {
	d := NewDispatcher()
	var a, b []Event
	d.Subscribe(SinkFunc(func(e Event) { a = append(a, e) }))
	d.Subscribe(SinkFunc(func(e Event) { b = append(b, e) }))

	d.Handle(Event{Kind: TrialStarted})
	d.Handle(Event{Kind: TrialSucceeded})

	assert.Len(t, a, 2)
	assert.Len(t, b, 2)
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher()
	var called bool
	d.Subscribe(SinkFunc(func(Event) { panic("boom") }))
	d.Subscribe(SinkFunc(func(Event) { called = true }))

	assert.NotPanics(t, func() { d.Handle(Event{Kind: TrialFailed}) })
	assert.True(t, called)
}
