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

// Package api defines the data model shared by every component of the
// study execution engine: search spaces, trials, studies, observations,
// and the error taxonomy. Nothing in this package depends on how trials
// are scheduled or how studies are persisted.
package api

import "github.com/google/uuid"

// StudyID uniquely identifies a Study. It exists to keep study and trial
// identifiers from being accidentally interchanged at call sites.
type StudyID uuid.UUID

// NewStudyID returns a freshly generated StudyID.
func NewStudyID() StudyID { return StudyID(uuid.New()) }

// String implements fmt.Stringer.
func (id StudyID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero value.
func (id StudyID) IsZero() bool { return id == StudyID{} }

// TrialID uniquely identifies a Trial within its Study.
type TrialID uuid.UUID

// NewTrialID returns a freshly generated TrialID.
func NewTrialID() TrialID { return TrialID(uuid.New()) }

// String implements fmt.Stringer.
func (id TrialID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero value.
func (id TrialID) IsZero() bool { return id == TrialID{} }
