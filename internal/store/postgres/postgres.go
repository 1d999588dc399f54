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

// Package postgres is the relational Store backend, plain database/sql
// with github.com/lib/pq and no ORM. Trial and study-status writes take a
// row lock on the owning study with SELECT ... FOR UPDATE at the start of
// their transaction. RecordObservation is a single INSERT without that
// lock; the (trial_id, rung) key keeps each observation write-once.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/gramlabs/optimize-study/api"
	"github.com/gramlabs/optimize-study/internal/log"
	"github.com/gramlabs/optimize-study/internal/store"
)

var logger = log.Named("store.postgres")

// Schema creates the tables this backend needs. Callers run it once
// against a fresh database (or an already-migrated one, since every
// statement is idempotent).
const Schema = `
CREATE TABLE IF NOT EXISTS studies (
	id           UUID PRIMARY KEY,
	goal         TEXT NOT NULL,
	max_trials   INT NOT NULL,
	parallelism  INT NOT NULL,
	seed         BIGINT NOT NULL,
	status       TEXT NOT NULL,
	trial_count  INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trials (
	id              UUID PRIMARY KEY,
	study_id        UUID NOT NULL REFERENCES studies(id),
	params          JSONB NOT NULL,
	status          TEXT NOT NULL,
	final_score     DOUBLE PRECISION,
	has_final_score BOOLEAN NOT NULL DEFAULT FALSE,
	objective_values JSONB,
	bracket_id      INT,
	has_bracket     BOOLEAN NOT NULL DEFAULT FALSE,
	failure_kind    TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ,
	seq             BIGSERIAL
);
CREATE INDEX IF NOT EXISTS trials_study_seq_idx ON trials(study_id, seq);

CREATE TABLE IF NOT EXISTS observations (
	trial_id    UUID NOT NULL REFERENCES trials(id),
	rung        INT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (trial_id, rung)
);
`

// Store is the postgres-backed Store implementation.
type Store struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB. Callers are responsible for its
// lifecycle (including calling Migrate once before first use).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return err
	}
	logger.Debugw("schema migrated")
	return nil
}

func (s *Store) PutStudy(ctx context.Context, study *api.Study) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO studies (id, goal, max_trials, parallelism, seed, status, trial_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		study.ID.String(), string(study.Config.Goal), study.Config.MaxTrials,
		study.Config.Parallelism, study.Config.Seed, string(study.Status), study.TrialCount)
	if err != nil {
		return api.NewStoreError(study.ID, fmt.Errorf("put study: %w", err))
	}
	return nil
}

func (s *Store) GetStudy(ctx context.Context, id api.StudyID) (*api.Study, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT goal, max_trials, parallelism, seed, status, trial_count
		FROM studies WHERE id = $1`, id.String())

	st := &api.Study{ID: id}
	var goal, status string
	if err := row.Scan(&goal, &st.Config.MaxTrials, &st.Config.Parallelism, &st.Config.Seed, &status, &st.TrialCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, api.NewStoreError(id, fmt.Errorf("get study: %w", err))
	}
	st.Config.Goal = api.Goal(goal)
	st.Status = api.StudyStatus(status)
	return st, nil
}

func (s *Store) SetStudyStatus(ctx context.Context, id api.StudyID, status api.StudyStatus) error {
	return s.withStudyLock(ctx, id, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE studies SET status = $1 WHERE id = $2`, string(status), id.String())
		return err
	})
}

// withStudyLock opens a transaction, takes a row lock on the study (the
// backend's per-study linearizability guarantee), runs fn, and commits.
func (s *Store) withStudyLock(ctx context.Context, id api.StudyID, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return api.NewStoreError(id, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	var discard string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM studies WHERE id = $1 FOR UPDATE`, id.String()).Scan(&discard); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return api.NewStoreError(id, fmt.Errorf("lock study: %w", err))
	}

	if err := fn(tx); err != nil {
		return api.NewStoreError(id, err)
	}
	if err := tx.Commit(); err != nil {
		return api.NewStoreError(id, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) AddTrial(ctx context.Context, studyID api.StudyID, params api.Assignment) (*api.Trial, error) {
	t := &api.Trial{
		ID:        api.NewTrialID(),
		StudyID:   studyID,
		Params:    params,
		Status:    api.TrialPending,
		CreatedAt: time.Now(),
	}

	paramsJSON, err := marshalAssignment(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	err = s.withStudyLock(ctx, studyID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trials (id, study_id, params, status, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			t.ID.String(), studyID.String(), paramsJSON, string(t.Status), t.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE studies SET trial_count = trial_count + 1 WHERE id = $1`, studyID.String())
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) UpdateTrial(ctx context.Context, trialID api.TrialID, update store.TrialUpdate) (*api.Trial, error) {
	studyID, currentStatus, err := s.trialOwnerAndStatus(ctx, trialID)
	if err != nil {
		return nil, err
	}
	if currentStatus.IsTerminal() {
		return nil, store.ErrTerminal
	}

	err = s.withStudyLock(ctx, studyID, func(tx *sql.Tx) error {
		var status string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM trials WHERE id = $1 FOR UPDATE`, trialID.String()).Scan(&status); err != nil {
			return err
		}
		if api.TrialStatus(status).IsTerminal() {
			return store.ErrTerminal
		}

		sets := []string{}
		args := []interface{}{}
		arg := func(v interface{}) string {
			args = append(args, v)
			return fmt.Sprintf("$%d", len(args))
		}
		if update.Status != nil {
			sets = append(sets, "status = "+arg(string(*update.Status)))
		}
		if update.FinalScore != nil {
			sets = append(sets, "final_score = "+arg(*update.FinalScore), "has_final_score = TRUE")
		}
		if update.FailureKind != nil {
			sets = append(sets, "failure_kind = "+arg(string(*update.FailureKind)))
		}
		if update.ObjectiveValues != nil {
			valuesJSON, err := json.Marshal(*update.ObjectiveValues)
			if err != nil {
				return fmt.Errorf("marshal objective values: %w", err)
			}
			sets = append(sets, "objective_values = "+arg(valuesJSON))
		}
		if update.BracketID != nil {
			sets = append(sets, "bracket_id = "+arg(*update.BracketID), "has_bracket = TRUE")
		}
		if update.CompletedAt != nil {
			sets = append(sets, "completed_at = "+arg(*update.CompletedAt))
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, trialID.String())
		q := "UPDATE trials SET "
		for i, set := range sets {
			if i > 0 {
				q += ", "
			}
			q += set
		}
		q += fmt.Sprintf(" WHERE id = $%d", len(args))
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetTrial(ctx, trialID)
}

func (s *Store) trialOwnerAndStatus(ctx context.Context, trialID api.TrialID) (api.StudyID, api.TrialStatus, error) {
	var studyIDStr, status string
	err := s.db.QueryRowContext(ctx, `SELECT study_id, status FROM trials WHERE id = $1`, trialID.String()).Scan(&studyIDStr, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return api.StudyID{}, "", store.ErrNotFound
	}
	if err != nil {
		return api.StudyID{}, "", err
	}
	id, err := parseStudyID(studyIDStr)
	if err != nil {
		return api.StudyID{}, "", err
	}
	return id, api.TrialStatus(status), nil
}

func (s *Store) GetTrial(ctx context.Context, trialID api.TrialID) (*api.Trial, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT study_id, params, status, final_score, has_final_score, objective_values, bracket_id, has_bracket,
		       failure_kind, created_at, completed_at
		FROM trials WHERE id = $1`, trialID.String())

	t := &api.Trial{ID: trialID}
	var studyIDStr, status string
	var paramsJSON, objectiveValuesJSON []byte
	var finalScore, bracketID sql.NullFloat64
	var failureKind sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&studyIDStr, &paramsJSON, &status, &finalScore, &t.HasFinalScore, &objectiveValuesJSON,
		&bracketID, &t.HasBracket, &failureKind, &t.CreatedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if len(objectiveValuesJSON) > 0 {
		if err := json.Unmarshal(objectiveValuesJSON, &t.ObjectiveValues); err != nil {
			return nil, fmt.Errorf("unmarshal objective values: %w", err)
		}
	}

	studyID, err := parseStudyID(studyIDStr)
	if err != nil {
		return nil, err
	}
	t.StudyID = studyID
	t.Status = api.TrialStatus(status)
	if finalScore.Valid {
		t.FinalScore = finalScore.Float64
	}
	if bracketID.Valid {
		t.BracketID = int(bracketID.Float64)
	}
	if failureKind.Valid {
		t.FailureKind = api.Kind(failureKind.String)
	}
	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	params, err := unmarshalAssignment(paramsJSON)
	if err != nil {
		return nil, err
	}
	t.Params = params

	obsRows, err := s.db.QueryContext(ctx, `SELECT rung, score, recorded_at FROM observations WHERE trial_id = $1 ORDER BY rung`, trialID.String())
	if err != nil {
		return nil, err
	}
	defer obsRows.Close()
	for obsRows.Next() {
		var o api.Observation
		o.TrialID = trialID
		if err := obsRows.Scan(&o.Rung, &o.Score, &o.RecordedAt); err != nil {
			return nil, err
		}
		t.Observations = append(t.Observations, o)
	}
	return t, obsRows.Err()
}

func (s *Store) ListTrials(ctx context.Context, studyID api.StudyID) ([]*api.Trial, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM trials WHERE study_id = $1 ORDER BY seq`, studyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*api.Trial, 0, len(ids))
	for _, idStr := range ids {
		id, err := parseTrialID(idStr)
		if err != nil {
			return nil, err
		}
		t, err := s.GetTrial(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) RecordObservation(ctx context.Context, trialID api.TrialID, rung int, score float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (trial_id, rung, score, recorded_at)
		VALUES ($1, $2, $3, $4)`, trialID.String(), rung, score, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateObservation
		}
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

func (s *Store) ObservationsAtRung(ctx context.Context, studyID api.StudyID, bracketID, rung int) ([]api.Observation, error) {
	// ORDER BY t.seq returns peers in trial creation order, so the
	// Hyperband pruner's stable rank-and-cut sees the same "older first"
	// tie-break order the in-memory backend's append-in-creation-order
	// slice gives it for free.
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.trial_id, o.score, o.recorded_at
		FROM observations o
		JOIN trials t ON t.id = o.trial_id
		WHERE t.study_id = $1 AND t.has_bracket AND t.bracket_id = $2 AND o.rung = $3
		ORDER BY t.seq`,
		studyID.String(), bracketID, rung)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Observation
	for rows.Next() {
		var idStr string
		var o api.Observation
		o.Rung = rung
		if err := rows.Scan(&idStr, &o.Score, &o.RecordedAt); err != nil {
			return nil, err
		}
		id, err := parseTrialID(idStr)
		if err != nil {
			return nil, err
		}
		o.TrialID = id
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- marshalling helpers ---

type wireValue struct {
	Kind  int     `json:"kind"`
	Float float64 `json:"float,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Str   string  `json:"str,omitempty"`
}

func marshalAssignment(a api.Assignment) ([]byte, error) {
	wire := make(map[string]wireValue, len(a))
	for k, v := range a {
		wire[k] = wireValue{Kind: int(v.Kind), Float: v.Float, Int: v.Int, Str: v.Str}
	}
	return json.Marshal(wire)
}

func unmarshalAssignment(b []byte) (api.Assignment, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var wire map[string]wireValue
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, err
	}
	out := make(api.Assignment, len(wire))
	for k, v := range wire {
		out[k] = api.Value{Kind: api.ValueKind(v.Kind), Float: v.Float, Int: v.Int, Str: v.Str}
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	// lib/pq reports unique_violation as SQLSTATE "23505"; pq.Error's
	// Code.Name() decodes that against the driver's own SQLSTATE table
	// instead of pattern-matching the error string.
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func parseStudyID(s string) (api.StudyID, error) {
	u, err := parseUUID(s)
	return api.StudyID(u), err
}

func parseTrialID(s string) (api.TrialID, error) {
	u, err := parseUUID(s)
	return api.TrialID(u), err
}

var _ store.Store = (*Store)(nil)
