// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal records the turns of a conversation in a SQL database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/a2aconv"
	"github.com/a2aproject/a2a-taskcli/log"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverMySQL selects a MySQL server, the DSN uses the go-sql-driver/mysql format.
	DriverMySQL = "mysql"
	// DriverSQLite selects a local SQLite file, ":memory:" keeps the journal in memory.
	DriverSQLite = "sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS turn (
	id          VARCHAR(64) PRIMARY KEY,
	context_id  VARCHAR(64) NOT NULL,
	task_id     VARCHAR(64) NOT NULL,
	outcome     VARCHAR(16) NOT NULL,
	state       VARCHAR(32) NOT NULL,
	input_text  TEXT NOT NULL,
	attachment  TEXT NOT NULL,
	error_text  TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at  BIGINT NOT NULL
)`

// Entry is a recorded turn.
type Entry struct {
	ID         string
	ContextID  string
	TaskID     a2a.TaskID
	Outcome    string
	State      a2a.TaskState
	Text       string
	Attachment string
	Error      string
	// Result is the final task or the reply message of the turn in the stream response encoding.
	Result    json.RawMessage
	CreatedAt time.Time
}

// Summary aggregates the turns of a context.
type Summary struct {
	Turns     int
	Tasks     int
	ByOutcome map[string]int
}

// Store is a journal backed by a SQL database.
type Store struct {
	db *sql.DB
}

var _ a2aconv.TurnJournal = (*Store)(nil)

// Open connects to the database and creates the journal table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if driver == DriverSQLite {
		// every connection to an in-memory database sees a different database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTurn implements [a2aconv.TurnJournal].
func (s *Store) RecordTurn(ctx context.Context, in a2aconv.TurnInput, res a2aconv.TurnResult) error {
	result, err := encodeResult(res)
	if err != nil {
		return err
	}
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	id := uuid.Must(uuid.NewV7()).String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turn (id, context_id, task_id, outcome, state, input_text, attachment, error_text, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, res.Identity.ContextID, string(res.Identity.TaskID), res.Outcome.String(), string(res.State),
		in.Text, in.FilePath, errText, result, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	log.Debug(ctx, "turn recorded", "id", id, "outcome", res.Outcome)
	return nil
}

func encodeResult(res a2aconv.TurnResult) (string, error) {
	var event a2a.Event
	switch {
	case res.Message != nil:
		event = res.Message
	case res.Task != nil:
		event = a2aconv.WithoutHistoryFiles(res.Task)
	default:
		return "", nil
	}
	data, err := json.Marshal(a2a.StreamResponse{Event: event})
	if err != nil {
		return "", fmt.Errorf("failed to marshal turn result: %w", err)
	}
	return string(data), nil
}

// List returns the turns recorded for the context, oldest first.
func (s *Store) List(ctx context.Context, contextID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, context_id, task_id, outcome, state, input_text, attachment, error_text, result_json, created_at
		FROM turn WHERE context_id = ? ORDER BY created_at, id
	`, contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error(ctx, "failed to close rows", err)
		}
	}()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var taskID, state, result string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ContextID, &taskID, &e.Outcome, &state, &e.Text, &e.Attachment, &e.Error, &result, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		e.TaskID, e.State = a2a.TaskID(taskID), a2a.TaskState(state)
		if result != "" {
			e.Result = json.RawMessage(result)
		}
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}
	return entries, nil
}

// Summarize aggregates the turns recorded for the context.
func (s *Store) Summarize(ctx context.Context, contextID string) (*Summary, error) {
	entries, err := s.List(ctx, contextID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{ByOutcome: make(map[string]int)}
	tasks := make(map[a2a.TaskID]struct{})
	for _, e := range entries {
		summary.Turns++
		summary.ByOutcome[e.Outcome]++
		if e.TaskID != "" {
			tasks[e.TaskID] = struct{}{}
		}
	}
	summary.Tasks = len(tasks)
	return summary, nil
}
