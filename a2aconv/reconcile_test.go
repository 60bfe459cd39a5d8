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

package a2aconv

import (
	"context"
	"testing"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

type fetcherFn func(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error)

func (fn fetcherFn) GetTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	return fn(ctx, req)
}

func mustClassify(t *testing.T, event a2a.Event) Classified {
	t.Helper()
	c, err := Classify(event, nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return c
}

func TestReconciler_AdoptsFirstTaskID(t *testing.T) {
	ctx := t.Context()
	rec := NewReconciler(Identity{ContextID: "ctx"})

	events := []a2a.Event{
		&a2a.Task{ID: "t1", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t2", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateFailed}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
	}
	for _, event := range events {
		rec.Observe(ctx, mustClassify(t, event))
	}

	if got := rec.Identity(); got != (Identity{ContextID: "ctx", TaskID: "t1"}) {
		t.Errorf("Identity() = %+v, want task t1", got)
	}
	if got := rec.State(); got != a2a.TaskStateWorking {
		t.Errorf("State() = %v, want %v", got, a2a.TaskStateWorking)
	}
}

func TestReconciler_KeepsSessionContext(t *testing.T) {
	ctx := t.Context()
	rec := NewReconciler(Identity{ContextID: "session"})

	rec.Observe(ctx, mustClassify(t, &a2a.Task{ID: "t1", ContextID: "other", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}))
	rec.Observe(ctx, mustClassify(t, &a2a.Message{ID: "m1", ContextID: "another"}))

	if got := rec.Identity().ContextID; got != "session" {
		t.Errorf("Identity().ContextID = %q, want %q", got, "session")
	}
	if got := rec.Mismatches(); got != 2 {
		t.Errorf("Mismatches() = %d, want 2", got)
	}
}

func TestReconciler_TerminalStateIsFinal(t *testing.T) {
	ctx := t.Context()
	rec := NewReconciler(Identity{ContextID: "ctx", TaskID: "t1"})

	rec.Observe(ctx, mustClassify(t, &a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}))
	rec.Observe(ctx, mustClassify(t, &a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateInputRequired}}))

	if got := rec.State(); got != a2a.TaskStateCompleted {
		t.Errorf("State() = %v, want %v", got, a2a.TaskStateCompleted)
	}
}

func TestReconciler_FinalizeFetchesOnce(t *testing.T) {
	ctx := t.Context()
	rec := NewReconciler(Identity{ContextID: "ctx"})
	rec.Observe(ctx, mustClassify(t, &a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}))

	var calls []a2a.TaskID
	fetcher := fetcherFn(func(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
		calls = append(calls, req.ID)
		return &a2a.Task{ID: req.ID, ContextID: "ctx", Status: a2a.TaskStatus{State: a2a.TaskStateInputRequired}}, nil
	})

	first, err := rec.Finalize(ctx, fetcher)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	second, err := rec.Finalize(ctx, fetcher)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if len(calls) != 1 || calls[0] != "t1" {
		t.Errorf("Finalize() fetched %v, want exactly [t1]", calls)
	}
	if first != second {
		t.Errorf("Finalize() = %p, then %p, want the same task", first, second)
	}
	if got := rec.State(); got != a2a.TaskStateInputRequired {
		t.Errorf("State() = %v, want %v", got, a2a.TaskStateInputRequired)
	}
}

func TestReconciler_FinalizeWithoutTask(t *testing.T) {
	rec := NewReconciler(Identity{ContextID: "ctx"})
	rec.Observe(t.Context(), mustClassify(t, &a2a.Message{ID: "m1", ContextID: "ctx"}))

	fetcher := fetcherFn(func(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
		t.Fatalf("GetTask() called for %q", req.ID)
		return nil, nil
	})
	task, err := rec.Finalize(t.Context(), fetcher)
	if task != nil || err != nil {
		t.Errorf("Finalize() = (%v, %v), want (nil, nil)", task, err)
	}
	if rec.Message() == nil {
		t.Error("Message() = nil, want the observed message")
	}
}
