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
	"errors"
	"fmt"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/log"
)

// ErrForeignTask is returned when the agent answers a continued task with a different task.
var ErrForeignTask = errors.New("agent returned a different task")

// TaskFetcher retrieves the authoritative state of a task.
type TaskFetcher interface {
	GetTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error)
}

// Reconciler folds the classified events of one turn into the identity of the task and its
// final state. The context identifier it was created with is never replaced and the first
// task identifier it observes is never replaced either.
type Reconciler struct {
	id Identity

	state      a2a.TaskState
	message    *a2a.Message
	final      *a2a.Task
	finalized  bool
	mismatches int
}

// NewReconciler creates a Reconciler for a turn started with the provided identity.
func NewReconciler(id Identity) *Reconciler {
	return &Reconciler{id: id}
}

// Observe records a classified event. Events reporting a different context are logged and counted.
func (r *Reconciler) Observe(ctx context.Context, c Classified) {
	r.observeContext(ctx, c.ContextID)

	sameTask := r.observeTask(ctx, c.TaskID)
	switch ev := c.Event.(type) {
	case *a2a.Task:
		if sameTask {
			r.advance(ctx, ev.Status.State)
		}
	case *a2a.TaskStatusUpdateEvent:
		if sameTask {
			r.advance(ctx, ev.Status.State)
		}
	case *a2a.Message:
		r.message = ev
	}
}

// Adopt records a task received as the complete result of a non-streaming call.
// It becomes the final task of the turn and no further retrieval is needed.
// A task other than the one the turn continues is not adopted.
func (r *Reconciler) Adopt(ctx context.Context, task *a2a.Task) error {
	if r.id.TaskID != "" && task.ID != r.id.TaskID {
		return fmt.Errorf("%w: continued %s, got %s", ErrForeignTask, r.id.TaskID, task.ID)
	}
	r.Observe(ctx, Classified{Kind: KindTaskSnapshot, ContextID: task.ContextID, TaskID: task.ID, Event: task})
	r.final = task
	r.finalized = true
	return nil
}

// Finalize retrieves the authoritative task once the stream has ended. It returns nil
// when no task identifier was observed. The agent is queried at most once per turn.
func (r *Reconciler) Finalize(ctx context.Context, fetcher TaskFetcher) (*a2a.Task, error) {
	if r.finalized {
		return r.final, nil
	}
	if r.id.TaskID == "" {
		return nil, nil
	}
	r.finalized = true

	task, err := fetcher.GetTask(ctx, &a2a.GetTaskRequest{ID: r.id.TaskID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve final task state: %w", err)
	}
	r.observeContext(ctx, task.ContextID)
	r.advance(ctx, task.Status.State)
	r.final = task
	return task, nil
}

func (r *Reconciler) observeContext(ctx context.Context, contextID string) {
	if contextID == "" || contextID == r.id.ContextID {
		return
	}
	if r.id.ContextID == "" {
		r.id.ContextID = contextID
		return
	}
	r.mismatches++
	log.Warn(ctx, "agent reported a different context", "session_context_id", r.id.ContextID, "event_context_id", contextID)
}

func (r *Reconciler) observeTask(ctx context.Context, taskID a2a.TaskID) bool {
	if taskID == "" {
		return false
	}
	if r.id.TaskID == "" {
		r.id.TaskID = taskID
		return true
	}
	if r.id.TaskID != taskID {
		log.Warn(ctx, "ignoring event for another task", "task_id", r.id.TaskID, "event_task_id", taskID)
		return false
	}
	return true
}

func (r *Reconciler) advance(ctx context.Context, state a2a.TaskState) {
	if r.state.Terminal() && !state.Terminal() {
		log.Warn(ctx, "ignoring state reported after a terminal one", "state", r.state, "reported_state", state)
		return
	}
	r.state = state
}

// Identity returns the identity of the conversation and the task observed so far.
func (r *Reconciler) Identity() Identity {
	return r.id
}

// State returns the latest state observed for the task.
func (r *Reconciler) State() a2a.TaskState {
	return r.state
}

// Message returns the direct reply of the agent, if there was one.
func (r *Reconciler) Message() *a2a.Message {
	return r.message
}

// Final returns the task produced by [Reconciler.Finalize] or [Reconciler.Adopt].
func (r *Reconciler) Final() *a2a.Task {
	return r.final
}

// Mismatches returns the number of events which reported a different context.
func (r *Reconciler) Mismatches() int {
	return r.mismatches
}
