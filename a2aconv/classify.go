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
	"errors"
	"fmt"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

// ErrUnclassifiable is wrapped by errors returned for payloads which are not one of the
// known event variants.
var ErrUnclassifiable = errors.New("unclassifiable event")

// Kind is the variant of a classified stream element.
type Kind int

const (
	// KindError is a protocol error reported by the agent. The stream must not be read further.
	KindError Kind = iota + 1
	// KindTaskSnapshot is a full Task.
	KindTaskSnapshot
	// KindUpdate is a status or artifact update of a task.
	KindUpdate
	// KindTerminalMessage is a direct reply ending the turn without a task.
	KindTerminalMessage
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindTaskSnapshot:
		return "task"
	case KindUpdate:
		return "update"
	case KindTerminalMessage:
		return "message"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classified is the normalized record produced for one stream element.
type Classified struct {
	Kind      Kind
	ContextID string
	// TaskID is empty for messages and errors.
	TaskID a2a.TaskID
	// Event is nil for KindError.
	Event a2a.Event
	// Err is set for KindError only.
	Err *a2a.Error
}

// Classify determines the variant of one element produced by a send call.
//
// A protocol error carried by err yields KindError. Any other non-nil err, such as a
// dropped connection, is returned as is. Payloads which decoded into none of the known
// variants produce an error wrapping [ErrUnclassifiable].
func Classify(ev a2a.Event, err error) (Classified, error) {
	if err != nil {
		var protoErr *a2a.Error
		if errors.As(err, &protoErr) {
			return Classified{Kind: KindError, Err: protoErr}, nil
		}
		if errors.Is(err, a2a.ErrInvalidAgentResponse) {
			return Classified{}, fmt.Errorf("%w: %w", ErrUnclassifiable, err)
		}
		return Classified{}, err
	}

	switch v := ev.(type) {
	case *a2a.Task:
		return Classified{Kind: KindTaskSnapshot, ContextID: v.ContextID, TaskID: v.ID, Event: v}, nil
	case *a2a.TaskStatusUpdateEvent:
		return Classified{Kind: KindUpdate, ContextID: v.ContextID, TaskID: v.TaskID, Event: v}, nil
	case *a2a.TaskArtifactUpdateEvent:
		return Classified{Kind: KindUpdate, ContextID: v.ContextID, TaskID: v.TaskID, Event: v}, nil
	case *a2a.Message:
		return Classified{Kind: KindTerminalMessage, ContextID: v.ContextID, Event: v}, nil
	case nil:
		return Classified{}, fmt.Errorf("%w: empty event", ErrUnclassifiable)
	default:
		return Classified{}, fmt.Errorf("%w: %T", ErrUnclassifiable, ev)
	}
}
