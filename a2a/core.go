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

// Package a2a contains the protocol types exchanged between a client and an A2A agent.
package a2a

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is a string constant which represents a version of the protocol.
type ProtocolVersion string

// Version is the protocol version the client implements.
const Version ProtocolVersion = "1.0"

// TaskInfoProvider provides information about the Task.
type TaskInfoProvider interface {
	// TaskInfo returns information about the task.
	TaskInfo() TaskInfo
}

// TaskInfo represents information about the Task and the group of interactions it belongs to.
// Values might be empty which means the TaskInfoProvider is not associated with any tasks.
// An example would be the first user message.
type TaskInfo struct {
	// TaskID is an id of the task.
	TaskID TaskID
	// ContextID is an id of the interactions group the task belong to.
	ContextID string
}

// TaskInfo implements TaskInfoProvider so that the struct can be passed to core type constructor functions.
func (ti TaskInfo) TaskInfo() TaskInfo {
	return ti
}

// SendMessageResult represents a response for non-streaming message send.
type SendMessageResult interface {
	Event

	isSendMessageResult()
}

func (*Task) isSendMessageResult()    {}
func (*Message) isSendMessageResult() {}

// Event is a sealed union of the payloads an agent can deliver over a streaming connection.
// The concrete type is chosen by [StreamResponse] while decoding.
type Event interface {
	TaskInfoProvider

	isEvent()
}

func (*Message) isEvent()                 {}
func (*Task) isEvent()                    {}
func (*TaskStatusUpdateEvent) isEvent()   {}
func (*TaskArtifactUpdateEvent) isEvent() {}

// StreamResponse is a wrapper around Event that can be sent over a streaming connection.
//
// Two encodings are understood when decoding: an object with a single field matching the
// event type name ("task", "message", "statusUpdate", "artifactUpdate") and the legacy flat
// encoding discriminated by a "kind" field ("task", "message", "status-update", "artifact-update").
// Events are always encoded using the wrapper form.
type StreamResponse struct {
	// Event is the decoded event.
	Event
}

const (
	wrapperKeyTask           = "task"
	wrapperKeyMessage        = "message"
	wrapperKeyStatusUpdate   = "statusUpdate"
	wrapperKeyArtifactUpdate = "artifactUpdate"
)

var legacyEventKinds = map[string]string{
	"task":            wrapperKeyTask,
	"message":         wrapperKeyMessage,
	"status-update":   wrapperKeyStatusUpdate,
	"artifact-update": wrapperKeyArtifactUpdate,
}

// MarshalJSON implements json.Marshaler.
func (sr StreamResponse) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	switch v := sr.Event.(type) {
	case *Message:
		m[wrapperKeyMessage] = v
	case *Task:
		m[wrapperKeyTask] = v
	case *TaskStatusUpdateEvent:
		m[wrapperKeyStatusUpdate] = v
	case *TaskArtifactUpdateEvent:
		m[wrapperKeyArtifactUpdate] = v
	default:
		return nil, fmt.Errorf("unknown event type: %T", v)
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (sr *StreamResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: failed to unmarshal event: %w", ErrInvalidAgentResponse, err)
	}

	if rawKind, ok := raw["kind"]; ok {
		var kind string
		if err := json.Unmarshal(rawKind, &kind); err != nil {
			return fmt.Errorf("%w: event kind is not a string: %w", ErrInvalidAgentResponse, err)
		}
		key, known := legacyEventKinds[kind]
		if !known {
			return fmt.Errorf("%w: unknown event kind %q", ErrInvalidAgentResponse, kind)
		}
		event, err := decodeEvent(key, data)
		if err != nil {
			return err
		}
		sr.Event = event
		return nil
	}

	for _, key := range []string{wrapperKeyMessage, wrapperKeyTask, wrapperKeyStatusUpdate, wrapperKeyArtifactUpdate} {
		if v, ok := raw[key]; ok {
			event, err := decodeEvent(key, v)
			if err != nil {
				return err
			}
			sr.Event = event
			return nil
		}
	}

	return fmt.Errorf("%w: unknown event shape: %s", ErrInvalidAgentResponse, string(data))
}

func decodeEvent(key string, data []byte) (Event, error) {
	var event Event
	switch key {
	case wrapperKeyMessage:
		event = &Message{}
	case wrapperKeyTask:
		event = &Task{}
	case wrapperKeyStatusUpdate:
		event = &TaskStatusUpdateEvent{}
	case wrapperKeyArtifactUpdate:
		event = &TaskArtifactUpdateEvent{}
	default:
		return nil, fmt.Errorf("%w: unknown event key %q", ErrInvalidAgentResponse, key)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %T: %w", ErrInvalidAgentResponse, event, err)
	}
	return event, nil
}

// MessageRole represents a set of possible values that identify the message sender.
type MessageRole string

const (
	// MessageRoleUnspecified is an unspecified message role.
	MessageRoleUnspecified MessageRole = ""
	// MessageRoleAgent is an agent message role.
	MessageRoleAgent MessageRole = "agent"
	// MessageRoleUser is a user message role.
	MessageRoleUser MessageRole = "user"
)

// NewMessageID generates a new random message identifier.
func NewMessageID() string {
	return newUUIDString()
}

var _ Event = (*Message)(nil)

// Message represents a single message in the conversation between a user and an agent.
type Message struct {
	// ID is a unique identifier for the message generated by the sender.
	ID string `json:"messageId"`

	// ContextID is the context identifier for this message, used to group related interactions.
	ContextID string `json:"contextId,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Parts is an array of content parts that form the message body.
	Parts ContentParts `json:"parts"`

	// ReferenceTasks is a list of other task IDs that this message references for additional context.
	ReferenceTasks []TaskID `json:"referenceTaskIds,omitempty"`

	// Role identifies the sender of the message.
	Role MessageRole `json:"role"`

	// TaskID is the identifier of the task this message is part of. Empty for the
	// first message of a new task.
	TaskID TaskID `json:"taskId,omitempty"`
}

// NewMessage creates a new message with a random identifier.
func NewMessage(role MessageRole, parts ...*Part) *Message {
	return &Message{
		ID:    NewMessageID(),
		Role:  role,
		Parts: parts,
	}
}

// NewMessageForTask creates a new message with a random identifier that references the provided Task.
func NewMessageForTask(role MessageRole, infoProvider TaskInfoProvider, parts ...*Part) *Message {
	taskInfo := infoProvider.TaskInfo()
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		TaskID:    taskInfo.TaskID,
		ContextID: taskInfo.ContextID,
		Parts:     parts,
	}
}

// TaskInfo implements TaskInfoProvider.
func (m *Message) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: m.TaskID, ContextID: m.ContextID}
}

// TaskID is a unique identifier for the task, generated by the server for a new task.
type TaskID string

// NewContextID generates a new random context identifier.
func NewContextID() string {
	return newUUIDString()
}

// TaskState defines a set of possible task states.
type TaskState string

const (
	// TaskStateUnspecified represents a missing TaskState value.
	TaskStateUnspecified TaskState = ""
	// TaskStateAuthRequired means the task requires authentication to proceed.
	TaskStateAuthRequired TaskState = "AUTH_REQUIRED"
	// TaskStateCanceled means the task has been canceled by the user.
	TaskStateCanceled TaskState = "CANCELED"
	// TaskStateCompleted means the task has been successfully completed.
	TaskStateCompleted TaskState = "COMPLETED"
	// TaskStateFailed means the task failed due to an error during execution.
	TaskStateFailed TaskState = "FAILED"
	// TaskStateInputRequired means the task is paused and waiting for input from the user.
	TaskStateInputRequired TaskState = "INPUT_REQUIRED"
	// TaskStateRejected means the task was rejected by the agent and was not started.
	TaskStateRejected TaskState = "REJECTED"
	// TaskStateSubmitted means the task has been submitted and is awaiting execution.
	TaskStateSubmitted TaskState = "SUBMITTED"
	// TaskStateUnknown means the task is in an unknown or indeterminate state.
	TaskStateUnknown TaskState = "UNKNOWN"
	// TaskStateWorking means the agent is actively working on the task.
	TaskStateWorking TaskState = "WORKING"
)

var legacyTaskStates = map[string]TaskState{
	"auth-required":  TaskStateAuthRequired,
	"canceled":       TaskStateCanceled,
	"completed":      TaskStateCompleted,
	"failed":         TaskStateFailed,
	"input-required": TaskStateInputRequired,
	"rejected":       TaskStateRejected,
	"submitted":      TaskStateSubmitted,
	"unknown":        TaskStateUnknown,
	"working":        TaskStateWorking,
}

// Terminal returns true for states in which a Task becomes immutable, i.e. no further
// changes to the Task are permitted.
func (ts TaskState) Terminal() bool {
	return ts == TaskStateCompleted ||
		ts == TaskStateCanceled ||
		ts == TaskStateFailed ||
		ts == TaskStateRejected
}

// UnmarshalJSON accepts the canonical spelling, the "TASK_STATE_" prefixed protobuf
// enum names and the legacy kebab-case values ("input-required").
func (ts *TaskState) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if legacy, ok := legacyTaskStates[s]; ok {
		*ts = legacy
		return nil
	}
	*ts = TaskState(strings.TrimPrefix(s, "TASK_STATE_"))
	return nil
}

var _ Event = (*Task)(nil)

// Task represents a single, stateful operation or conversation between a client and an agent.
type Task struct {
	// ID is a unique identifier for the task, generated by the server for a new task.
	ID TaskID `json:"id"`

	// Artifacts is a collection of artifacts generated by the agent during the execution of the task.
	Artifacts []*Artifact `json:"artifacts,omitempty"`

	// ContextID is a server-generated identifier for maintaining context across multiple related
	// tasks or interactions.
	ContextID string `json:"contextId"`

	// History is an array of messages exchanged during the task.
	History []*Message `json:"history,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Status is the current status of the task, including its state and a descriptive message.
	Status TaskStatus `json:"status"`
}

// TaskStatus represents the status of a task at a specific point in time.
type TaskStatus struct {
	// Message is an optional, human-readable message providing more details about the current status.
	Message *Message `json:"message,omitempty"`

	// State is the current state of the task's lifecycle.
	State TaskState `json:"state"`

	// Timestamp is a datetime indicating when this status was recorded.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TaskInfo implements TaskInfoProvider.
func (t *Task) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: t.ID, ContextID: t.ContextID}
}

// ArtifactID is a unique identifier for the artifact within the scope of the task.
type ArtifactID string

// Artifact represents a file, data structure, or other resource generated by an agent during a task.
type Artifact struct {
	// ID is a unique identifier for the artifact within the scope of the task.
	ID ArtifactID `json:"artifactId"`

	// Description is an optional, human-readable description of the artifact.
	Description string `json:"description,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Name is an optional, human-readable name for the artifact.
	Name string `json:"name,omitempty"`

	// Parts is an array of content parts that make up the artifact.
	Parts ContentParts `json:"parts"`
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// TaskArtifactUpdateEvent is an event sent by the agent to notify the client that an artifact has been
// generated or updated.
type TaskArtifactUpdateEvent struct {
	// Append indicates if the content of this artifact should be appended to a previously sent
	// artifact with the same ID.
	Append bool `json:"append,omitempty"`

	// Artifact is the artifact that was generated or updated.
	Artifact *Artifact `json:"artifact"`

	// ContextID is the context ID associated with the task.
	ContextID string `json:"contextId"`

	// LastChunk indicates if this is the final chunk of the artifact.
	LastChunk bool `json:"lastChunk,omitempty"`

	// TaskID is the ID of the task this artifact belongs to.
	TaskID TaskID `json:"taskId"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskInfo implements TaskInfoProvider.
func (e *TaskArtifactUpdateEvent) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: e.TaskID, ContextID: e.ContextID}
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// TaskStatusUpdateEvent is an event sent by the agent to notify the client of a change in a task's status.
type TaskStatusUpdateEvent struct {
	// ContextID is the context ID associated with the task.
	ContextID string `json:"contextId"`

	// Final is set by agents speaking the legacy encoding on the last event of a stream.
	Final bool `json:"final,omitempty"`

	// Status is the new status of the task.
	Status TaskStatus `json:"status"`

	// TaskID is the ID of the task that was updated.
	TaskID TaskID `json:"taskId"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStatusUpdateEvent creates a TaskStatusUpdateEvent that references the provided Task.
func NewStatusUpdateEvent(infoProvider TaskInfoProvider, state TaskState, msg *Message) *TaskStatusUpdateEvent {
	now := time.Now()
	taskInfo := infoProvider.TaskInfo()
	return &TaskStatusUpdateEvent{
		ContextID: taskInfo.ContextID,
		TaskID:    taskInfo.TaskID,
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: &now,
		},
	}
}

// TaskInfo implements TaskInfoProvider.
func (e *TaskStatusUpdateEvent) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: e.TaskID, ContextID: e.ContextID}
}

// ContentParts is an array of content parts that form the message body or an artifact.
type ContentParts []*Part

// Part is a discriminated union representing a part of a message or artifact, which can
// be text, a file, or structured data.
type Part struct {
	// Types that are valid to be assigned to Content are [Text], [Raw], [Data], [URL].
	Content PartContent

	// Filename is an optional name for the file (e.g., "document.pdf").
	Filename string

	// MediaType is the media type of the part content (e.g. "text/plain", "image/png").
	MediaType string

	// Metadata is the optional metadata associated with this part.
	Metadata map[string]any
}

// NewTextPart creates a Part that contains text.
func NewTextPart(text string) *Part {
	return &Part{Content: Text(text)}
}

// NewFilePart creates a Part that carries the bytes of a named file.
func NewFilePart(filename string, raw []byte) *Part {
	return &Part{Content: Raw(raw), Filename: filename}
}

// Text is a helper that returns the text content of the part if it is a Text part.
func (p *Part) Text() string {
	if v, ok := p.Content.(Text); ok {
		return string(v)
	}
	return ""
}

// Raw is a helper that returns the raw content of the part if it is a Raw part.
func (p *Part) Raw() []byte {
	if v, ok := p.Content.(Raw); ok {
		return []byte(v)
	}
	return nil
}

// PartContent is a sealed discriminated type union for supported part content types.
type PartContent interface {
	isPartContent()
}

func (Text) isPartContent() {}
func (Raw) isPartContent()  {}
func (Data) isPartContent() {}
func (URL) isPartContent()  {}

// Text represents content of a Part carrying text.
type Text string

// Raw represents content of a Part carrying raw bytes.
type Raw []byte

// URL represents content of a Part carrying a URL.
type URL string

// Data represents content of a Part carrying structured data.
type Data struct {
	Value any
}

// MarshalJSON flattens Content into the Part object. Raw bytes are base64-encoded.
func (p Part) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	maps.Copy(m, p.Metadata)

	switch v := p.Content.(type) {
	case Text:
		m["text"] = string(v)
	case Raw:
		m["raw"] = []byte(v)
	case Data:
		m["data"] = v.Value
	case URL:
		m["url"] = string(v)
	}

	if p.Filename != "" {
		m["filename"] = p.Filename
	}
	if p.MediaType != "" {
		m["mediaType"] = p.MediaType
	}

	return json.Marshal(m)
}

// UnmarshalJSON hydrates Content from flattened fields. Parts using the legacy
// "kind" discriminator with a nested "file" object are also understood.
func (p *Part) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	delete(raw, "kind")

	if v, ok := raw["text"].(string); ok {
		p.Content = Text(v)
		delete(raw, "text")
	} else if v, ok := raw["raw"].(string); ok {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return err
		}
		p.Content = Raw(b)
		delete(raw, "raw")
	} else if v, ok := raw["file"].(map[string]any); ok {
		if err := p.fromLegacyFile(v); err != nil {
			return err
		}
		delete(raw, "file")
	} else if v, ok := raw["data"]; ok {
		p.Content = Data{Value: v}
		delete(raw, "data")
	} else if v, ok := raw["url"].(string); ok {
		p.Content = URL(v)
		delete(raw, "url")
	}

	if filename, ok := raw["filename"].(string); ok {
		p.Filename = filename
		delete(raw, "filename")
	}
	if mediaType, ok := raw["mediaType"].(string); ok {
		p.MediaType = mediaType
		delete(raw, "mediaType")
	}
	if len(raw) > 0 {
		p.Metadata = make(map[string]any, len(raw))
		maps.Copy(p.Metadata, raw)
	}
	return nil
}

func (p *Part) fromLegacyFile(file map[string]any) error {
	if v, ok := file["bytes"].(string); ok {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("invalid file bytes: %w", err)
		}
		p.Content = Raw(b)
	} else if v, ok := file["uri"].(string); ok {
		p.Content = URL(v)
	}
	if name, ok := file["name"].(string); ok {
		p.Filename = name
	}
	if mimeType, ok := file["mimeType"].(string); ok {
		p.MediaType = mimeType
	}
	return nil
}

// SendMessageConfig defines configuration options for a SendMessage or SendStreamingMessage request.
type SendMessageConfig struct {
	// AcceptedOutputModes is a list of output modes the client is prepared to accept in the response.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`

	// Blocking indicates if the client will wait for the task to complete.
	Blocking *bool `json:"blocking,omitempty"`

	// HistoryLength is the number of most recent messages from the task's history to retrieve in the response.
	HistoryLength *int `json:"historyLength,omitempty"`
}

// SendMessageRequest defines the request to send a message to an agent. This can be used
// to create a new task or continue an existing one.
type SendMessageRequest struct {
	// Config is an optional configuration for the send request.
	Config *SendMessageConfig `json:"configuration,omitempty"`

	// Message is the message object being sent to the agent.
	Message *Message `json:"message"`

	// PushNotification is the callback the agent should notify about task updates.
	// It is present only when push notifications are enabled.
	PushNotification *PushNotificationConfig `json:"pushNotification,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GetTaskRequest defines the parameters for a request to get a task.
type GetTaskRequest struct {
	// ID is the ID of the task to get.
	ID TaskID `json:"id"`

	// HistoryLength is the number of most recent messages from the task's history to retrieve.
	HistoryLength *int `json:"historyLength,omitempty"`
}

// Time-based UUID generally improves index update performance if ID field is indexed in a persistent store.
func newUUIDString() string {
	return uuid.Must(uuid.NewV7()).String()
}
