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

// Package a2aconv implements a multi-turn conversation with an A2A agent. It builds
// outgoing messages, classifies what the agent sends back, keeps track of the identity
// of the task and continues the task while the agent asks for more input.
package a2aconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/a2aclient"
	"github.com/a2aproject/a2a-taskcli/log"
)

const (
	// PromptMessage is the label used when asking for the text of the next message.
	PromptMessage = "What do you want to send to the agent? (:q or quit to exit)"
	// PromptAttachment is the label used when asking for an optional file to attach.
	PromptAttachment = "Select a file path to attach? (press enter to skip)"

	defaultHistoryLength = 10
)

// Agent is the subset of [a2aclient.Client] the loop talks to.
type Agent interface {
	TaskFetcher
	SendMessage(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error)
	SendStreamingMessage(ctx context.Context, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error]
}

var _ Agent = (*a2aclient.Client)(nil)

// Prompter reads a line of user input. It returns [io.EOF] when no more input is available.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// Reporter presents the progress of the conversation to the user.
type Reporter interface {
	// Event is called for every element of a stream as it arrives.
	Event(ctx context.Context, event a2a.Event)
	// Message is called with the direct reply ending a turn.
	Message(ctx context.Context, msg *a2a.Message)
	// Task is called with the final task of a turn and the state the turn settled on,
	// which differs from the task status when the agent reported a state after a terminal one.
	Task(ctx context.Context, task *a2a.Task, state a2a.TaskState)
	// History is called with the result of the history query issued after a task is done.
	History(ctx context.Context, task *a2a.Task)
	Error(ctx context.Context, err error)
	Notice(ctx context.Context, text string)
}

// TurnJournal persists finished turns.
type TurnJournal interface {
	RecordTurn(ctx context.Context, in TurnInput, res TurnResult) error
}

// LoopConfig configures a [Loop].
type LoopConfig struct {
	// ContextID is the context of the whole session. A new one is generated if empty.
	ContextID string
	// Streaming selects message/stream instead of message/send.
	Streaming bool
	// PushNotification is attached to every request when set.
	PushNotification *a2a.PushNotificationConfig
	// ShowHistory enables the history query issued after a task is done.
	ShowHistory bool
	// HistoryLength limits the history query. Defaults to 10.
	HistoryLength int
	// Journal is optional.
	Journal TurnJournal
}

// Outcome is the way a turn ended.
type Outcome int

const (
	// OutcomeMessage means the agent replied with a message.
	OutcomeMessage Outcome = iota + 1
	// OutcomeTask means the turn produced a task.
	OutcomeTask
	// OutcomeNoResult means the call failed before any result was received.
	OutcomeNoResult
	// OutcomeError means the turn was aborted.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMessage:
		return "message"
	case OutcomeTask:
		return "task"
	case OutcomeNoResult:
		return "no-result"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// TurnResult describes a finished turn.
type TurnResult struct {
	Outcome Outcome
	// Task is the final task of the turn, if one was observed.
	Task *a2a.Task
	// Message is the direct reply of the agent, if there was one.
	Message *a2a.Message
	// Identity is the identity the turn ended with.
	Identity Identity
	// State is the final state of the task.
	State a2a.TaskState
	// ContextMismatches counts events which reported a context other than the session one.
	ContextMismatches int
	Err               error
}

// NeedsInput reports whether the agent is waiting for more input on the same task.
func (r TurnResult) NeedsInput() bool {
	return r.Outcome == OutcomeTask && r.State == a2a.TaskStateInputRequired
}

type session struct {
	identity   Identity
	continuing bool
}

func (s *session) advance(res TurnResult) {
	if res.Outcome == OutcomeNoResult || errors.Is(res.Err, ErrAttachment) {
		return
	}
	if res.NeedsInput() {
		s.identity.TaskID = res.Identity.TaskID
		s.continuing = true
		return
	}
	s.identity.TaskID = ""
	s.continuing = false
}

// Loop drives the conversation with an agent.
type Loop struct {
	agent    Agent
	prompter Prompter
	reporter Reporter
	cfg      LoopConfig
	sess     session
}

// NewLoop creates a Loop. The context of the session is taken from the config.
func NewLoop(agent Agent, prompter Prompter, reporter Reporter, cfg LoopConfig) *Loop {
	if cfg.ContextID == "" {
		cfg.ContextID = a2a.NewContextID()
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = defaultHistoryLength
	}
	return &Loop{
		agent:    agent,
		prompter: prompter,
		reporter: reporter,
		cfg:      cfg,
		sess:     session{identity: Identity{ContextID: cfg.ContextID}},
	}
}

// Identity returns the identity the next turn will be sent with.
func (l *Loop) Identity() Identity {
	return l.sess.identity
}

// Run prompts for messages until the user quits or input ends. While the agent waits for
// input on a task the next message continues that task, otherwise it starts a new one.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.sess.continuing {
			l.reporter.Notice(ctx, "=========  starting a new task ======== ")
		}

		text, ok, err := l.promptMessage(ctx)
		if err != nil || !ok {
			return err
		}
		if isQuit(text) {
			return nil
		}
		path, ok, err := l.prompt(ctx, PromptAttachment)
		if err != nil || !ok {
			return err
		}

		res := l.Turn(ctx, TurnInput{Text: text, FilePath: path})
		if l.cfg.ShowHistory && res.Outcome == OutcomeTask && !res.NeedsInput() {
			l.showHistory(ctx, res.Identity.TaskID)
		}
	}
}

// promptMessage asks again while the input is blank.
func (l *Loop) promptMessage(ctx context.Context) (string, bool, error) {
	for {
		text, ok, err := l.prompt(ctx, PromptMessage)
		if err != nil || !ok || strings.TrimSpace(text) != "" {
			return text, ok, err
		}
	}
}

func (l *Loop) prompt(ctx context.Context, label string) (string, bool, error) {
	line, err := l.prompter.Prompt(ctx, label)
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read input: %w", err)
	}
	return line, true, nil
}

func isQuit(text string) bool {
	text = strings.TrimSpace(text)
	return text == ":q" || text == "quit"
}

// Turn sends one message with the current identity and waits until the turn is done.
func (l *Loop) Turn(ctx context.Context, in TurnInput) TurnResult {
	id := l.sess.identity
	ctx = log.AttachLogger(ctx, log.LoggerFrom(ctx).With("context_id", id.ContextID))

	var res TurnResult
	req, err := BuildRequest(in, id, l.cfg.PushNotification)
	if err != nil {
		res = TurnResult{Outcome: OutcomeError, Identity: id, Err: err}
	} else if l.cfg.Streaming {
		res = l.streamTurn(ctx, req, id)
	} else {
		res = l.unaryTurn(ctx, req, id)
	}

	l.report(ctx, res)
	l.sess.advance(res)
	if l.cfg.Journal != nil {
		if err := l.cfg.Journal.RecordTurn(ctx, in, res); err != nil {
			log.Error(ctx, "failed to record turn", err)
		}
	}
	return res
}

func (l *Loop) streamTurn(ctx context.Context, req *a2a.SendMessageRequest, id Identity) TurnResult {
	rec := NewReconciler(id)
	for event, err := range l.agent.SendStreamingMessage(ctx, req) {
		c, err := Classify(event, err)
		if err != nil {
			return rec.result(OutcomeError, err)
		}
		if c.Kind == KindError {
			return rec.result(OutcomeError, c.Err)
		}
		l.reporter.Event(ctx, c.Event)
		rec.Observe(ctx, c)
	}

	if _, err := rec.Finalize(ctx, l.agent); err != nil {
		return rec.result(OutcomeError, err)
	}
	switch {
	case rec.Message() != nil:
		return rec.result(OutcomeMessage, nil)
	case rec.Final() != nil:
		return rec.result(OutcomeTask, nil)
	default:
		return rec.result(OutcomeNoResult, nil)
	}
}

func (l *Loop) unaryTurn(ctx context.Context, req *a2a.SendMessageRequest, id Identity) TurnResult {
	rec := NewReconciler(id)
	result, err := l.agent.SendMessage(ctx, req)

	var event a2a.Event
	if result != nil {
		event = result
	}
	c, err := Classify(event, err)
	if errors.Is(err, a2aclient.ErrTransport) {
		log.Error(ctx, "failed to complete the call", err)
		return rec.result(OutcomeNoResult, err)
	}
	if err != nil {
		return rec.result(OutcomeError, err)
	}

	switch c.Kind {
	case KindError:
		return rec.result(OutcomeError, c.Err)
	case KindTaskSnapshot:
		if err := rec.Adopt(ctx, c.Event.(*a2a.Task)); err != nil {
			return rec.result(OutcomeError, err)
		}
		return rec.result(OutcomeTask, nil)
	case KindTerminalMessage:
		rec.Observe(ctx, c)
		return rec.result(OutcomeMessage, nil)
	default:
		return rec.result(OutcomeError, fmt.Errorf("%w: %s in a non-streaming response", ErrUnclassifiable, c.Kind))
	}
}

func (r *Reconciler) result(outcome Outcome, err error) TurnResult {
	return TurnResult{
		Outcome:           outcome,
		Task:              r.Final(),
		Message:           r.Message(),
		Identity:          r.Identity(),
		State:             r.State(),
		ContextMismatches: r.Mismatches(),
		Err:               err,
	}
}

func (l *Loop) report(ctx context.Context, res TurnResult) {
	switch res.Outcome {
	case OutcomeMessage:
		l.reporter.Message(ctx, res.Message)
	case OutcomeTask:
		l.reporter.Task(ctx, res.Task, res.State)
		if res.Task != nil && res.Task.Status.State != res.State {
			l.reporter.Notice(ctx, fmt.Sprintf("agent reported %s after the task was %s, the task is done", res.Task.Status.State, res.State))
		}
	case OutcomeNoResult:
		if res.Err != nil {
			l.reporter.Error(ctx, res.Err)
		} else {
			l.reporter.Notice(ctx, "the agent returned no result")
		}
	case OutcomeError:
		l.reporter.Error(ctx, res.Err)
	}
}

func (l *Loop) showHistory(ctx context.Context, taskID a2a.TaskID) {
	if taskID == "" {
		return
	}
	historyLength := l.cfg.HistoryLength
	task, err := l.agent.GetTask(ctx, &a2a.GetTaskRequest{ID: taskID, HistoryLength: &historyLength})
	if err != nil {
		l.reporter.Error(ctx, fmt.Errorf("failed to retrieve task history: %w", err))
		return
	}
	l.reporter.History(ctx, task)
}

// WithoutHistoryFiles returns a copy of the task whose history omits the contents of file parts.
func WithoutHistoryFiles(task *a2a.Task) *a2a.Task {
	if task == nil {
		return nil
	}
	cp := *task
	cp.History = make([]*a2a.Message, len(task.History))
	for i, msg := range task.History {
		if msg == nil {
			continue
		}
		m := *msg
		m.Parts = make(a2a.ContentParts, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if part == nil {
				continue
			}
			if _, isRaw := part.Content.(a2a.Raw); isRaw {
				stripped := *part
				stripped.Content = a2a.Text(fmt.Sprintf("<file %q omitted>", part.Filename))
				m.Parts = append(m.Parts, &stripped)
				continue
			}
			m.Parts = append(m.Parts, part)
		}
		cp.History[i] = &m
	}
	return &cp
}
