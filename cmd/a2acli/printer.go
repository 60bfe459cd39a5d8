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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/a2aconv"
	"github.com/a2aproject/a2a-taskcli/journal"
	"github.com/fatih/color"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	agentColor   = color.New(color.FgGreen)
	noticeColor  = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// printer renders the conversation on the console. It is shared with the push
// notification listener, so writes are serialized.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

var _ a2aconv.Reporter = (*printer)(nil)

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) Card(card *a2a.AgentCard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = headingColor.Fprintln(p.out, "======= Agent Card ========")
	p.writeJSON(card)
}

func (p *printer) Event(ctx context.Context, event a2a.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.out, "stream event => ")
	p.writeJSON(a2a.StreamResponse{Event: event})
}

func (p *printer) Message(ctx context.Context, msg *a2a.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = agentColor.Fprintln(p.out, "agent replied:")
	p.writeJSON(msg)
}

func (p *printer) Task(ctx context.Context, task *a2a.Task, state a2a.TaskState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = agentColor.Fprintf(p.out, "task %s is %s\n", task.ID, state)
	p.writeJSON(a2aconv.WithoutHistoryFiles(task))
}

func (p *printer) History(ctx context.Context, task *a2a.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = headingColor.Fprintln(p.out, "========= history ======== ")
	for _, msg := range a2aconv.WithoutHistoryFiles(task).History {
		p.writeJSON(msg)
	}
}

func (p *printer) Error(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = errorColor.Fprintf(p.out, "error: %v\n", err)
}

func (p *printer) Notice(ctx context.Context, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = noticeColor.Fprintln(p.out, text)
}

// Notification is the handler of the push notification listener.
func (p *printer) Notification(ctx context.Context, event a2a.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = noticeColor.Fprint(p.out, "push notification => ")
	p.writeJSON(a2a.StreamResponse{Event: event})
}

func (p *printer) Summary(contextID string, summary *journal.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = headingColor.Fprintf(p.out, "session %s: %d turns, %d tasks\n", contextID, summary.Turns, summary.Tasks)

	outcomes := make([]string, 0, len(summary.ByOutcome))
	for outcome := range summary.ByOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		_, _ = fmt.Fprintf(p.out, "  %-10s %d\n", outcome, summary.ByOutcome[outcome])
	}
}

func (p *printer) writeJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		_, _ = errorColor.Fprintf(p.out, "failed to render %T: %v\n", v, err)
		return
	}
	_, _ = fmt.Fprintln(p.out, string(data))
}
