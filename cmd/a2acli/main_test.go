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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/internal/jsonrpc"
	"github.com/a2aproject/a2a-taskcli/internal/testutil"
	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
)

func init() {
	color.NoColor = true
}

type scriptedPrompter struct {
	lines []string
}

func (p *scriptedPrompter) Prompt(ctx context.Context, label string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func parseCLI(t *testing.T, args ...string) (*CLI, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("a2acli"), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}
	_, err = parser.Parse(args)
	return &cli, err
}

func TestCLI_Defaults(t *testing.T) {
	got, err := parseCLI(t)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := &CLI{
		Agent:                    "http://localhost:10000",
		Session:                  "0",
		PushNotificationReceiver: "http://localhost:5000",
		Timeout:                  30 * time.Second,
		LogLevel:                 "info",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() wrong result (-want +got):\n%s", diff)
	}
}

func TestCLI_FlagsAndEnv(t *testing.T) {
	t.Setenv("A2A_AGENT_URL", "http://agent.example.com")
	t.Setenv("A2A_USE_PUSH", "true")

	got, err := parseCLI(t, "--session", "ctx-42", "--history", "--header", "X-Api-Key=secret", "--header", "X-Trace=a=b")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got.Agent != "http://agent.example.com" || !got.UsePushNotifications {
		t.Errorf("Parse() = %+v, want values from the environment", got)
	}
	if got.Session != "ctx-42" || !got.History {
		t.Errorf("Parse() = %+v, want values from flags", got)
	}
	headers, err := parseHeaders(got.Header)
	if err != nil {
		t.Fatalf("parseHeaders() error = %v", err)
	}
	if diff := cmp.Diff(map[string]string{"X-Api-Key": "secret", "X-Trace": "a=b"}, headers); diff != "" {
		t.Errorf("parseHeaders() wrong result (-want +got):\n%s", diff)
	}
}

func TestCLI_Invalid(t *testing.T) {
	testCases := [][]string{
		{"--header", "no-separator"},
		{"--log-level", "verbose"},
		{"--journal-driver", "sqlite3"},
		{"--timeout", "soon"},
	}
	for _, args := range testCases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := parseCLI(t, args...); err == nil {
				t.Errorf("Parse(%v) error = nil, want error", args)
			}
		})
	}
}

func TestSessionContextID(t *testing.T) {
	if got := sessionContextID("ctx-1"); got != "ctx-1" {
		t.Errorf("sessionContextID(ctx-1) = %q, want ctx-1", got)
	}
	first, second := sessionContextID("0"), sessionContextID("")
	if first == "" || second == "" || first == second {
		t.Errorf("sessionContextID() = %q, %q, want two fresh IDs", first, second)
	}
}

func newCardServer(t *testing.T, card *a2a.AgentCard) (*httptest.Server, *[]http.Header) {
	t.Helper()
	var headers []http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Clone())
		if r.URL.Path != "/.well-known/agent-card.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(card)
	}))
	t.Cleanup(server.Close)
	return server, &headers
}

func TestRun(t *testing.T) {
	agent := testutil.NewTestAgent(t)
	agent.SendMessageFunc = func(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
		return &a2a.Task{
			ID:        "t1",
			ContextID: req.Message.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
			History:   []*a2a.Message{req.Message},
		}, nil
	}
	agent.WithTasks(&a2a.Task{ID: "t1", ContextID: "ctx-7", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}})
	cardServer, cardHeaders := newCardServer(t, agent.Card(false))

	cli, err := parseCLI(t,
		"--agent", cardServer.URL,
		"--session", "ctx-7",
		"--history",
		"--header", "X-Api-Key=secret",
		"--journal-driver", "sqlite3",
		"--journal-dsn", ":memory:",
	)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var stdout, stderr bytes.Buffer
	prompter := &scriptedPrompter{lines: []string{"hello", "", ":q"}}

	if err := run(t.Context(), cli, prompter, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v, stderr:\n%s", err, stderr.String())
	}

	sends := agent.Requests(jsonrpc.MethodMessageSend)
	if len(sends) != 1 {
		t.Fatalf("agent received %d SendMessage requests, want 1", len(sends))
	}
	var params a2a.SendMessageRequest
	if err := json.Unmarshal(sends[0].Params, &params); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if params.Message.ContextID != "ctx-7" || params.Message.Parts[0].Text() != "hello" {
		t.Errorf("SendMessage message = %+v, want hello in ctx-7", params.Message)
	}
	if n := len(agent.Requests(jsonrpc.MethodTasksGet)); n != 1 {
		t.Errorf("agent received %d GetTask requests, want 1 history query", n)
	}
	for _, h := range append(*cardHeaders, agent.Headers()...) {
		if got := h.Get("X-Api-Key"); got != "secret" {
			t.Errorf("request header X-Api-Key = %q, want secret", got)
		}
	}

	out := stdout.String()
	for _, want := range []string{"======= Agent Card ========", "task t1 is COMPLETED", "========= history ========", "session ctx-7: 1 turns, 1 tasks"} {
		if !strings.Contains(out, want) {
			t.Errorf("run() output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrinter_TaskOmitsHistoryFiles(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)
	task := &a2a.Task{
		ID:     "t1",
		Status: a2a.TaskStatus{State: a2a.TaskStateCompleted},
		History: []*a2a.Message{{
			ID:    "m1",
			Role:  a2a.MessageRoleUser,
			Parts: a2a.ContentParts{a2a.NewTextPart("see file"), a2a.NewFilePart("big.bin", []byte("payload-bytes"))},
		}},
	}

	p.Task(t.Context(), task, a2a.TaskStateCompleted)

	if strings.Contains(out.String(), "cGF5bG9hZC1ieXRlcw") {
		t.Errorf("Task() printed file bytes:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `\u003cfile \"big.bin\" omitted\u003e`) {
		t.Errorf("Task() output does not mention the omitted file:\n%s", out.String())
	}
}

func TestPrinter_TaskPrintsSettledState(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)
	task := &a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateInputRequired}}

	p.Task(t.Context(), task, a2a.TaskStateCompleted)

	if !strings.Contains(out.String(), "task t1 is COMPLETED") {
		t.Errorf("Task() output does not show the settled state:\n%s", out.String())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.env")
	if err := os.WriteFile(valid, []byte("A2A_TEST_DOTENV_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	t.Setenv("A2A_TEST_DOTENV_VALUE", "")
	os.Unsetenv("A2A_TEST_DOTENV_VALUE")

	testCases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.env")},
		{name: "valid file", path: valid},
		{name: "unreadable file", path: dir, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := loadDotEnv(tc.path)
			if (err != nil) != tc.wantErr {
				t.Errorf("loadDotEnv(%q) error = %v, want error %v", tc.path, err, tc.wantErr)
			}
		})
	}
	if got := os.Getenv("A2A_TEST_DOTENV_VALUE"); got != "from-file" {
		t.Errorf("A2A_TEST_DOTENV_VALUE = %q, want %q", got, "from-file")
	}
}
