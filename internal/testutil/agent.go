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

// Package testutil provides an in-process JSON-RPC agent for tests.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/internal/jsonrpc"
	"github.com/a2aproject/a2a-taskcli/internal/sse"
)

// ErrDropConnection can be placed among stream items to abort the response mid-stream.
var ErrDropConnection = errors.New("drop connection")

// TestAgent is a scripted A2A agent speaking JSON-RPC over HTTP. Without overrides
// GetTask answers from the tasks the agent was seeded with and the send methods fail
// with [a2a.ErrUnsupportedOperation].
type TestAgent struct {
	Server *httptest.Server

	SendMessageFunc   func(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error)
	StreamMessageFunc func(ctx context.Context, req *a2a.SendMessageRequest) []any
	GetTaskFunc       func(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error)

	mu       sync.Mutex
	tasks    map[a2a.TaskID]*a2a.Task
	requests []*jsonrpc.ServerRequest
	headers  []http.Header
}

// NewTestAgent starts an agent which is shut down when the test ends.
func NewTestAgent(t *testing.T) *TestAgent {
	t.Helper()
	agent := &TestAgent{tasks: make(map[a2a.TaskID]*a2a.Task)}
	agent.Server = httptest.NewServer(http.HandlerFunc(agent.serveHTTP))
	t.Cleanup(agent.Server.Close)
	return agent
}

// URL returns the JSON-RPC endpoint of the agent.
func (a *TestAgent) URL() string {
	return a.Server.URL
}

// Card returns a card advertising the JSON-RPC endpoint of the agent.
func (a *TestAgent) Card(streaming bool) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:                "test-agent",
		Version:             "1.0.0",
		SupportedInterfaces: []*a2a.AgentInterface{a2a.NewAgentInterface(a.URL(), a2a.TransportProtocolJSONRPC)},
		Capabilities:        a2a.AgentCapabilities{Streaming: streaming},
	}
}

// WithTasks seeds the agent with tasks returned by GetTask.
func (a *TestAgent) WithTasks(tasks ...*a2a.Task) *TestAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, task := range tasks {
		a.tasks[task.ID] = task
	}
	return a
}

// SetSendMessageOverride makes message sends return the provided values.
func (a *TestAgent) SetSendMessageOverride(result a2a.SendMessageResult, err error) *TestAgent {
	a.SendMessageFunc = func(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
		return result, err
	}
	return a
}

// SetStreamOverride makes streaming sends produce the provided items. Every item is either an
// [a2a.Event], an error written as a JSON-RPC error, or [ErrDropConnection].
func (a *TestAgent) SetStreamOverride(items ...any) *TestAgent {
	a.StreamMessageFunc = func(ctx context.Context, req *a2a.SendMessageRequest) []any {
		return items
	}
	return a
}

// Requests returns the requests received for the method in arrival order.
func (a *TestAgent) Requests(method string) []*jsonrpc.ServerRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	var result []*jsonrpc.ServerRequest
	for _, req := range a.requests {
		if req.Method == method {
			result = append(result, req)
		}
	}
	return result
}

// Headers returns the HTTP headers of every received request.
func (a *TestAgent) Headers() []http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]http.Header(nil), a.headers...)
}

func (a *TestAgent) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req jsonrpc.ServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, Error: jsonrpc.FromError(a2a.ErrParseError)})
		return
	}
	a.mu.Lock()
	a.requests = append(a.requests, &req)
	a.headers = append(a.headers, r.Header.Clone())
	a.mu.Unlock()

	ctx := r.Context()
	switch req.Method {
	case jsonrpc.MethodMessageSend:
		var params a2a.SendMessageRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeResponse(w, errorResponse(req.ID, a2a.ErrInvalidParams))
			return
		}
		result, err := a.sendMessage(ctx, &params)
		writeResponse(w, resultResponse(req.ID, a2a.StreamResponse{Event: result}, err))

	case jsonrpc.MethodMessageStream:
		var params a2a.SendMessageRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeResponse(w, errorResponse(req.ID, a2a.ErrInvalidParams))
			return
		}
		a.stream(ctx, w, req.ID, &params)

	case jsonrpc.MethodTasksGet:
		var params a2a.GetTaskRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeResponse(w, errorResponse(req.ID, a2a.ErrInvalidParams))
			return
		}
		task, err := a.getTask(ctx, &params)
		writeResponse(w, resultResponse(req.ID, task, err))

	default:
		writeResponse(w, errorResponse(req.ID, a2a.ErrMethodNotFound))
	}
}

func (a *TestAgent) sendMessage(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
	if a.SendMessageFunc != nil {
		return a.SendMessageFunc(ctx, req)
	}
	return nil, a2a.ErrUnsupportedOperation
}

func (a *TestAgent) getTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	if a.GetTaskFunc != nil {
		return a.GetTaskFunc(ctx, req)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	task, ok := a.tasks[req.ID]
	if !ok {
		return nil, a2a.ErrTaskNotFound
	}
	return task, nil
}

func (a *TestAgent) stream(ctx context.Context, w http.ResponseWriter, id any, req *a2a.SendMessageRequest) {
	var items []any
	if a.StreamMessageFunc != nil {
		items = a.StreamMessageFunc(ctx, req)
	} else {
		items = []any{a2a.ErrUnsupportedOperation}
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeResponse(w, errorResponse(id, err))
		return
	}
	writer.WriteHeaders()
	for _, item := range items {
		var resp jsonrpc.ServerResponse
		switch v := item.(type) {
		case a2a.Event:
			resp = resultResponse(id, a2a.StreamResponse{Event: v}, nil)
		case error:
			if errors.Is(v, ErrDropConnection) {
				panic(http.ErrAbortHandler)
			}
			resp = errorResponse(id, v)
		default:
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := writer.WriteData(ctx, data); err != nil {
			return
		}
	}
}

func resultResponse(id any, result any, err error) jsonrpc.ServerResponse {
	if err != nil {
		return errorResponse(id, err)
	}
	return jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: id, Result: result}
}

func errorResponse(id any, err error) jsonrpc.ServerResponse {
	return jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: id, Error: jsonrpc.FromError(err)}
}

func writeResponse(w http.ResponseWriter, resp jsonrpc.ServerResponse) {
	w.Header().Set("Content-Type", jsonrpc.ContentJSON)
	_ = json.NewEncoder(w).Encode(resp)
}
