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

package a2aclient

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/internal/utils"
	"github.com/google/go-cmp/cmp"
)

type testTransport struct {
	GetTaskFn              func(context.Context, ServiceParams, *a2a.GetTaskRequest) (*a2a.Task, error)
	SendMessageFn          func(context.Context, ServiceParams, *a2a.SendMessageRequest) (a2a.SendMessageResult, error)
	SendStreamingMessageFn func(context.Context, ServiceParams, *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error]
}

var _ Transport = (*testTransport)(nil)

func (t *testTransport) GetTask(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	return t.GetTaskFn(ctx, params, req)
}

func (t *testTransport) SendMessage(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
	return t.SendMessageFn(ctx, params, req)
}

func (t *testTransport) SendStreamingMessage(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
	return t.SendStreamingMessageFn(ctx, params, req)
}

func (t *testTransport) Destroy() error {
	return nil
}

func makeEventSeq2(events []a2a.Event) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				break
			}
		}
	}
}

type testInterceptor struct {
	lastReq  *Request
	lastResp *Response
	BeforeFn func(context.Context, *Request) (context.Context, any, error)
	AfterFn  func(context.Context, *Response) error
}

var _ CallInterceptor = (*testInterceptor)(nil)

func (ti *testInterceptor) Before(ctx context.Context, req *Request) (context.Context, any, error) {
	ti.lastReq = req
	if ti.BeforeFn != nil {
		return ti.BeforeFn(ctx, req)
	}
	return ctx, nil, nil
}

func (ti *testInterceptor) After(ctx context.Context, resp *Response) error {
	ti.lastResp = resp
	if ti.AfterFn != nil {
		return ti.AfterFn(ctx, resp)
	}
	return nil
}

func newTestClient(transport Transport, interceptors ...CallInterceptor) *Client {
	return &Client{transport: transport, interceptors: interceptors, protocolVersion: a2a.Version}
}

func TestClient_CallFails(t *testing.T) {
	ctx := t.Context()
	wantErr := errors.New("call failed")
	transport := &testTransport{
		GetTaskFn: func(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
			return nil, wantErr
		},
	}
	interceptor := &testInterceptor{}
	client := newTestClient(transport, interceptor)

	if _, err := client.GetTask(ctx, &a2a.GetTaskRequest{}); !errors.Is(err, wantErr) {
		t.Fatalf("client.GetTask() error = %v, want %v", err, wantErr)
	}
	if !errors.Is(interceptor.lastResp.Err, wantErr) {
		t.Fatalf("interceptor.lastResp.Err = %v, want %v", interceptor.lastResp.Err, wantErr)
	}
}

func TestClient_InterceptorModifiesRequest(t *testing.T) {
	ctx := t.Context()
	var receivedReq *a2a.GetTaskRequest
	transport := &testTransport{
		GetTaskFn: func(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
			receivedReq = req
			return &a2a.Task{}, nil
		},
	}
	wantReq := &a2a.GetTaskRequest{ID: "modified"}
	interceptor := &testInterceptor{
		BeforeFn: func(ctx context.Context, r *Request) (context.Context, any, error) {
			r.Payload = wantReq
			return ctx, nil, nil
		},
	}

	client := newTestClient(transport, interceptor)
	if _, err := client.GetTask(ctx, &a2a.GetTaskRequest{ID: "original"}); err != nil {
		t.Fatalf("client.GetTask() error = %v, want nil", err)
	}
	if receivedReq != wantReq {
		t.Fatalf("transport received %v, want %v", receivedReq, wantReq)
	}
}

func TestClient_DefaultSendMessageConfig(t *testing.T) {
	ctx := t.Context()
	var received []*a2a.SendMessageRequest
	transport := &testTransport{
		SendMessageFn: func(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
			received = append(received, req)
			return a2a.NewMessage(a2a.MessageRoleAgent), nil
		},
	}
	client := newTestClient(transport)
	client.config = Config{AcceptedOutputModes: []string{"application/json"}}

	original := &a2a.SendMessageRequest{Message: a2a.NewMessage(a2a.MessageRoleUser)}
	explicit := &a2a.SendMessageRequest{
		Message: a2a.NewMessage(a2a.MessageRoleUser),
		Config:  &a2a.SendMessageConfig{AcceptedOutputModes: []string{"text"}, Blocking: utils.Ptr(false)},
	}
	for _, req := range []*a2a.SendMessageRequest{original, explicit} {
		if _, err := client.SendMessage(ctx, req); err != nil {
			t.Fatalf("client.SendMessage() error = %v", err)
		}
	}

	want := []*a2a.SendMessageConfig{
		{AcceptedOutputModes: []string{"application/json"}, Blocking: utils.Ptr(true)},
		{AcceptedOutputModes: []string{"text"}, Blocking: utils.Ptr(false)},
	}
	for i, req := range received {
		if diff := cmp.Diff(want[i], req.Config); diff != "" {
			t.Errorf("request %d wrong config (-want +got) diff = %s", i, diff)
		}
	}
	if original.Config != nil {
		t.Fatalf("client.SendMessage() modified the caller's request: %v", original.Config)
	}
}

func TestClient_ServiceParams(t *testing.T) {
	var receivedParams ServiceParams
	transport := &testTransport{
		GetTaskFn: func(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
			receivedParams = params
			return &a2a.Task{}, nil
		},
	}
	headers := NewHeaderInterceptor(map[string]string{"X-Custom": "from-cli"})
	client := newTestClient(transport, headers)

	ctx := AttachServiceParams(t.Context(), ServiceParams{"X-Request-Scoped": {"yes"}})
	if _, err := client.GetTask(ctx, &a2a.GetTaskRequest{ID: "t1"}); err != nil {
		t.Fatalf("client.GetTask() error = %v", err)
	}

	want := ServiceParams{
		"a2a-version":      {string(a2a.Version)},
		"x-custom":         {"from-cli"},
		"x-request-scoped": {"yes"},
	}
	if diff := cmp.Diff(want, receivedParams); diff != "" {
		t.Fatalf("transport received wrong params (-want +got) diff = %s", diff)
	}
}

func TestClient_InterceptorModifiesResponse(t *testing.T) {
	ctx := t.Context()
	transport := &testTransport{
		GetTaskFn: func(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
			return &a2a.Task{ID: "original"}, nil
		},
	}
	replacement := &a2a.Task{ID: "replaced"}
	interceptor := &testInterceptor{
		AfterFn: func(ctx context.Context, resp *Response) error {
			resp.Payload = replacement
			return nil
		},
	}

	got, err := newTestClient(transport, interceptor).GetTask(ctx, &a2a.GetTaskRequest{})
	if err != nil {
		t.Fatalf("client.GetTask() error = %v", err)
	}
	if got != replacement {
		t.Fatalf("client.GetTask() = %v, want %v", got, replacement)
	}
}

func TestClient_InterceptorRejectsRequest(t *testing.T) {
	ctx := t.Context()
	called := false
	transport := &testTransport{
		SendStreamingMessageFn: func(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
			called = true
			return makeEventSeq2(nil)
		},
	}
	wantErr := errors.New("rejected")
	interceptor := &testInterceptor{
		BeforeFn: func(ctx context.Context, r *Request) (context.Context, any, error) {
			return ctx, nil, wantErr
		},
	}

	client := newTestClient(transport, interceptor)
	for _, err := range client.SendStreamingMessage(ctx, &a2a.SendMessageRequest{}) {
		if !errors.Is(err, wantErr) {
			t.Fatalf("client.SendStreamingMessage() error = %v, want %v", err, wantErr)
		}
	}
	if called {
		t.Fatal("transport was called for a rejected request")
	}
}

func TestClient_SendStreamingMessage(t *testing.T) {
	ctx := t.Context()
	events := []a2a.Event{
		&a2a.Task{ID: "t1", ContextID: "c1"},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}},
	}
	transport := &testTransport{
		SendStreamingMessageFn: func(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
			return makeEventSeq2(events)
		},
	}
	interceptor := &testInterceptor{}
	client := newTestClient(transport, interceptor)
	client.card.Store(&a2a.AgentCard{Capabilities: a2a.AgentCapabilities{Streaming: true}})

	var got []a2a.Event
	for event, err := range client.SendStreamingMessage(ctx, &a2a.SendMessageRequest{}) {
		if err != nil {
			t.Fatalf("client.SendStreamingMessage() error = %v", err)
		}
		got = append(got, event)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Fatalf("client.SendStreamingMessage() wrong events (-want +got) diff = %s", diff)
	}
	if interceptor.lastResp.Method != "SendStreamingMessage" {
		t.Fatalf("interceptor.lastResp.Method = %q, want SendStreamingMessage", interceptor.lastResp.Method)
	}
}

func TestClient_FallbackToNonStreamingSend(t *testing.T) {
	ctx := t.Context()
	want := a2a.NewMessage(a2a.MessageRoleAgent)
	transport := &testTransport{
		SendMessageFn: func(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
			return want, nil
		},
	}
	interceptor := &testInterceptor{}
	client := newTestClient(transport, interceptor)
	client.card.Store(&a2a.AgentCard{Capabilities: a2a.AgentCapabilities{Streaming: false}})

	eventCount := 0
	for got, err := range client.SendStreamingMessage(ctx, &a2a.SendMessageRequest{}) {
		if err != nil {
			t.Fatalf("client.SendStreamingMessage() error = %v, want nil", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("client.SendStreamingMessage() wrong result (+got,-want) diff = %s", diff)
		}
		eventCount++
	}
	if eventCount != 1 {
		t.Fatalf("client.SendStreamingMessage() got %d events, want 1", eventCount)
	}
}

func TestClient_intercept_EarlyReturn(t *testing.T) {
	ctx := t.Context()
	earlyResult := &a2a.Task{ID: "early-cached-result"}

	transportMethodCalled := false
	transport := &testTransport{
		GetTaskFn: func(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
			transportMethodCalled = true
			return nil, errors.New("transport method should not be called")
		},
	}

	var callOrder []string
	interceptor1 := &testInterceptor{
		BeforeFn: func(ctx context.Context, req *Request) (context.Context, any, error) {
			callOrder = append(callOrder, "1-Before")
			return ctx, nil, nil
		},
		AfterFn: func(ctx context.Context, resp *Response) error {
			callOrder = append(callOrder, "1-After")
			return nil
		},
	}
	interceptor2 := &testInterceptor{
		BeforeFn: func(ctx context.Context, req *Request) (context.Context, any, error) {
			callOrder = append(callOrder, "2-Before")
			return ctx, earlyResult, nil
		},
		AfterFn: func(ctx context.Context, resp *Response) error {
			callOrder = append(callOrder, "2-After")
			return nil
		},
	}
	interceptor3 := &testInterceptor{
		BeforeFn: func(ctx context.Context, req *Request) (context.Context, any, error) {
			callOrder = append(callOrder, "3-Before")
			return ctx, nil, nil
		},
	}

	client := newTestClient(transport, interceptor1, interceptor2, interceptor3)

	task, err := client.GetTask(ctx, &a2a.GetTaskRequest{ID: "original"})
	if err != nil {
		t.Fatalf("client.GetTask() error = %v, want nil", err)
	}
	if task != earlyResult {
		t.Fatalf("client.GetTask() task = %v, want %v", task, earlyResult)
	}
	if transportMethodCalled {
		t.Fatalf("transport method should not be called")
	}
	wantCallOrder := []string{"1-Before", "2-Before", "2-After", "1-After"}
	if !reflect.DeepEqual(callOrder, wantCallOrder) {
		t.Fatalf("callOrder = %v, want %v", callOrder, wantCallOrder)
	}
}
