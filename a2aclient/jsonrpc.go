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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/internal/jsonrpc"
	"github.com/a2aproject/a2a-taskcli/internal/sse"
	"github.com/a2aproject/a2a-taskcli/log"
	"github.com/google/uuid"
)

// WithJSONRPCTransport returns a Client factory option that enables JSON-RPC transport support.
// When applied, the client will use JSON-RPC 2.0 over HTTP for all A2A protocol communication.
func WithJSONRPCTransport(client *http.Client) FactoryOption {
	return WithTransport(
		a2a.TransportProtocolJSONRPC,
		TransportFactoryFn(func(ctx context.Context, card *a2a.AgentCard, iface *a2a.AgentInterface) (Transport, error) {
			return NewJSONRPCTransport(iface.URL, client), nil
		}),
	)
}

// NewJSONRPCTransport creates a new JSON-RPC transport for A2A protocol communication.
// By default, an HTTP client will use a 3-minute timeout. The timeout of a provided client
// also bounds the whole lifetime of a streaming response.
func NewJSONRPCTransport(url string, client *http.Client) Transport {
	t := &jsonrpcTransport{
		url:        url,
		httpClient: client,
	}

	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: 3 * time.Minute}
	}

	return t
}

// jsonrpcTransport implements Transport using JSON-RPC 2.0 over HTTP.
type jsonrpcTransport struct {
	url        string
	httpClient *http.Client
}

var _ Transport = (*jsonrpcTransport)(nil)

func (t *jsonrpcTransport) newHTTPRequest(ctx context.Context, method string, params ServiceParams, payload any) (*http.Request, error) {
	req := jsonrpc.ClientRequest{
		JSONRPC: jsonrpc.Version,
		Method:  method,
		Params:  payload,
		ID:      uuid.NewString(),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", jsonrpc.ContentJSON)

	for k, vals := range params {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	return httpReq, nil
}

func (t *jsonrpcTransport) do(ctx context.Context, httpReq *http.Request) (*http.Response, error) {
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send HTTP request: %w", ErrTransport, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if err := httpResp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close http response body", err)
		}
		return nil, fmt.Errorf("%w: unexpected HTTP status: %s", ErrTransport, httpResp.Status)
	}
	return httpResp, nil
}

// sendRequest sends a non-streaming JSON-RPC request and returns the response.
func (t *jsonrpcTransport) sendRequest(ctx context.Context, method string, params ServiceParams, req any) (json.RawMessage, error) {
	httpReq, err := t.newHTTPRequest(ctx, method, params, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close http response body", err)
		}
	}()

	var resp jsonrpc.ClientResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", a2a.ErrInvalidAgentResponse, err)
	}

	if resp.Error != nil {
		return nil, resp.Error.ToA2AError()
	}

	return resp.Result, nil
}

// sendStreamingRequest sends a streaming JSON-RPC request and returns an SSE stream.
func (t *jsonrpcTransport) sendStreamingRequest(ctx context.Context, method string, params ServiceParams, req any) (io.ReadCloser, error) {
	httpReq, err := t.newHTTPRequest(ctx, method, params, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", sse.ContentEventStream)

	httpResp, err := t.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	return httpResp.Body, nil
}

// parseSSEStream parses Server-Sent Events and yields JSON-RPC results.
// A JSON-RPC error object ends the stream with an [a2a.Error].
func parseSSEStream(body io.Reader) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for data, err := range sse.ParseDataStream(body) {
			if err != nil {
				yield(nil, fmt.Errorf("%w: %w", ErrTransport, err))
				return
			}
			var resp jsonrpc.ClientResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				yield(nil, fmt.Errorf("%w: failed to parse SSE data: %w", a2a.ErrInvalidAgentResponse, err))
				return
			}
			if resp.Error != nil {
				yield(nil, resp.Error.ToA2AError())
				return
			}
			if !yield(resp.Result, nil) {
				return
			}
		}
	}
}

// SendMessage implements [Transport].
func (t *jsonrpcTransport) SendMessage(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
	result, err := t.sendRequest(ctx, jsonrpc.MethodMessageSend, params, req)
	if err != nil {
		return nil, err
	}

	var sr a2a.StreamResponse
	if err := json.Unmarshal(result, &sr); err != nil {
		return nil, err
	}

	// SendMessage can return either a Task or a Message
	switch e := sr.Event.(type) {
	case *a2a.Task:
		return e, nil
	case *a2a.Message:
		return e, nil
	default:
		return nil, fmt.Errorf("%w: expected Task or Message, got %T", a2a.ErrInvalidAgentResponse, sr.Event)
	}
}

// SendStreamingMessage implements [Transport].
func (t *jsonrpcTransport) SendStreamingMessage(ctx context.Context, params ServiceParams, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		body, err := t.sendStreamingRequest(ctx, jsonrpc.MethodMessageStream, params, req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			if err := body.Close(); err != nil {
				log.Error(ctx, "failed to close http response body", err)
			}
		}()

		for result, err := range parseSSEStream(body) {
			if err != nil {
				yield(nil, err)
				return
			}

			var sr a2a.StreamResponse
			if err := json.Unmarshal(result, &sr); err != nil {
				yield(nil, err)
				return
			}

			if !yield(sr.Event, nil) {
				return
			}
		}
	}
}

// GetTask implements [Transport].
func (t *jsonrpcTransport) GetTask(ctx context.Context, params ServiceParams, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	result, err := t.sendRequest(ctx, jsonrpc.MethodTasksGet, params, req)
	if err != nil {
		return nil, err
	}

	var task a2a.Task
	if err := json.Unmarshal(result, &task); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal task: %w", a2a.ErrInvalidAgentResponse, err)
	}

	return &task, nil
}

// Destroy implements [Transport].
func (t *jsonrpcTransport) Destroy() error {
	return nil
}
