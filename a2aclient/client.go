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

// Package a2aclient provides a client for calling an A2A agent.
package a2aclient

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/internal/utils"
)

// Config exposes options for customizing [Client] behavior.
type Config struct {
	// AcceptedOutputModes are MIME types passed with every Client message unless the
	// request sets its own.
	AcceptedOutputModes []string
	// PreferredTransports is used for selecting the most appropriate communication protocol.
	// The first transport from the list which is also supported by the server is going to be used.
	PreferredTransports []a2a.TransportProtocol
}

// Client represents a transport-agnostic implementation of A2A client.
// The actual call is delegated to a specific [Transport] implementation.
// [CallInterceptor]-s are applied before and after every protocol call.
type Client struct {
	config          Config
	transport       Transport
	protocolVersion a2a.ProtocolVersion
	interceptors    []CallInterceptor
	baseURL         string

	card atomic.Pointer[a2a.AgentCard]
}

type interceptBeforeResult[Req any, Resp any] struct {
	reqOverride   Req
	params        ServiceParams
	earlyResponse *Resp
	earlyErr      error
}

// Card returns the agent card the client was created from, or nil.
func (c *Client) Card() *a2a.AgentCard {
	return c.card.Load()
}

// BaseURL returns the URL of the agent interface the client is connected to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// A2A protocol methods

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	return doCall(ctx, c, "GetTask", req, c.transport.GetTask)
}

// SendMessage sends a message and waits for the aggregate result.
func (c *Client) SendMessage(ctx context.Context, req *a2a.SendMessageRequest) (a2a.SendMessageResult, error) {
	req = c.withDefaultSendConfig(req, true)
	return doCall(ctx, c, "SendMessage", req, c.transport.SendMessage)
}

// SendStreamingMessage sends a message and returns the events streamed back by the agent.
// When the agent card states that streaming is not supported, the aggregate result of a
// non-streaming call is yielded as the only event.
func (c *Client) SendStreamingMessage(ctx context.Context, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		method := "SendStreamingMessage"

		req = c.withDefaultSendConfig(req, true)

		ctx, res := interceptBefore[*a2a.SendMessageRequest, a2a.SendMessageResult](ctx, c, method, req)
		if res.earlyErr != nil {
			yield(nil, res.earlyErr)
			return
		}

		if res.earlyResponse != nil {
			yield(*res.earlyResponse, nil)
			return
		}

		if card := c.card.Load(); card != nil && !card.Capabilities.Streaming {
			resp, err := c.transport.SendMessage(ctx, res.params, res.reqOverride)
			interceptedResponse, errOverride := interceptAfter(ctx, c, c.interceptors, method, res.params, resp, err)
			if errOverride != nil {
				yield(nil, errOverride)
				return
			}
			yield(interceptedResponse, nil)
			return
		}

		for resp, err := range c.transport.SendStreamingMessage(ctx, res.params, res.reqOverride) {
			interceptedEvent, errOverride := interceptAfter(ctx, c, c.interceptors, method, res.params, resp, err)
			if errOverride != nil {
				yield(nil, errOverride)
				return
			}

			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(interceptedEvent, nil) {
				return
			}
		}
	}
}

// Destroy releases resources held by the transport.
func (c *Client) Destroy() error {
	return c.transport.Destroy()
}

func (c *Client) withDefaultSendConfig(message *a2a.SendMessageRequest, blocking bool) *a2a.SendMessageRequest {
	result := *message
	if result.Config == nil {
		result.Config = &a2a.SendMessageConfig{}
	} else {
		configCopy := *result.Config
		result.Config = &configCopy
	}
	if result.Config.AcceptedOutputModes == nil {
		result.Config.AcceptedOutputModes = c.config.AcceptedOutputModes
	}
	if result.Config.Blocking == nil {
		result.Config.Blocking = utils.Ptr(blocking)
	}
	return &result
}

func interceptBefore[Req any, Resp any](ctx context.Context, c *Client, method string, payload Req) (context.Context, interceptBeforeResult[Req, Resp]) {
	params := serviceParamsCloneFrom(ctx)
	params.Append(SvcParamVersion, string(c.protocolVersion))
	req := Request{
		Method:        method,
		BaseURL:       c.baseURL,
		ServiceParams: params,
		Card:          c.card.Load(),
		Payload:       payload,
	}

	var outcome interceptBeforeResult[Req, Resp]

	for i, interceptor := range c.interceptors {
		localCtx, result, err := interceptor.Before(ctx, &req)
		if err != nil || result != nil {
			var typedResult Resp
			if result != nil {
				r, ok := result.(Resp)
				if !ok {
					outcome.earlyErr = fmt.Errorf("result type changed from %T to %T", r, result)
					return ctx, outcome
				}
				typedResult = r
			}
			interceptors := c.interceptors[:i+1]
			resp, err := interceptAfter(ctx, c, interceptors, method, req.ServiceParams, typedResult, err)
			outcome.earlyResponse = &resp
			outcome.earlyErr = err
			return ctx, outcome
		}
		ctx = localCtx
	}

	outcome.params = req.ServiceParams
	if req.Payload == nil {
		return ctx, outcome
	}

	typed, ok := req.Payload.(Req)
	if !ok {
		outcome.earlyErr = fmt.Errorf("payload type changed from %T to %T", payload, req.Payload)
		return ctx, outcome
	}
	outcome.reqOverride = typed
	return ctx, outcome
}

func interceptAfter[T any](ctx context.Context, c *Client, interceptors []CallInterceptor, method string, params ServiceParams, payload T, err error) (T, error) {
	resp := Response{
		BaseURL:       c.baseURL,
		Method:        method,
		ServiceParams: params,
		Payload:       payload,
		Card:          c.card.Load(),
		Err:           err,
	}
	if err != nil {
		resp.Payload = nil
	}

	var zero T
	for i := len(interceptors) - 1; i >= 0; i-- {
		if err := interceptors[i].After(ctx, &resp); err != nil {
			return zero, err
		}
	}

	if resp.Payload == nil {
		return zero, resp.Err
	}

	typed, ok := resp.Payload.(T)
	if !ok {
		return zero, fmt.Errorf("payload type changed from %T to %T", payload, resp.Payload)
	}

	return typed, resp.Err
}

func doCall[Req any, Resp any](
	ctx context.Context, c *Client, method string, req Req,
	transportCall func(context.Context, ServiceParams, Req) (Resp, error),
) (Resp, error) {
	ctx, res := interceptBefore[Req, Resp](ctx, c, method, req)
	if res.earlyErr != nil {
		var zero Resp
		return zero, res.earlyErr
	}
	if res.earlyResponse != nil {
		return *res.earlyResponse, nil
	}
	response, err := transportCall(ctx, res.params, res.reqOverride)
	return interceptAfter(ctx, c, c.interceptors, method, res.params, response, err)
}
