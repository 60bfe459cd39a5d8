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
	"slices"
	"strings"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

// SvcParamVersion is the service parameter carrying the protocol version the client speaks.
const SvcParamVersion = "A2A-Version"

// ServiceParams holds horizontally applicable context or parameters with case-insensitive keys.
// The JSON-RPC transport sends them as HTTP headers.
type ServiceParams map[string][]string

// Get performs case-insensitive lookup or the provided key. Returns nil if value is not present.
func (m ServiceParams) Get(key string) []string {
	return m[strings.ToLower(key)]
}

// Append appends the provided values to the list of values associated with the key.
// Duplicates values will not be added. Key matching is case-insensitive.
func (m ServiceParams) Append(key string, vals ...string) {
	result := m.Get(key)
	for _, v := range vals {
		if slices.Contains(result, v) {
			continue
		}
		result = append(result, v)
	}
	m[strings.ToLower(key)] = result
}

func (m ServiceParams) clone() ServiceParams {
	if m == nil {
		return nil
	}
	c := make(ServiceParams, len(m))
	for k, v := range m {
		c[k] = slices.Clone(v)
	}
	return c
}

// Request represents a transport-agnostic request to be sent to A2A server.
type Request struct {
	// Method is the name of the method invoked on the A2A-server.
	Method string
	// BaseURL is the URL of the agent interface to which the Client is connected.
	BaseURL string
	// ServiceParams holds horizontally applicable context or parameters with case-insensitive keys.
	ServiceParams ServiceParams
	// Card is the AgentCard of the agent the client is connected to. Might be nil.
	Card *a2a.AgentCard
	// Payload is the request payload, one of a2a package request types.
	Payload any
}

// Response represents a transport-agnostic result received from A2A server.
type Response struct {
	// Method is the name of the method invoked on the A2A-server.
	Method string
	// BaseURL is the URL of the agent interface to which the Client is connected.
	BaseURL string
	// Err is the error response. It is nil for successful invocations.
	Err error
	// ServiceParams holds horizontally applicable context or parameters with case-insensitive keys.
	ServiceParams ServiceParams
	// Card is the AgentCard of the agent the client is connected to. Might be nil.
	Card *a2a.AgentCard
	// Payload is the response. It is nil if Err was returned.
	Payload any
}

// CallInterceptor can be attached to a [Client].
// If multiple interceptors are added:
//   - Before will be executed in the order of attachment sequentially.
//   - After will be executed in the reverse order sequentially.
type CallInterceptor interface {
	// Before allows to observe, modify or reject a Request.
	// A new context.Context can be returned to pass information to After.
	// If either the result (2nd return value) or the error (3rd return value) is non nil,
	// the network request will not be made and the value will be returned to the caller.
	Before(ctx context.Context, req *Request) (context.Context, any, error)

	// After allows to observe, modify or reject a Response.
	After(ctx context.Context, resp *Response) error
}

type serviceParamsKeyType struct{}

// AttachServiceParams creates a new context with service parameters attached to it.
// [CallInterceptor]-s will be able to modify params before they are passed to the [Transport].
func AttachServiceParams(ctx context.Context, params ServiceParams) context.Context {
	existing := serviceParamsCloneFrom(ctx)
	for k, values := range params {
		existing.Append(k, values...)
	}
	return context.WithValue(ctx, serviceParamsKeyType{}, existing)
}

func serviceParamsCloneFrom(ctx context.Context) ServiceParams {
	params, ok := ctx.Value(serviceParamsKeyType{}).(ServiceParams)
	if !ok {
		return make(ServiceParams)
	}
	return params.clone()
}

// PassthroughInterceptor can be used by [CallInterceptor] implementers who don't need all methods.
// The struct can be embedded for providing a no-op implementation.
type PassthroughInterceptor struct{}

var _ CallInterceptor = (*PassthroughInterceptor)(nil)

// Before implements the [CallInterceptor].
func (PassthroughInterceptor) Before(ctx context.Context, req *Request) (context.Context, any, error) {
	return ctx, nil, nil
}

// After implements the [CallInterceptor].
func (PassthroughInterceptor) After(ctx context.Context, resp *Response) error {
	return nil
}

// HeaderInterceptor adds a fixed set of headers to every call.
type HeaderInterceptor struct {
	PassthroughInterceptor

	headers ServiceParams
}

var _ CallInterceptor = (*HeaderInterceptor)(nil)

// NewHeaderInterceptor creates a [HeaderInterceptor] sending the provided headers.
func NewHeaderInterceptor(headers map[string]string) *HeaderInterceptor {
	params := make(ServiceParams, len(headers))
	for k, v := range headers {
		params.Append(k, v)
	}
	return &HeaderInterceptor{headers: params}
}

// Before implements the [CallInterceptor].
func (hi *HeaderInterceptor) Before(ctx context.Context, req *Request) (context.Context, any, error) {
	if req.ServiceParams == nil {
		req.ServiceParams = make(ServiceParams, len(hi.headers))
	}
	for k, vals := range hi.headers {
		req.ServiceParams.Append(k, vals...)
	}
	return ctx, nil, nil
}
