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
	"iter"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

// Transport defines a transport-agnostic interface for making A2A requests.
// Transport implementations are a translation layer between a2a core types and wire formats.
type Transport interface {
	// GetTask calls the 'GetTask' protocol method.
	GetTask(context.Context, ServiceParams, *a2a.GetTaskRequest) (*a2a.Task, error)

	// SendMessage calls the 'SendMessage' protocol method (non-streaming).
	SendMessage(context.Context, ServiceParams, *a2a.SendMessageRequest) (a2a.SendMessageResult, error)

	// SendStreamingMessage calls the 'SendStreamingMessage' protocol method (streaming).
	SendStreamingMessage(context.Context, ServiceParams, *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error]

	// Destroy cleans up resources associated with the transport.
	Destroy() error
}

// TransportFactory creates an A2A protocol connection to the provided URL.
type TransportFactory interface {
	Create(ctx context.Context, card *a2a.AgentCard, iface *a2a.AgentInterface) (Transport, error)
}

// TransportFactoryFn implements TransportFactory.
type TransportFactoryFn func(ctx context.Context, card *a2a.AgentCard, iface *a2a.AgentInterface) (Transport, error)

// Create implements TransportFactory.
func (fn TransportFactoryFn) Create(ctx context.Context, card *a2a.AgentCard, iface *a2a.AgentInterface) (Transport, error) {
	return fn(ctx, card, iface)
}
