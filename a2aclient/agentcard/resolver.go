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

// Package agentcard fetches the self-describing manifest an A2A agent publishes.
package agentcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/log"
)

const (
	defaultAgentCardPath = "/.well-known/agent-card.json"
	legacyAgentCardPath  = "/.well-known/agent.json"
)

// DefaultResolver is a [Resolver] using a client with a 30 second timeout.
var DefaultResolver = NewResolver(&http.Client{Timeout: 30 * time.Second})

// ErrStatusNotOK is returned when the card endpoint answers with a non-200 status.
type ErrStatusNotOK struct {
	StatusCode int
	Status     string
}

func (e *ErrStatusNotOK) Error() string {
	return fmt.Sprintf("agent card request failed: %s", e.Status)
}

// Resolver fetches agent cards over HTTP. The zero value uses [http.DefaultClient].
type Resolver struct {
	Client *http.Client
}

// NewResolver creates a [Resolver] using the provided client.
func NewResolver(client *http.Client) *Resolver {
	return &Resolver{Client: client}
}

type resolveRequest struct {
	path    string
	headers http.Header
}

// ResolveOption customizes a single Resolve call.
type ResolveOption func(*resolveRequest)

// WithPath overrides the well-known path the card is read from.
func WithPath(path string) ResolveOption {
	return func(r *resolveRequest) {
		r.path = path
	}
}

// WithRequestHeader adds a header to the card request.
func WithRequestHeader(name, value string) ResolveOption {
	return func(r *resolveRequest) {
		r.headers.Add(name, value)
	}
}

// Resolve fetches the agent card published under baseURL. When no path is given the
// current well-known location is tried first and the legacy one after a 404.
func (r *Resolver) Resolve(ctx context.Context, baseURL string, opts ...ResolveOption) (*a2a.AgentCard, error) {
	req := &resolveRequest{headers: make(http.Header)}
	for _, o := range opts {
		o(req)
	}

	if req.path != "" {
		return r.fetch(ctx, baseURL, req.path, req.headers)
	}

	card, err := r.fetch(ctx, baseURL, defaultAgentCardPath, req.headers)
	var statusErr *ErrStatusNotOK
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		log.Debug(ctx, "agent card not found, trying legacy path", "path", legacyAgentCardPath)
		legacy, legacyErr := r.fetch(ctx, baseURL, legacyAgentCardPath, req.headers)
		if legacyErr == nil {
			return legacy, nil
		}
	}
	return card, err
}

func (r *Resolver) fetch(ctx context.Context, baseURL, path string, headers http.Header) (*a2a.AgentCard, error) {
	cardURL, err := url.JoinPath(baseURL, strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid agent card url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent card request: %w", err)
	}
	for k, vals := range headers {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent card request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close agent card response body", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrStatusNotOK{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}
