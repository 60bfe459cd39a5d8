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
	"fmt"
	"slices"
	"strings"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/log"

	"golang.org/x/mod/semver"
)

// Factory provides an API for creating a [Client] compatible with requested transports.
// Factory is immutable, but the configuration can be extended using [WithAdditionalOptions] call.
type Factory struct {
	config       Config
	interceptors []CallInterceptor
	transports   map[a2a.TransportProtocol]TransportFactory
}

// transportCandidate represents an Agent endpoint with the protocol supported by the Client
// and is used during the best compatible transport selection.
type transportCandidate struct {
	factory  TransportFactory
	endpoint *a2a.AgentInterface
	// priority is determined by the index of endpoint.ProtocolBinding in Config.PreferredTransports
	// or is set to len(Config.PreferredTransports) if the binding is not present in the config
	priority int
}

// defaultOptions is a set of default configurations applied to every Factory unless WithDefaultsDisabled was used.
var defaultOptions = []FactoryOption{WithJSONRPCTransport(nil)}

// NewFromCard is a client [Client] constructor method which takes an [a2a.AgentCard] as input.
// It is equivalent to [Factory].CreateFromCard method.
func NewFromCard(ctx context.Context, card *a2a.AgentCard, opts ...FactoryOption) (*Client, error) {
	return NewFactory(opts...).CreateFromCard(ctx, card)
}

// CreateFromCard returns a [Client] configured to communicate with the agent described by
// the provided [a2a.AgentCard]. Interfaces are tried in the order declared by the card unless
// [Config].PreferredTransports says otherwise.
//
// The method fails if we couldn't establish a compatible transport.
func (f *Factory) CreateFromCard(ctx context.Context, card *a2a.AgentCard) (*Client, error) {
	interfaces := card.Interfaces()
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("agent card has no supported interfaces")
	}
	client, err := f.create(ctx, interfaces, card)
	if err != nil {
		return nil, err
	}
	client.card.Store(card)
	return client, nil
}

func (f *Factory) create(ctx context.Context, endpoints []*a2a.AgentInterface, card *a2a.AgentCard) (*Client, error) {
	candidates, err := f.selectTransport(endpoints)
	if err != nil {
		return nil, err
	}

	conn, selected, err := createTransport(ctx, candidates, card)
	if err != nil {
		return nil, fmt.Errorf("failed to open a connection: %w", err)
	}

	version := selected.endpoint.ProtocolVersion
	if version == "" {
		version = a2a.Version
	}
	if !compatibleVersion(version) {
		log.Warn(ctx, "agent protocol version differs from the client version", "agent", version, "client", a2a.Version)
	}

	return &Client{
		config:          f.config,
		transport:       conn,
		interceptors:    f.interceptors,
		protocolVersion: version,
		baseURL:         selected.endpoint.URL,
	}, nil
}

// compatibleVersion reports whether the major version of v matches the client's.
func compatibleVersion(v a2a.ProtocolVersion) bool {
	return semver.Major(toSemver(v)) == semver.Major(toSemver(a2a.Version))
}

func toSemver(v a2a.ProtocolVersion) string {
	if strings.HasPrefix(string(v), "v") {
		return string(v)
	}
	return "v" + string(v)
}

// createTransport attempts to connect using the provided transports, returning the first
// one that succeeds. If all transports fail, it returns an error.
func createTransport(ctx context.Context, candidates []transportCandidate, card *a2a.AgentCard) (Transport, *transportCandidate, error) {
	var failures []error
	for _, tc := range candidates {
		conn, err := tc.factory.Create(ctx, card, tc.endpoint)
		if err == nil {
			if len(failures) > 0 {
				log.Info(ctx, "some transports failed to connect", "failures", failures)
			}
			return conn, &tc, nil
		}
		failures = append(failures, fmt.Errorf("failed to connect to %s: %w", tc.endpoint.URL, err))
	}
	if len(failures) == 0 {
		return nil, nil, fmt.Errorf("empty list of transport candidates was provided")
	}
	return nil, nil, errors.Join(failures...)
}

// selectTransport filters the list of available endpoints leaving only those with
// compatible transport protocols. If config.PreferredTransports is set the result is ordered
// based on the provided client preferences.
func (f *Factory) selectTransport(available []*a2a.AgentInterface) ([]transportCandidate, error) {
	candidates := make([]transportCandidate, 0, len(available))

	for _, opt := range available {
		factory, ok := f.transports[opt.ProtocolBinding]
		if !ok {
			continue
		}
		priority := len(f.config.PreferredTransports)
		if idx := slices.Index(f.config.PreferredTransports, opt.ProtocolBinding); idx >= 0 {
			priority = idx
		}
		candidates = append(candidates, transportCandidate{factory: factory, endpoint: opt, priority: priority})
	}

	if len(candidates) == 0 {
		protocols := make([]string, len(available))
		for i, a := range available {
			protocols[i] = string(a.ProtocolBinding)
		}
		return nil, fmt.Errorf("no compatible transports found: available transports - [%s]", strings.Join(protocols, ","))
	}

	slices.SortStableFunc(candidates, func(c1, c2 transportCandidate) int {
		return c1.priority - c2.priority
	})

	return candidates, nil
}

// FactoryOption represents a configuration for creating a [Client].
type FactoryOption interface {
	apply(f *Factory)
}

type factoryOptionFn func(f *Factory)

func (f factoryOptionFn) apply(factory *Factory) {
	f(factory)
}

// WithConfig configures [Client] with the provided [Config].
func WithConfig(c Config) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.config = c
	})
}

// WithTransport uses the provided factory during connection establishment for the specified transport binding.
func WithTransport(protocol a2a.TransportProtocol, factory TransportFactory) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.transports[protocol] = factory
	})
}

// WithCallInterceptors attaches call interceptors to created [Client]s.
func WithCallInterceptors(interceptors ...CallInterceptor) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.interceptors = append(f.interceptors, interceptors...)
	})
}

// defaultsDisabledOpt is a marker for creating a Factory without any defaults set.
type defaultsDisabledOpt struct{}

func (defaultsDisabledOpt) apply(f *Factory) {}

// WithDefaultsDisabled creates a Factory without the default JSON-RPC transport.
func WithDefaultsDisabled() FactoryOption {
	return defaultsDisabledOpt{}
}

// NewFactory creates a new Factory applying the provided configurations.
func NewFactory(options ...FactoryOption) *Factory {
	f := &Factory{
		transports:   make(map[a2a.TransportProtocol]TransportFactory),
		interceptors: make([]CallInterceptor, 0),
	}

	applyDefaults := true
	for _, o := range options {
		if _, ok := o.(defaultsDisabledOpt); ok {
			applyDefaults = false
			break
		}
	}

	if applyDefaults {
		for _, o := range defaultOptions {
			o.apply(f)
		}
	}

	for _, o := range options {
		o.apply(f)
	}

	return f
}

// WithAdditionalOptions creates a new Factory with the additionally provided options.
func WithAdditionalOptions(f *Factory, opts ...FactoryOption) *Factory {
	options := []FactoryOption{
		WithDefaultsDisabled(),
		WithConfig(f.config),
		WithCallInterceptors(f.interceptors...),
	}
	for k, v := range f.transports {
		options = append(options, WithTransport(k, v))
	}
	return NewFactory(append(options, opts...)...)
}
