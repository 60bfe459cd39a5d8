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

package a2a

// AgentCapabilities define optional capabilities supported by an agent.
type AgentCapabilities struct {
	// PushNotifications indicates if the agent supports sending push notifications for asynchronous task updates.
	PushNotifications bool `json:"pushNotifications,omitempty"`

	// Streaming indicates if the agent supports streaming responses.
	Streaming bool `json:"streaming,omitempty"`

	// StateTransitionHistory is set by agents which keep the status history of a task.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentCard is a self-describing manifest for an agent. The client reads it once at
// startup to learn where the agent listens and whether it can stream.
type AgentCard struct {
	// SupportedInterfaces is a list of supported transport, protocol and URL combinations.
	SupportedInterfaces []*AgentInterface `json:"supportedInterfaces,omitempty"`

	// URL is the endpoint advertised by cards which predate SupportedInterfaces.
	URL string `json:"url,omitempty"`

	// PreferredTransport accompanies URL on cards which predate SupportedInterfaces.
	PreferredTransport TransportProtocol `json:"preferredTransport,omitempty"`

	// ProtocolVersion accompanies URL on cards which predate SupportedInterfaces.
	ProtocolVersion ProtocolVersion `json:"protocolVersion,omitempty"`

	// Capabilities is a declaration of optional capabilities supported by the agent.
	Capabilities AgentCapabilities `json:"capabilities"`

	// DefaultInputModes a default set of supported input MIME types for all skills.
	DefaultInputModes []string `json:"defaultInputModes"`

	// DefaultOutputModes is a default set of supported output MIME types for all skills.
	DefaultOutputModes []string `json:"defaultOutputModes"`

	// Description is a human-readable description of the agent.
	Description string `json:"description"`

	// DocumentationURL is an optional URL to the agent's documentation.
	DocumentationURL string `json:"documentationUrl,omitempty"`

	// Name is a human-readable name for the agent.
	Name string `json:"name"`

	// Provider contains information about the agent's service provider.
	Provider *AgentProvider `json:"provider,omitempty"`

	// Skills is the set of skills, or distinct capabilities, that the agent can perform.
	Skills []AgentSkill `json:"skills"`

	// Version is the agent's own version number. The format is defined by the provider.
	Version string `json:"version"`
}

// Interfaces returns the interfaces declared by the card. A card carrying only the
// legacy URL field is presented as a single interface.
func (c *AgentCard) Interfaces() []*AgentInterface {
	if len(c.SupportedInterfaces) > 0 || c.URL == "" {
		return c.SupportedInterfaces
	}
	binding := c.PreferredTransport
	if binding == "" {
		binding = TransportProtocolJSONRPC
	}
	return []*AgentInterface{{URL: c.URL, ProtocolBinding: binding, ProtocolVersion: c.ProtocolVersion}}
}

// AgentInterface declares a combination of a target URL and a transport protocol for interacting
// with the agent.
type AgentInterface struct {
	// URL is the URL where this interface is available.
	URL string `json:"url"`

	// ProtocolBinding is the protocol binding supported at this URL.
	ProtocolBinding TransportProtocol `json:"protocolBinding"`

	// ProtocolVersion is the version of the A2A protocol this interface exposes.
	ProtocolVersion ProtocolVersion `json:"protocolVersion"`
}

// NewAgentInterface creates a new [AgentInterface] with the provided URL and protocol binding.
func NewAgentInterface(url string, protocolBinding TransportProtocol) *AgentInterface {
	return &AgentInterface{URL: url, ProtocolBinding: protocolBinding, ProtocolVersion: Version}
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	// Org is the name of the agent provider's organization.
	Org string `json:"organization"`

	// URL is a URL for the agent provider's website or relevant documentation.
	URL string `json:"url"`
}

// AgentSkill represents a distinct capability or function that an agent can perform.
type AgentSkill struct {
	// Description is a detailed description of the skill.
	Description string `json:"description"`

	// Examples are prompts or scenarios that this skill can handle.
	Examples []string `json:"examples,omitempty"`

	// ID is a unique identifier for the agent's skill.
	ID string `json:"id"`

	// Name is a human-readable name for the skill.
	Name string `json:"name"`

	// Tags is a set of keywords describing the skill's capabilities.
	Tags []string `json:"tags"`
}

// TransportProtocol represents a transport protocol which a client and an agent can use
// for communication. Custom protocols are allowed and the type MUST NOT be treated as an enum.
type TransportProtocol string

const (
	// TransportProtocolJSONRPC defines the JSON-RPC transport protocol.
	TransportProtocolJSONRPC TransportProtocol = "JSONRPC"
	// TransportProtocolGRPC defines the gRPC transport protocol.
	TransportProtocolGRPC TransportProtocol = "GRPC"
	// TransportProtocolHTTPJSON defines the HTTP+JSON transport protocol.
	TransportProtocolHTTPJSON TransportProtocol = "HTTP+JSON"
)
