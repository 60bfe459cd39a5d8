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

// Package a2apush receives push notifications an agent sends about the tasks of a session.
// It advertises a callback to the agent, verifies the signed webhook calls the agent makes
// and hands the decoded task updates to a handler.
package a2apush

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

// NotifyPath is the path the agent calls with notifications.
const NotifyPath = "/notify"

// Receiver is the address the notification listener is reachable at.
type Receiver struct {
	Host string
	Port int
}

// ParseReceiver parses the URL of the notification receiver. The port defaults to the one
// of the scheme when the URL does not specify it.
func ParseReceiver(rawURL string) (Receiver, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Receiver{}, fmt.Errorf("invalid receiver URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return Receiver{}, fmt.Errorf("receiver URL %q has no host", rawURL)
	}

	portStr := u.Port()
	if portStr == "" {
		switch u.Scheme {
		case "http":
			portStr = "80"
		case "https":
			portStr = "443"
		default:
			return Receiver{}, fmt.Errorf("receiver URL %q has no port and an unknown scheme", rawURL)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Receiver{}, fmt.Errorf("receiver URL %q has an invalid port", rawURL)
	}
	return Receiver{Host: host, Port: port}, nil
}

// Addr returns the host:port pair to listen on.
func (r Receiver) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// CallbackConfig returns the push notification config attached to outgoing requests.
func (r Receiver) CallbackConfig() *a2a.PushNotificationConfig {
	return &a2a.PushNotificationConfig{
		URL:            "http://" + r.Addr() + NotifyPath,
		Authentication: &a2a.PushAuthInfo{Schemes: []string{a2a.PushAuthSchemeBearer}},
	}
}
