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

// PushAuthSchemeBearer is the scheme under which the agent signs push notifications with a JWT.
const PushAuthSchemeBearer = "bearer"

// PushNotificationConfig defines the callback an agent should call with task updates.
type PushNotificationConfig struct {
	// ID is an optional unique ID for the push notification configuration.
	ID string `json:"id,omitempty"`

	// Authentication is an optional description of how the agent must authenticate
	// when calling the notification URL.
	Authentication *PushAuthInfo `json:"authentication,omitempty"`

	// Token is an optional unique token for this task or session to validate incoming push notifications.
	Token string `json:"token,omitempty"`

	// URL is the callback URL where the agent should send push notifications.
	URL string `json:"url"`
}

// PushAuthInfo defines authentication details for a push notification endpoint.
type PushAuthInfo struct {
	// Credentials is an optional credentials required by the push notification endpoint.
	Credentials string `json:"credentials,omitempty"`

	// Schemes are the supported authentication schemes (e.g. "bearer").
	Schemes []string `json:"schemes"`
}
