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

import "errors"

// ErrTransport is wrapped by errors caused by the network or by a non-200 HTTP
// status, as opposed to errors reported by the agent in a JSON-RPC error object.
// A dropped connection during streaming is also reported with it.
var ErrTransport = errors.New("transport failure")
