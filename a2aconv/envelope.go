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

package a2aconv

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/a2aproject/a2a-taskcli/a2a"
)

// OutputModeText is the only output mode the client accepts.
const OutputModeText = "text"

// ErrAttachment is wrapped by errors caused by a file attachment which could not be read.
// No request is sent when it is returned.
var ErrAttachment = errors.New("attachment failed")

// TurnInput is what the user supplied for one turn.
type TurnInput struct {
	// Text is the message text.
	Text string
	// FilePath is an optional path of a local file to attach. Blank means no attachment.
	FilePath string
}

// Identity correlates a request with the conversation and the task it belongs to.
type Identity struct {
	// ContextID is fixed for the whole session.
	ContextID string
	// TaskID is empty until the agent assigns one.
	TaskID a2a.TaskID
}

// TaskInfo implements [a2a.TaskInfoProvider].
func (id Identity) TaskInfo() a2a.TaskInfo {
	return a2a.TaskInfo{TaskID: id.TaskID, ContextID: id.ContextID}
}

// BuildRequest assembles the request for one turn. The message gets a fresh identifier,
// the identity of the conversation and a text part, followed by the bytes of the attached
// file when one is given. push is attached to the request when non-nil.
func BuildRequest(in TurnInput, id Identity, push *a2a.PushNotificationConfig) (*a2a.SendMessageRequest, error) {
	parts := a2a.ContentParts{a2a.NewTextPart(in.Text)}

	if path := strings.TrimSpace(in.FilePath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAttachment, err)
		}
		part := a2a.NewFilePart(filepath.Base(path), data)
		part.MediaType = mime.TypeByExtension(filepath.Ext(path))
		parts = append(parts, part)
	}

	req := &a2a.SendMessageRequest{
		Message: a2a.NewMessageForTask(a2a.MessageRoleUser, id, parts...),
		Config:  &a2a.SendMessageConfig{AcceptedOutputModes: []string{OutputModeText}},
	}
	if push != nil {
		callback := *push
		req.PushNotification = &callback
	}
	return req, nil
}
