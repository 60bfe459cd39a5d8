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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a2aproject/a2a-taskcli/a2aconv"
	"github.com/chzyer/readline"
)

type readlinePrompter struct {
	rl *readline.Instance
}

var _ a2aconv.Prompter = (*readlinePrompter)(nil)

func newReadlinePrompter(historyFile string) (*readlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &readlinePrompter{rl: rl}, nil
}

// Prompt prints the label and reads one line. Ctrl+C and Ctrl+D end the session.
func (p *readlinePrompter) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stop := context.AfterFunc(ctx, func() { _ = p.rl.Close() })
	defer stop()

	_, _ = fmt.Fprintln(p.rl.Stdout(), label)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}
