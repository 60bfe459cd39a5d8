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

// Command a2acli is an interactive console client for A2A agents. It resolves the card of
// the agent, then sends every line the user types as a message and prints what the agent
// answers, continuing a task for as long as the agent asks for more input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/a2aclient"
	"github.com/a2aproject/a2a-taskcli/a2aclient/agentcard"
	"github.com/a2aproject/a2a-taskcli/a2aconv"
	"github.com/a2aproject/a2a-taskcli/a2apush"
	"github.com/a2aproject/a2a-taskcli/journal"
	"github.com/a2aproject/a2a-taskcli/log"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/errgroup"
)

// CLI is the command line of a2acli.
type CLI struct {
	Agent                    string        `help:"Base URL of the agent." default:"http://localhost:10000" env:"A2A_AGENT_URL"`
	Session                  string        `help:"Context ID to continue. 0 starts a new context." default:"0" env:"A2A_SESSION"`
	History                  bool          `help:"Print the last messages of a task once it is done." env:"A2A_HISTORY"`
	UsePushNotifications     bool          `name:"use-push-notifications" help:"Ask the agent to push task updates to a local listener." env:"A2A_USE_PUSH"`
	PushNotificationReceiver string        `name:"push-notification-receiver" help:"URL the push notification listener is reachable at." default:"http://localhost:5000" env:"A2A_PUSH_RECEIVER"`
	Header                   []string      `help:"Header sent with every request, as key=value. Repeatable." sep:"none" placeholder:"KEY=VALUE"`
	Timeout                  time.Duration `help:"Timeout of a single request to the agent." default:"30s" env:"A2A_TIMEOUT"`
	LogLevel                 string        `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error" env:"A2A_LOG_LEVEL"`
	JournalDriver            string        `name:"journal-driver" help:"Record turns using this database driver (mysql, sqlite3)." env:"A2A_JOURNAL_DRIVER"`
	JournalDSN               string        `name:"journal-dsn" help:"Data source name of the journal database." env:"A2A_JOURNAL_DSN"`
}

// Validate is called by kong after parsing.
func (c *CLI) Validate() error {
	if _, err := parseHeaders(c.Header); err != nil {
		return err
	}
	if c.JournalDriver != "" && c.JournalDSN == "" {
		return fmt.Errorf("--journal-dsn is required with --journal-driver")
	}
	return nil
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		log.Warn(context.Background(), "ignoring malformed .env file", "error", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("a2acli"),
		kong.Description("Interactive console client for A2A agents."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prompter, err := newReadlinePrompter(historyFile())
	kctx.FatalIfErrorf(err)
	defer func() { _ = prompter.Close() }()

	kctx.FatalIfErrorf(run(ctx, &cli, prompter, os.Stdout, os.Stderr))
}

// loadDotEnv loads environment defaults from the provided files. Missing files are not an error.
func loadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".a2acli-history")
}

func run(ctx context.Context, cli *CLI, prompter a2aconv.Prompter, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(cli.LogLevel)}))
	ctx = log.AttachLogger(ctx, logger)

	headers, err := parseHeaders(cli.Header)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: cli.Timeout}
	printer := newPrinter(stdout)

	var resolveOpts []agentcard.ResolveOption
	for name, value := range headers {
		resolveOpts = append(resolveOpts, agentcard.WithRequestHeader(name, value))
	}
	card, err := agentcard.NewResolver(httpClient).Resolve(ctx, cli.Agent, resolveOpts...)
	if err != nil {
		return fmt.Errorf("failed to resolve agent card: %w", err)
	}
	printer.Card(card)

	client, err := a2aclient.NewFromCard(ctx, card,
		a2aclient.WithJSONRPCTransport(httpClient),
		a2aclient.WithCallInterceptors(a2aclient.NewHeaderInterceptor(headers)),
	)
	if err != nil {
		return fmt.Errorf("failed to create a client: %w", err)
	}
	defer func() {
		if err := client.Destroy(); err != nil {
			log.Error(ctx, "failed to destroy client", err)
		}
	}()

	cfg := a2aconv.LoopConfig{
		ContextID:   sessionContextID(cli.Session),
		Streaming:   card.Capabilities.Streaming,
		ShowHistory: cli.History,
	}
	log.Info(ctx, "session started", "context_id", cfg.ContextID, "streaming", cfg.Streaming)

	var store *journal.Store
	if cli.JournalDriver != "" {
		store, err = journal.Open(ctx, cli.JournalDriver, cli.JournalDSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error(ctx, "failed to close journal", err)
			}
		}()
		cfg.Journal = store
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	if cli.UsePushNotifications {
		receiver, err := a2apush.ParseReceiver(cli.PushNotificationReceiver)
		if err != nil {
			return err
		}
		keys, err := a2apush.ResolveKeys(ctx, cli.Agent, jwk.WithHTTPClient(httpClient))
		if err != nil {
			return err
		}
		cfg.PushNotification = receiver.CallbackConfig()
		listener := a2apush.NewListener(receiver, a2apush.NewVerifier(keys), printer.Notification)
		group.Go(func() error { return listener.Run(groupCtx) })
	}

	group.Go(func() error {
		defer cancel()
		return a2aconv.NewLoop(client, prompter, printer, cfg).Run(groupCtx)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if store != nil {
		summary, err := store.Summarize(context.WithoutCancel(ctx), cfg.ContextID)
		if err != nil {
			log.Error(ctx, "failed to summarize journal", err)
			return nil
		}
		printer.Summary(cfg.ContextID, summary)
	}
	return nil
}

func sessionContextID(session string) string {
	session = strings.TrimSpace(session)
	if session == "" || session == "0" {
		return a2a.NewContextID()
	}
	return session
}

func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want key=value", pair)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
