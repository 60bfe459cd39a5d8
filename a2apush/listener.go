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

package a2apush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-taskcli/a2a"
	"github.com/a2aproject/a2a-taskcli/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxNotificationSize = 10 * 1024 * 1024
	shutdownTimeout     = 5 * time.Second
)

// NotificationHandler is called with every verified notification.
type NotificationHandler func(ctx context.Context, event a2a.Event)

// Listener serves the webhook the agent sends notifications to.
type Listener struct {
	addr     string
	verifier *Verifier
	handler  NotificationHandler
}

// NewListener creates a Listener for the receiver address.
func NewListener(receiver Receiver, verifier *Verifier, handler NotificationHandler) *Listener {
	return &Listener{addr: receiver.Addr(), verifier: verifier, handler: handler}
}

// Handler returns the HTTP handler of the webhook.
func (l *Listener) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(NotifyPath, l.handleValidation)
	r.Post(NotifyPath, l.handleNotification)
	return r
}

// Run serves the webhook until ctx is canceled and then shuts the server down.
func (l *Listener) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}
	return l.Serve(ctx, lis)
}

// Serve is like Run but accepts connections on the provided listener.
func (l *Listener) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "push notification listener started", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down push notification listener: %w", err)
		}
		return nil
	}
}

func (l *Listener) handleValidation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("validationToken")
	if token == "" {
		http.Error(w, "missing validationToken", http.StatusBadRequest)
		return
	}
	log.Debug(r.Context(), "push notification endpoint validated")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, token)
}

func (l *Listener) handleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := l.verifier.Verify(r.Header, body); err != nil {
		log.Warn(ctx, "rejected push notification", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := decodeNotification(body)
	if err != nil {
		log.Warn(ctx, "failed to decode push notification", "error", err)
		http.Error(w, "invalid notification", http.StatusBadRequest)
		return
	}
	l.handler(ctx, event)
	w.WriteHeader(http.StatusOK)
}

// decodeNotification accepts any stream response shape and a bare task object.
func decodeNotification(body []byte) (a2a.Event, error) {
	var sr a2a.StreamResponse
	srErr := json.Unmarshal(body, &sr)
	if srErr == nil {
		return sr.Event, nil
	}

	var task a2a.Task
	if err := json.Unmarshal(body, &task); err != nil || task.ID == "" {
		return nil, srErr
	}
	return &task, nil
}
