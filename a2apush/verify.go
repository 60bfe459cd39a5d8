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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	jwksPath = "/.well-known/jwks.json"

	// BodyHashClaim carries the hex SHA-256 of the canonical JSON of the notification body.
	BodyHashClaim = "request_body_sha256"

	maxTokenAge = 5 * time.Minute
)

var (
	// ErrMissingToken is returned when a notification carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrStaleToken is returned when the token was issued too long ago.
	ErrStaleToken = errors.New("token expired")
	// ErrBodyMismatch is returned when the body hash claim does not match the received body.
	ErrBodyMismatch = errors.New("request body hash mismatch")
)

// ResolveKeys fetches the key set the agent signs notifications with.
func ResolveKeys(ctx context.Context, agentURL string, opts ...jwk.FetchOption) (jwk.Set, error) {
	jwksURL, err := url.JoinPath(agentURL, jwksPath)
	if err != nil {
		return nil, fmt.Errorf("invalid agent URL: %w", err)
	}
	set, err := jwk.Fetch(ctx, jwksURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}
	return set, nil
}

// Verifier authenticates notification calls made by the agent.
type Verifier struct {
	keys jwk.Set
	now  func() time.Time
}

// NewVerifier creates a Verifier checking signatures against the provided keys.
func NewVerifier(keys jwk.Set) *Verifier {
	return &Verifier{keys: keys, now: time.Now}
}

// Verify checks the Authorization header of a notification and the integrity of its body.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	raw, ok := strings.CutPrefix(header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return ErrMissingToken
	}

	token, err := jwt.Parse(
		[]byte(strings.TrimSpace(raw)),
		jwt.WithKeySet(v.keys, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	issuedAt := token.IssuedAt()
	if issuedAt.IsZero() {
		return fmt.Errorf("%w: iat claim is required", ErrInvalidToken)
	}
	if v.now().Sub(issuedAt) > maxTokenAge {
		return ErrStaleToken
	}

	claim, ok := token.Get(BodyHashClaim)
	if !ok {
		return fmt.Errorf("%w: %s claim is required", ErrInvalidToken, BodyHashClaim)
	}
	want, ok := claim.(string)
	if !ok {
		return fmt.Errorf("%w: %s claim is not a string", ErrInvalidToken, BodyHashClaim)
	}
	got, err := BodyHash(body)
	if err != nil {
		return err
	}
	if got != want {
		return ErrBodyMismatch
	}
	return nil
}

// BodyHash returns the hex SHA-256 of the canonical JSON encoding of body: keys sorted,
// no insignificant whitespace and no HTML escaping.
func BodyHash(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("notification body is not valid JSON: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("failed to canonicalize notification body: %w", err)
	}
	sum := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:]), nil
}
