// Copyright (c) 2026 John Earle
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

package addon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bcem/passzip/internal/card"
)

// maxEventBytes caps the size of a trigger body.
const maxEventBytes = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// HandlerConfig holds the dependencies of a Handler.
type HandlerConfig struct {
	Dispatcher *Dispatcher

	// Validator checks Google-signed ID tokens. Requests are verified only
	// when both Validator and Audience are set.
	Validator TokenValidator
	Audience  string

	// HealthChecks are run by GET /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// Handler serves the add-on's HTTP endpoints.
type Handler struct {
	dispatcher *Dispatcher
	validator  TokenValidator
	audience   string
	checks     map[string]HealthCheck
}

// NewHandler creates an add-on handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dispatcher: cfg.Dispatcher,
		validator:  cfg.Validator,
		audience:   cfg.Audience,
		checks:     cfg.HealthChecks,
	}
}

// Routes returns a mux with all add-on endpoints registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /homepage", h.ServeHomepage)
	mux.HandleFunc("POST /message", h.ServeMessage)
	mux.HandleFunc("GET /health", h.ServeHealth)
	return mux
}

// ServeHomepage handles the homepage trigger.
func (h *Handler) ServeHomepage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}
	writeCard(w, h.dispatcher.OnHomepageOpen())
}

// ServeMessage handles the contextual trigger fired when a message is opened.
func (h *Handler) ServeMessage(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var ev Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		slog.Warn("invalid event body", "error", err)
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	ctx = withUser(ctx, h.userEmail(ctx, &ev))

	c, err := h.dispatcher.OnMessageOpen(ctx, &ev)
	if err != nil {
		// The host shows its generic error card.
		slog.Error("message trigger failed",
			"message_id", ev.MessageID(),
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeCard(w, c)
}

// ServeHealth runs the configured health checks.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			slog.Warn("health check failed", "dependency", name, "error", err)
			http.Error(w, name+" unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// authenticate verifies the request's bearer token when verification is
// configured. It writes a 401 and returns false on failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	ctx := r.Context()
	if !h.verifying() {
		return ctx, true
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return ctx, false
	}
	if _, err := h.validator.Validate(ctx, token, h.audience); err != nil {
		slog.Warn("rejected add-on request", "path", r.URL.Path, "error", err)
		http.Error(w, "invalid bearer token", http.StatusUnauthorized)
		return ctx, false
	}
	return ctx, true
}

// userEmail returns the invoking user's email from the event's user ID
// token. It is best-effort and only used for the audit trail.
func (h *Handler) userEmail(ctx context.Context, ev *Event) string {
	token := ev.AuthorizationEventObject.UserIDToken
	if !h.verifying() || token == "" {
		return ""
	}
	payload, err := h.validator.Validate(ctx, token, "")
	if err != nil {
		slog.Debug("user id token not usable", "error", err)
		return ""
	}
	email, _ := payload.Claims["email"].(string)
	return email
}

func (h *Handler) verifying() bool {
	return h.validator != nil && h.audience != ""
}

func writeCard(w http.ResponseWriter, c *card.Card) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(card.NewPushCardResponse(c)); err != nil {
		slog.Error("failed to write card response", "error", err)
	}
}
