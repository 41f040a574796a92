// Package health provides HTTP health and status handlers for the daemon.
//
// The package exposes three endpoints:
//
//   - /healthz — liveness probe; always returns 200 OK.
//   - /readyz  — readiness probe; returns 200 only when all registered
//     [Checker] functions pass.
//   - /statusz — current dictation status: session state, last partial text,
//     and recent notifications, read from the bridge snapshot.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/voxd/voxd/internal/bridge/memory"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// Checker is a named health check function. The Check function should return
// nil when the dependency is healthy and a non-nil error describing the
// failure otherwise.
type Checker struct {
	// Name is a short, human-readable label for this check (e.g. "asr",
	// "history"). It appears as a key in the JSON response.
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// StatusSource provides the bridge snapshot rendered by /statusz.
type StatusSource func() memory.Snapshot

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// statusEvent is one notification in the /statusz response.
type statusEvent struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// statusResponse is the JSON response body for /statusz.
type statusResponse struct {
	State       string        `json:"state"`
	SessionID   string        `json:"session_id,omitempty"`
	PartialText string        `json:"partial_text,omitempty"`
	Seq         int           `json:"seq"`
	IsFinal     bool          `json:"is_final"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Events      []statusEvent `json:"events,omitempty"`
}

// Handler serves /healthz, /readyz, and /statusz endpoints. It is safe for
// concurrent use; the checker list is fixed at construction time.
type Handler struct {
	status   StatusSource // nil disables /statusz
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers on each /readyz
// request. The checkers are evaluated sequentially in the order provided.
// status may be nil, in which case /statusz is not registered.
func New(status StatusSource, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{status: status, checkers: c}
}

// Healthz is a liveness probe that always returns 200 OK. A running process
// that can serve HTTP is considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz is a readiness probe that returns 200 only when every registered
// [Checker] passes. Each checker is given a context with a [checkTimeout]
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Statusz renders the current bridge snapshot: session state, last partial,
// and recent notifications. The state is "idle" before the first session.
func (h *Handler) Statusz(w http.ResponseWriter, _ *http.Request) {
	snap := h.status()

	res := statusResponse{
		State:       snap.State,
		SessionID:   snap.SessionID,
		PartialText: snap.PartialText,
		Seq:         snap.Seq,
		IsFinal:     snap.IsFinal,
		UpdatedAt:   snap.UpdatedAt,
	}
	if res.State == "" {
		res.State = "idle"
	}
	for _, e := range snap.Events {
		res.Events = append(res.Events, statusEvent{
			Kind:      e.Kind,
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, res)
}

// Register adds the /healthz, /readyz, and /statusz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if h.status != nil {
		mux.HandleFunc("GET /statusz", h.Statusz)
	}
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
