package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/eugenenazirov/minimee/internal/settings"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	sessionContextKey   contextKey = "sessionID"
)

// Resolver produces the settings store for a session.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) settings.Resolution
}

// SessionEnder discards everything cached for a session.
type SessionEnder interface {
	EndSession(sessionID string)
}

// Handler exposes resolved settings over HTTP.
type Handler struct {
	resolver Resolver
	sessions SessionEnder

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSessions enables ending sessions through the API.
func WithSessions(sessions SessionEnder) HandlerOption {
	return func(h *Handler) {
		h.sessions = sessions
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(resolver Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: resolver,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	res := h.resolver.Resolve(r.Context(), session)

	writeJSON(w, http.StatusOK, settingsResponse{
		Session:      session,
		Location:     string(res.Store.Location()),
		Cached:       res.Cached,
		Settings:     res.Store.GetAll().Raw(),
		Registration: res.Registration,
	})
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := settings.Key(r.PathValue("key"))
	res := h.resolver.Resolve(r.Context(), sessionFromContext(r.Context()))

	value, ok := res.Store.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown setting", string(key)+" is not a valid setting",
			"GET /api/settings lists every valid key")
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{Key: string(key), Value: value})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	res := h.resolver.Resolve(r.Context(), sessionFromContext(r.Context()))
	store := res.Store

	if req.Settings != nil {
		store.SetAll(req.Settings)
	}

	keys := make([]string, 0, len(req.Set))
	for k := range req.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		store.SetOne(settings.Key(k), req.Set[k])
	}

	if req.Reset {
		store.Reset()
	}

	resp := previewResponse{
		Location:  string(store.Location()),
		Settings:  store.GetAll().Raw(),
		Overrides: store.Overrides().Raw(),
		Enabled:   []string{},
		Disabled:  []string{},
	}
	for _, key := range settings.Keys() {
		switch {
		case store.Is(key):
			resp.Enabled = append(resp.Enabled, string(key))
		case store.IsNot(key):
			resp.Disabled = append(resp.Disabled, string(key))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusNotImplemented, "Not supported", "sessions are not cached")
		return
	}
	h.sessions.EndSession(sessionFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func sessionFromContext(ctx context.Context) string {
	if v := ctx.Value(sessionContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type previewRequest struct {
	Settings map[string]any `json:"settings"`
	Set      map[string]any `json:"set"`
	Reset    bool           `json:"reset"`
}

type settingsResponse struct {
	Session      string                     `json:"session"`
	Location     string                     `json:"location"`
	Cached       bool                       `json:"cached"`
	Settings     map[string]any             `json:"settings"`
	Registration *settings.HookRegistration `json:"registration,omitempty"`
}

type settingResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type previewResponse struct {
	Location  string         `json:"location"`
	Settings  map[string]any `json:"settings"`
	Overrides map[string]any `json:"overrides"`
	Enabled   []string       `json:"enabled"`
	Disabled  []string       `json:"disabled"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}
