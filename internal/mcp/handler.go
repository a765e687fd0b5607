package mcp

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/auth"
	"github.com/jw6ventures/calcard/internal/logging"
	"github.com/jw6ventures/calcard/internal/store"
)

// maxRequestBodyBytes bounds a JSON-RPC POST body; generous relative
// to CalDAV's PUT limit since a request here is a JSON envelope, not a
// stored resource.
const maxRequestBodyBytes int64 = 1024 * 1024

// Handler serves the MCP JSON-RPC endpoints against a Store.
type Handler struct {
	store *store.Store
}

// NewHandler constructs a Handler bound to st.
func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

// authenticate resolves the caller via the Bearer strategy, writing
// the transport's fixed `{"error":"unauthorized"}` 401 body itself and
// returning ok=false on failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := auth.Bearer(r.Context(), r, h.store)
	if err != nil {
		writeUnauthorized(w)
		return "", false
	}
	return userID, true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="calcard MCP"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// HandlePost serves POST /mcp: a single JSON-RPC request or
// notification per call. Bearer-gated before any JSON is parsed.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil || int64(len(body)) > maxRequestBodyBytes {
		writeJSONRPC(w, NewError(nil, apperr.RPCParseError, "failed to read request body"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONRPC(w, NewError(nil, apperr.RPCParseError, "invalid JSON"))
		return
	}

	result := handle(r.Context(), h.store, userID, req)
	if req.IsNotification() {
		// Notifications (including a successfully parsed
		// notifications/initialized) get no body, only the status the
		// transport contract names.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if result == nil {
		logging.Warn(r.Context(), "mcp: request carried an id but used a notification-only method", "method", req.Method)
		writeJSONRPC(w, NewError(req.ID, apperr.RPCInvalidRequest, "method is notification-only"))
		return
	}
	writeJSONRPC(w, result)
}

func writeJSONRPC(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleGet serves GET /mcp: establishes a server-streamed response
// channel. The core has no asynchronous server-initiated notifications
// to push, so this just Bearer-gates and returns 200 immediately,
// leaving the connection to the client to close.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleDelete serves DELETE /mcp: terminates a session. Sessions are
// not tracked as server-side state beyond the bearer token itself, so
// this is Bearer-gated and otherwise a no-op 200.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusOK)
}
