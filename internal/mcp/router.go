package mcp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the MCP dispatcher's route tree: POST/GET/DELETE at
// /mcp, each independently Bearer-gated. Ambient concerns (request ID,
// recovery, metrics, /healthz, /readyz) are the process supervisor's
// responsibility, layered on top of this handler on the MCP listener.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/mcp", h.HandlePost)
	r.Get("/mcp", h.HandleGet)
	r.Delete("/mcp", h.HandleDelete)
	return r
}
