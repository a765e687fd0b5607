// Package logging provides request-ID-tagged structured-ish logging
// helpers shared by the CalDAV and MCP dispatchers, generalized from
// an HTTP-response-writer-coupled helper into one usable from any
// handler that can supply a context.Context.
package logging

import (
	"context"
	"fmt"
	"log"

	"github.com/go-chi/chi/v5/middleware"
)

// Error logs a server-side error tagged with the request's chi request
// ID, if any. It does not write an HTTP response; callers construct
// the response via internal/apperr and the transport-specific encoder.
func Error(ctx context.Context, err error, msg string) {
	log.Printf("[ERROR] reqid=%s msg=%s err=%v", requestID(ctx), msg, err)
}

// Warn logs a recoverable condition worth operator attention.
func Warn(ctx context.Context, msg string, args ...any) {
	log.Printf("[WARN] reqid=%s msg=%s", requestID(ctx), formatMsg(msg, args))
}

// Info logs a routine event.
func Info(ctx context.Context, msg string, args ...any) {
	log.Printf("[INFO] reqid=%s msg=%s", requestID(ctx), formatMsg(msg, args))
}

func formatMsg(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return msg + ": " + formatArgs(args)
}

func formatArgs(args []any) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += toString(a)
	}
	return out
}

func toString(a any) string {
	if s, ok := a.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", a)
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}
