// Package caldav implements the CalDAV/WebDAV dispatcher: discovery
// endpoints, the calendar home, and the collection/object handlers for
// PROPFIND, PUT, GET, DELETE, MKCALENDAR, PROPPATCH and REPORT.
package caldav

import (
	"errors"
	"io"
	"net/http"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/auth"
	"github.com/jw6ventures/calcard/internal/logging"
	"github.com/jw6ventures/calcard/internal/store"
)

// maxPutBodyBytes bounds PUT request bodies per the object size limit.
const maxPutBodyBytes int64 = 256 * 1024

// maxXMLBodyBytes bounds PROPFIND/PROPPATCH/REPORT bodies; generous
// relative to PUT since these carry queries, not calendar data.
const maxXMLBodyBytes int64 = 1024 * 1024

// Handler serves CalDAV/WebDAV requests against a Store.
type Handler struct {
	store *store.Store
	realm string
}

// NewHandler constructs a Handler bound to store, issuing the given
// realm on Basic-auth challenges.
func NewHandler(st *store.Store, realm string) *Handler {
	return &Handler{store: st, realm: realm}
}

// readBody reads r.Body bounded by limit, returning a BadRequest apperr
// on overflow or read failure.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, apperr.BadRequestf("read request body: %v", err)
	}
	if int64(len(body)) > limit {
		return nil, apperr.BadRequestf("request body exceeds %d bytes", limit)
	}
	return body, nil
}

// writeError renders err as an HTTP response per the error-handling
// design's CalDAV status table, logging the underlying cause when it is
// an internal error.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *auth.BasicRealmError
	if errors.As(err, &re) {
		auth.ApplyUnauthorizedHeader(w, err)
	}

	kind := apperr.KindOf(err)
	status := apperr.CalDAVStatus(kind)
	if kind == apperr.Internal {
		logging.Error(r.Context(), err, "caldav: handler error")
	}
	http.Error(w, kind.String(), status)
}

// authenticateStrict resolves the caller via Strict Basic, writing the
// 401 response itself and returning ok=false when it fails.
func (h *Handler) authenticateStrict(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	u, err := auth.StrictBasic(r.Context(), r, h.store, h.realm)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return u, true
}

// authenticateBasicOrPath resolves the caller via the Basic-or-path
// strategy against pathUsername, writing the 401 response itself and
// returning ok=false when it fails.
func (h *Handler) authenticateBasicOrPath(w http.ResponseWriter, r *http.Request, pathUsername string) (*auth.BasicOrPathResult, bool) {
	res, err := auth.BasicOrPath(r.Context(), r, h.store, pathUsername, h.realm)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return res, true
}

// authenticateBasicOrEmail resolves the caller via the Basic-or-email
// strategy against the email prefix of a collection/object URL, writing
// the 401 response itself and returning ok=false when it fails.
func (h *Handler) authenticateBasicOrEmail(w http.ResponseWriter, r *http.Request, email string) (*auth.BasicOrPathResult, bool) {
	res, err := auth.BasicOrEmail(r.Context(), r, h.store, email, h.realm)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return res, true
}
