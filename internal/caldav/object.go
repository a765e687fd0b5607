package caldav

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/ical"
	"github.com/jw6ventures/calcard/internal/store"
)

// ObjectGet serves GET on a single calendar object reached via the
// username-rooted prefix, returning its raw iCalendar body verbatim
// with a quoted ETag.
func (h *Handler) ObjectGet(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")
	resource := chi.URLParam(r, "resource")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.objectGet(w, r, res.User, calendarID, resource)
}

// EmailObjectGet serves the same GET reached via the email-rooted
// prefix.
func (h *Handler) EmailObjectGet(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")
	resource := chi.URLParam(r, "filename")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.objectGet(w, r, res.User, calendarID, resource)
}

func (h *Handler) objectGet(w http.ResponseWriter, r *http.Request, user *store.User, calendarID, resource string) {
	cal, err := h.authorizeCalendar(r.Context(), user.ID, calendarID, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	uid := objectUIDFromSegment(resource)
	obj, err := h.store.Objects.GetByUID(r.Context(), cal.ID, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, r, apperr.NotFoundf("object %q not found", uid))
			return
		}
		h.writeError(w, r, apperr.Internalf(err, "caldav: get object %q/%q", cal.ID, uid))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", quoteETag(obj.ETag))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(obj.IcalData))
}

// ObjectPut serves PUT reached via the username-rooted prefix, creating
// or replacing a calendar object. It honours If-Match per RFC 4791's
// conditional semantics: "*" requires an existing object, a specific
// value must match the current ETag byte-for-byte, and a mismatch or a
// missing target returns 412.
func (h *Handler) ObjectPut(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")
	resource := chi.URLParam(r, "resource")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.objectPut(w, r, res.User, calendarID, resource)
}

// EmailObjectPut serves the same PUT reached via the email-rooted
// prefix.
func (h *Handler) EmailObjectPut(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")
	resource := chi.URLParam(r, "filename")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.objectPut(w, r, res.User, calendarID, resource)
}

func (h *Handler) objectPut(w http.ResponseWriter, r *http.Request, user *store.User, calendarID, resource string) {
	cal, err := h.authorizeCalendar(r.Context(), user.ID, calendarID, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := readBody(r, maxPutBodyBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !utf8.Valid(body) {
		h.writeError(w, r, apperr.BadRequestf("calendar object body is not valid UTF-8"))
		return
	}

	existing, err := h.store.Objects.GetByUID(r.Context(), cal.ID, objectUIDFromSegment(resource))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.writeError(w, r, apperr.Internalf(err, "caldav: get object %q/%q", cal.ID, resource))
			return
		}
		existing = nil
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		switch {
		case existing == nil:
			h.writeError(w, r, apperr.PreconditionFailedf("if-match: object does not exist"))
			return
		case ifMatch == "*":
		case ifMatch != quoteETag(existing.ETag):
			h.writeError(w, r, apperr.PreconditionFailedf("if-match: etag mismatch"))
			return
		}
	}

	fields := ical.Extract(string(body))
	uid := fields.UID
	if uid == "" {
		uid = objectUIDFromSegment(resource)
	}

	obj, isNew, err := h.store.Objects.UpsertObject(r.Context(), cal.ID, uid, string(body), store.ExtractedFields{
		ComponentType: fields.ComponentType,
		DTStart:       fields.DTStart,
		DTEnd:         fields.DTEnd,
		Summary:       fields.Summary,
	})
	if err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: upsert object %q/%q", cal.ID, uid))
		return
	}

	w.Header().Set("ETag", quoteETag(obj.ETag))
	if isNew {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
}

// ObjectDelete serves DELETE on a single calendar object reached via the
// username-rooted prefix.
func (h *Handler) ObjectDelete(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")
	resource := chi.URLParam(r, "resource")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.objectDelete(w, r, res.User, calendarID, resource)
}

// EmailObjectDelete serves the same DELETE reached via the email-rooted
// prefix.
func (h *Handler) EmailObjectDelete(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")
	resource := chi.URLParam(r, "filename")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.objectDelete(w, r, res.User, calendarID, resource)
}

func (h *Handler) objectDelete(w http.ResponseWriter, r *http.Request, user *store.User, calendarID, resource string) {
	cal, err := h.authorizeCalendar(r.Context(), user.ID, calendarID, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	uid := objectUIDFromSegment(resource)
	if err := h.store.Objects.DeleteObject(r.Context(), cal.ID, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, r, apperr.NotFoundf("object %q not found", uid))
			return
		}
		h.writeError(w, r, apperr.Internalf(err, "caldav: delete object %q/%q", cal.ID, uid))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quoteETag renders an ETag value quoted, matching the wire format
// clients send back in If-Match.
func quoteETag(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag
	}
	return `"` + etag + `"`
}
