package caldav

import (
	"errors"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

// CollectionReport dispatches REPORT, reached via the username-rooted
// prefix, across its three recognised shapes: calendar-multiget,
// calendar-query, and sync-collection. REPORT is a read operation; it
// never requires write permission.
func (h *Handler) CollectionReport(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.collectionReport(w, r, res.User, calendarID, homeHrefContext(pathUsername))
}

// EmailCollectionReport serves the same REPORT reached via the
// email-rooted prefix.
func (h *Handler) EmailCollectionReport(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.collectionReport(w, r, res.User, calendarID, emailHrefContext(email))
}

func (h *Handler) collectionReport(w http.ResponseWriter, r *http.Request, user *store.User, calendarID string, ctx hrefContext) {
	cal, err := h.authorizeCalendar(r.Context(), user.ID, calendarID, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := readBody(r, maxXMLBodyBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := xmlpkg.ParseReport(body)
	if err != nil {
		h.writeError(w, r, apperr.BadRequestf("parse report: %v", err))
		return
	}

	switch req.Kind {
	case xmlpkg.ReportCalendarMultiget:
		h.reportMultiget(w, r, ctx, cal, req)
	case xmlpkg.ReportCalendarQuery:
		h.reportQuery(w, r, ctx, cal, req)
	case xmlpkg.ReportSyncCollection:
		h.reportSyncCollection(w, r, ctx, cal, req)
	default:
		h.writeError(w, r, apperr.BadRequestf("unsupported report kind"))
	}
}

func (h *Handler) reportMultiget(w http.ResponseWriter, r *http.Request, ctx hrefContext, cal *store.Calendar, req xmlpkg.ReportRequest) {
	includeData := requestsCalendarData(req.Props)

	uids := make([]string, 0, len(req.Hrefs))
	for _, href := range req.Hrefs {
		uids = append(uids, objectUIDFromSegment(path.Base(href)))
	}
	objs, err := h.store.Objects.GetObjectsByUIDs(r.Context(), cal.ID, uids)
	if err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: get objects by uids for %q", cal.ID))
		return
	}
	byUID := make(map[string]*store.CalendarObject, len(objs))
	for _, o := range objs {
		byUID[o.UID] = o
	}

	ms := xmlpkg.NewMultistatus()
	for i, uid := range uids {
		if obj, found := byUID[uid]; found {
			ms.Response = append(ms.Response, objectResponse(ctx, cal.ID, obj, includeData))
		} else {
			ms.Response = append(ms.Response, tombstoneResponse(req.Hrefs[i]))
		}
	}
	writeMultistatus(w, ms)
}

func (h *Handler) reportQuery(w http.ResponseWriter, r *http.Request, ctx hrefContext, cal *store.Calendar, req xmlpkg.ReportRequest) {
	includeData := requestsCalendarData(req.Props)

	var objs []*store.CalendarObject
	var err error
	if tr, ok := req.TimeRange.Get(); ok {
		objs, err = h.store.Objects.ListObjectsInRange(r.Context(), cal.ID, tr.Start, tr.End)
	} else {
		objs, err = h.store.Objects.ListObjects(r.Context(), cal.ID)
	}
	if err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: list objects for %q", cal.ID))
		return
	}

	ms := xmlpkg.NewMultistatus()
	for _, obj := range objs {
		ms.Response = append(ms.Response, objectResponse(ctx, cal.ID, obj, includeData))
	}
	writeMultistatus(w, ms)
}

// reportSyncCollection answers RFC 6578 sync-collection REPORTs. An
// empty or unknown token performs a full initial sync, enumerating
// every current object; a known token replays the change log since
// it, emitting a tombstone for any row whose object no longer exists
// — including one created then deleted between two sync cycles, or
// modified then deleted before this refetch — per the deliberate
// choice to always surface a deletion rather than silently drop the
// row. The envelope's trailing sync-token is always the calendar's
// current token, not one frozen at the start of the request.
func (h *Handler) reportSyncCollection(w http.ResponseWriter, r *http.Request, ctx hrefContext, cal *store.Calendar, req xmlpkg.ReportRequest) {
	includeData := requestsCalendarData(req.Props)
	token, _ := req.SyncToken.Get()

	if token == "" {
		h.writeFullSync(w, r, ctx, cal, includeData)
		return
	}

	changes, err := h.store.SyncChanges.GetSince(r.Context(), cal.ID, token)
	if err != nil {
		if errors.Is(err, store.ErrUnknownSyncToken) {
			h.writeFullSync(w, r, ctx, cal, includeData)
			return
		}
		h.writeError(w, r, apperr.Internalf(err, "caldav: get sync changes for %q", cal.ID))
		return
	}

	var order []string
	latest := make(map[string]store.ChangeType, len(changes))
	for _, c := range changes {
		if _, seen := latest[c.ObjectUID]; !seen {
			order = append(order, c.ObjectUID)
		}
		latest[c.ObjectUID] = c.ChangeType
	}

	ms := xmlpkg.NewMultistatus()
	for _, uid := range order {
		href := ctx.objectHref(cal.ID, uid)
		if latest[uid] == store.ChangeDeleted {
			ms.Response = append(ms.Response, tombstoneResponse(href))
			continue
		}
		obj, err := h.store.Objects.GetByUID(r.Context(), cal.ID, uid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				ms.Response = append(ms.Response, tombstoneResponse(href))
				continue
			}
			h.writeError(w, r, apperr.Internalf(err, "caldav: get object %q/%q", cal.ID, uid))
			return
		}
		ms.Response = append(ms.Response, objectResponse(ctx, cal.ID, obj, includeData))
	}

	ms.SetSyncToken(cal.SyncToken)
	writeMultistatus(w, ms)
}

func (h *Handler) writeFullSync(w http.ResponseWriter, r *http.Request, ctx hrefContext, cal *store.Calendar, includeData bool) {
	objs, err := h.store.Objects.ListObjects(r.Context(), cal.ID)
	if err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: list objects for %q", cal.ID))
		return
	}
	ms := xmlpkg.NewMultistatus()
	for _, obj := range objs {
		ms.Response = append(ms.Response, objectResponse(ctx, cal.ID, obj, includeData))
	}
	ms.SetSyncToken(cal.SyncToken)
	writeMultistatus(w, ms)
}
