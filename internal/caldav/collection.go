package caldav

import (
	"errors"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

// CollectionPropfind serves PROPFIND on a calendar collection reached
// via the username-rooted prefix. Depth 0 returns only the calendar's
// own properties; Depth 1 additionally lists its objects.
func (h *Handler) CollectionPropfind(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.collectionPropfind(w, r, res.User, calendarID, homeHrefContext(pathUsername))
}

// EmailCollectionPropfind serves the same PROPFIND, reached via the
// email-rooted prefix Apple's dataaccessd fixates on after discovery.
func (h *Handler) EmailCollectionPropfind(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.collectionPropfind(w, r, res.User, calendarID, emailHrefContext(email))
}

func (h *Handler) collectionPropfind(w http.ResponseWriter, r *http.Request, user *store.User, calendarID string, ctx hrefContext) {
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
	propfindReq, err := xmlpkg.ParsePropfind(body)
	if err != nil {
		h.writeError(w, r, apperr.BadRequestf("parse propfind: %v", err))
		return
	}

	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, calendarResponse(ctx, cal))

	if r.Header.Get("Depth") == "1" {
		objs, err := h.store.Objects.ListObjects(r.Context(), cal.ID)
		if err != nil {
			h.writeError(w, r, apperr.Internalf(err, "caldav: list objects for %q", cal.ID))
			return
		}
		includeData := requestsCalendarData(propfindReq.Props)
		for _, obj := range objs {
			ms.Response = append(ms.Response, objectResponse(ctx, cal.ID, obj, includeData))
		}
	}
	writeMultistatus(w, ms)
}

// CollectionProppatch serves PROPPATCH on a calendar collection,
// updating displayname, calendar-description, and calendar-color in
// place; those three properties are acknowledged with a 200 OK
// propstat. Any other property in the request is ignored and does not
// appear in the response.
func (h *Handler) CollectionProppatch(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.collectionProppatch(w, r, res.User, calendarID, homeHrefContext(pathUsername))
}

// EmailCollectionProppatch serves PROPPATCH reached via the email-rooted
// prefix.
func (h *Handler) EmailCollectionProppatch(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.collectionProppatch(w, r, res.User, calendarID, emailHrefContext(email))
}

func (h *Handler) collectionProppatch(w http.ResponseWriter, r *http.Request, user *store.User, calendarID string, ctx hrefContext) {
	cal, err := h.authorizeCalendar(r.Context(), user.ID, calendarID, true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := readBody(r, maxXMLBodyBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := xmlpkg.ParseProppatch(body)
	if err != nil {
		h.writeError(w, r, apperr.BadRequestf("parse proppatch: %v", err))
		return
	}

	var name, description, color *string
	for _, upd := range req.Set {
		switch upd.Name.Local {
		case "displayname":
			v := upd.Text
			name = &v
		case "calendar-description":
			v := upd.Text
			description = &v
		case "calendar-color":
			v := upd.Text
			color = &v
		}
	}
	if name != nil || description != nil || color != nil {
		cal, err = h.store.Calendars.UpdateProperties(r.Context(), cal.ID, name, description, color)
		if err != nil {
			h.writeError(w, r, apperr.Internalf(err, "caldav: update calendar %q", cal.ID))
			return
		}
	}

	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, xmlpkg.Response{
		Href:     ctx.calendarHref(cal.ID),
		Propstat: proppatchPropstats(req),
	})
	writeMultistatus(w, ms)
}

func proppatchPropstats(req xmlpkg.ProppatchRequest) []xmlpkg.Propstat {
	var resolved []xmlpkg.ResolvedProp
	for _, upd := range req.Set {
		switch upd.Name.Local {
		case "displayname":
			resolved = append(resolved, xmlpkg.ResolvedProp{Apply: xmlpkg.ApplyDisplayName("")})
		case "calendar-description":
			resolved = append(resolved, xmlpkg.ResolvedProp{Apply: xmlpkg.ApplyCalendarDescription("")})
		case "calendar-color":
			resolved = append(resolved, xmlpkg.ResolvedProp{Apply: xmlpkg.ApplyCalendarColor("")})
		}
	}
	return xmlpkg.BuildPropstats(resolved, nil)
}

// CollectionMkcalendar serves MKCALENDAR reached via the username-rooted
// prefix. It is exempt from the usual ownership/share check — creating
// a calendar has no prior owner to check against — but still requires
// the resolved identity to match the path user exactly, so one user
// cannot provision a calendar under another user's home merely by
// knowing their username.
func (h *Handler) CollectionMkcalendar(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	if res.User.Username != pathUsername {
		h.writeError(w, r, apperr.Forbiddenf("cannot create a calendar under another user's home"))
		return
	}
	h.collectionMkcalendar(w, r, res.User, calendarID, homeHrefContext(pathUsername))
}

// EmailCollectionMkcalendar serves MKCALENDAR reached via the
// email-rooted prefix. Basic credentials may name a user other than the
// owner of the path email, so, as on the username-rooted prefix, the
// resolved identity must own that email or the request gets 403.
func (h *Handler) EmailCollectionMkcalendar(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	if res.User.Email == nil || *res.User.Email != email {
		h.writeError(w, r, apperr.Forbiddenf("cannot create a calendar under another user's email"))
		return
	}
	h.collectionMkcalendar(w, r, res.User, calendarID, emailHrefContext(email))
}

func (h *Handler) collectionMkcalendar(w http.ResponseWriter, r *http.Request, user *store.User, calendarID string, ctx hrefContext) {
	switch _, err := h.store.Calendars.GetByID(r.Context(), calendarID); {
	case err == nil:
		h.writeError(w, r, apperr.Conflictf("calendar %q already exists", calendarID))
		return
	case !errors.Is(err, store.ErrNotFound):
		h.writeError(w, r, apperr.Internalf(err, "caldav: check existing calendar %q", calendarID))
		return
	}

	body, err := readBody(r, maxXMLBodyBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, description, color := parseMkcalendarBody(body)

	cal, err := h.store.Calendars.CreateWithID(r.Context(), calendarID, user.ID, name, description, color, "")
	if err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: create calendar %q", calendarID))
		return
	}

	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, calendarResponse(ctx, cal))
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	body2, err := ms.Marshal()
	if err != nil {
		http.Error(w, "failed to render response", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body2)
}

// parseMkcalendarBody extracts displayname/calendar-description/
// calendar-color from a MKCALENDAR request body's <D:set><D:prop>
// children, mirroring ParseProppatch's shape but under a root element
// this server does not otherwise need to name.
func parseMkcalendarBody(body []byte) (name, description, color string) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", "", ""
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", "", ""
	}
	propEl := doc.FindElement("//prop")
	if propEl == nil {
		return "", "", ""
	}
	for _, p := range propEl.ChildElements() {
		switch mkcalendarLocalName(p.Tag) {
		case "displayname":
			name = p.Text()
		case "calendar-description":
			description = p.Text()
		case "calendar-color":
			color = p.Text()
		}
	}
	return name, description, color
}

func mkcalendarLocalName(tag string) string {
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		return strings.ToLower(tag[idx+1:])
	}
	return strings.ToLower(tag)
}

// CollectionDelete serves DELETE on a calendar collection itself,
// reached via the username-rooted prefix, removing it and every object
// it contains. Deletion is owner-only: a read-write share grants access
// to the objects inside a calendar, never standing to remove the
// calendar itself.
func (h *Handler) CollectionDelete(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	calendarID := chi.URLParam(r, "calendar")

	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	h.collectionDelete(w, r, res.User, calendarID)
}

// EmailCollectionDelete serves the same DELETE reached via the
// email-rooted prefix.
func (h *Handler) EmailCollectionDelete(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	calendarID := chi.URLParam(r, "calendar_id")

	res, ok := h.authenticateBasicOrEmail(w, r, email)
	if !ok {
		return
	}
	h.collectionDelete(w, r, res.User, calendarID)
}

func (h *Handler) collectionDelete(w http.ResponseWriter, r *http.Request, user *store.User, calendarID string) {
	cal, err := h.authorizeCalendarOwner(r.Context(), user.ID, calendarID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.store.Calendars.Delete(r.Context(), cal.ID); err != nil {
		h.writeError(w, r, apperr.Internalf(err, "caldav: delete calendar %q", cal.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
