package caldav

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/apperr"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

// CalendarHome serves PROPFIND on /caldav/users/{username}/, the
// Basic-or-path level. Depth 0 returns only the home resource's own
// properties; Depth 1 additionally lists every calendar owned by or
// shared with the resolved user, per the collection/object handler
// contract's calendar-home behaviour.
func (h *Handler) CalendarHome(w http.ResponseWriter, r *http.Request) {
	pathUsername := chi.URLParam(r, "username")
	res, ok := h.authenticateBasicOrPath(w, r, pathUsername)
	if !ok {
		return
	}
	user := res.User
	ctx := homeHrefContext(pathUsername)

	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceCollection)},
		{Apply: xmlpkg.ApplyCurrentUserPrincipalHref("/caldav/principals/" + user.Username + "/")},
	}
	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, xmlpkg.Response{
		Href:     ctx.homeHref(),
		Propstat: xmlpkg.BuildPropstats(resolved, nil),
	})

	if r.Header.Get("Depth") == "1" {
		cals, err := h.store.Calendars.ListVisibleTo(r.Context(), user.ID)
		if err != nil {
			h.writeError(w, r, apperr.Internalf(err, "caldav: list visible calendars for %q", user.ID))
			return
		}
		for _, cal := range cals {
			ms.Response = append(ms.Response, calendarResponse(ctx, cal))
		}
	}
	writeMultistatus(w, ms)
}
