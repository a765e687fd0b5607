package caldav

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func init() {
	for _, method := range []string{"PROPFIND", "PROPPATCH", "MKCALENDAR", "REPORT"} {
		chi.RegisterMethod(method)
	}
}

// allowedMethods is echoed on every OPTIONS response, and is the
// method set the dispatcher as a whole routes across the five URL
// levels.
const allowedMethods = "OPTIONS, GET, PUT, DELETE, PROPFIND, PROPPATCH, MKCALENDAR, REPORT"

// nonOptionsMethods is the set every "must respond to OPTIONS" level
// also needs a concrete registration for, so a non-OPTIONS request to
// a redirect-only path (the well-known alias, the legacy principal
// path) still gets routed instead of falling through to a bare 404.
var nonOptionsMethods = []string{http.MethodGet, http.MethodPut, http.MethodDelete, "PROPFIND", "PROPPATCH", "MKCALENDAR", "REPORT"}

// NewRouter builds the CalDAV dispatcher's route tree. Ambient
// concerns (request ID, recovery, metrics, /healthz, /readyz) are the
// process supervisor's responsibility and are layered on top of this
// handler, not inside it.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	// OPTIONS must succeed everywhere, auth included nowhere — handled
	// first so no other registration can shadow it.
	r.MethodFunc(http.MethodOptions, "/*", h.Options)

	registerAll(r, "/.well-known/caldav", h.redirectToCalDAVRoot)

	r.MethodFunc("PROPFIND", "/", h.DiscoveryRoot)
	r.MethodFunc("PROPFIND", "/caldav/", h.DiscoveryRoot)
	r.MethodFunc("PROPFIND", "/principals/", h.DiscoveryRoot)
	r.MethodFunc("PROPFIND", "/principals/{username}/", h.DiscoveryRoot)

	registerAll(r, "/caldav/principals/{username}/", h.redirectToUserHome)

	r.MethodFunc("PROPFIND", "/calendar/dav/{email}/user/", h.EmailDiscovery)

	// Apple's dataaccessd never leaves the email prefix once it has
	// discovered calendars there, so the collection and object levels
	// need their own registrations under it rather than relying on the
	// username-rooted routes below.
	r.MethodFunc("PROPFIND", "/calendar/dav/{email}/user/{calendar_id}/", h.EmailCollectionPropfind)
	r.MethodFunc("PROPPATCH", "/calendar/dav/{email}/user/{calendar_id}/", h.EmailCollectionProppatch)
	r.MethodFunc("MKCALENDAR", "/calendar/dav/{email}/user/{calendar_id}/", h.EmailCollectionMkcalendar)
	r.MethodFunc("REPORT", "/calendar/dav/{email}/user/{calendar_id}/", h.EmailCollectionReport)
	r.MethodFunc(http.MethodDelete, "/calendar/dav/{email}/user/{calendar_id}/", h.EmailCollectionDelete)

	r.MethodFunc(http.MethodGet, "/calendar/dav/{email}/user/{calendar_id}/{filename}", h.EmailObjectGet)
	r.MethodFunc(http.MethodPut, "/calendar/dav/{email}/user/{calendar_id}/{filename}", h.EmailObjectPut)
	r.MethodFunc(http.MethodDelete, "/calendar/dav/{email}/user/{calendar_id}/{filename}", h.EmailObjectDelete)

	r.MethodFunc("PROPFIND", "/caldav/users/{username}/", h.CalendarHome)

	r.MethodFunc("PROPFIND", "/caldav/users/{username}/{calendar}/", h.CollectionPropfind)
	r.MethodFunc("PROPPATCH", "/caldav/users/{username}/{calendar}/", h.CollectionProppatch)
	r.MethodFunc("MKCALENDAR", "/caldav/users/{username}/{calendar}/", h.CollectionMkcalendar)
	r.MethodFunc("REPORT", "/caldav/users/{username}/{calendar}/", h.CollectionReport)
	r.MethodFunc(http.MethodDelete, "/caldav/users/{username}/{calendar}/", h.CollectionDelete)

	r.MethodFunc(http.MethodGet, "/caldav/users/{username}/{calendar}/{resource}", h.ObjectGet)
	r.MethodFunc(http.MethodPut, "/caldav/users/{username}/{calendar}/{resource}", h.ObjectPut)
	r.MethodFunc(http.MethodDelete, "/caldav/users/{username}/{calendar}/{resource}", h.ObjectDelete)

	return r
}

func registerAll(r chi.Router, pattern string, fn http.HandlerFunc) {
	for _, method := range nonOptionsMethods {
		r.MethodFunc(method, pattern, fn)
	}
}

// Options answers every OPTIONS request identically, per the handler
// contract that any method responder must advertise the full DAV
// feature set regardless of which URL level it was asked about.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowedMethods)
	w.Header().Set("DAV", "1, 2, 3, calendar-access, calendar-schedule")
	w.WriteHeader(http.StatusOK)
}
