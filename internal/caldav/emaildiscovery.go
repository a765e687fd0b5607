package caldav

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/auth"
	"github.com/jw6ventures/calcard/internal/store"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

// accountDisplayName is the fixed displayname the unauthenticated
// branch of email discovery always emits, whether or not the email
// resolves to a real account, so the response body carries no signal
// an attacker could use to enumerate registered addresses.
const accountDisplayName = "CalDAV Account"

// EmailDiscovery serves PROPFIND on /calendar/dav/{email}/user/, the
// endpoint Apple's dataaccessd probes during account setup. A present
// Authorization header must succeed as Strict Basic; its absence is
// not an error — the handler still performs the email lookup (so a
// hit and a miss cost comparable time) but always renders the same
// generic body regardless of outcome, only including the caller's
// calendars once a real Authorization header authenticated them.
func (h *Handler) EmailDiscovery(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	ctx := emailHrefContext(email)

	if _, _, present := r.BasicAuth(); present {
		user, err := auth.StrictBasic(r.Context(), r, h.store, h.realm)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeEmailDiscoveryResponse(w, r, ctx, user)
		return
	}

	_, err := h.store.Users.GetByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.writeError(w, r, apperr.Internalf(err, "caldav: look up user by email %q", email))
		return
	}
	writeGenericAccountResponse(w)
}

func (h *Handler) writeEmailDiscoveryResponse(w http.ResponseWriter, r *http.Request, ctx hrefContext, user *store.User) {
	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceCollection)},
		{Apply: xmlpkg.ApplyDisplayName(accountDisplayName)},
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

// writeGenericAccountResponse renders the fixed, byte-identical body
// for every unauthenticated email-discovery request.
func writeGenericAccountResponse(w http.ResponseWriter) {
	// The href leaves out the requested email so that a hit and a miss
	// render the same bytes.
	const genericAccountHref = "/calendar/dav/"
	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceCollection)},
		{Apply: xmlpkg.ApplyDisplayName(accountDisplayName)},
	}
	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, xmlpkg.Response{
		Href:     genericAccountHref,
		Propstat: xmlpkg.BuildPropstats(resolved, nil),
	})
	writeMultistatus(w, ms)
}
