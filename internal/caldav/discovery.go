package caldav

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/auth"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

func (h *Handler) redirectToCalDAVRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/caldav/", http.StatusMovedPermanently)
}

func (h *Handler) redirectToUserHome(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	http.Redirect(w, r, "/caldav/users/"+username+"/", http.StatusMovedPermanently)
}

// tryAuthenticated resolves the caller from a Basic header if one is
// present and valid, without writing any response on failure — the
// discovery roots never 401, they just fall back to an unauthenticated
// shape.
func (h *Handler) tryAuthenticated(r *http.Request) (username string, ok bool) {
	if _, _, present := r.BasicAuth(); !present {
		return "", false
	}
	u, err := auth.StrictBasic(r.Context(), r, h.store, h.realm)
	if err != nil {
		return "", false
	}
	return u.Username, true
}

// DiscoveryRoot serves PROPFIND on "/", "/caldav/", "/principals/" and
// "/principals/{username}/": a structurally valid 207 whose
// current-user-principal reflects whether the request carried valid
// Basic credentials, never a 401.
func (h *Handler) DiscoveryRoot(w http.ResponseWriter, r *http.Request) {
	username, authed := h.tryAuthenticated(r)

	href := r.URL.Path
	if !strings.HasSuffix(href, "/") {
		href += "/"
	}

	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceCollection)},
	}
	if authed {
		resolved = append(resolved, xmlpkg.ResolvedProp{
			Apply: xmlpkg.ApplyCurrentUserPrincipalHref("/caldav/principals/" + username + "/"),
		})
	} else {
		resolved = append(resolved, xmlpkg.ResolvedProp{
			Apply: xmlpkg.ApplyCurrentUserPrincipalUnauthenticated(),
		})
	}

	ms := xmlpkg.NewMultistatus()
	ms.Response = append(ms.Response, xmlpkg.Response{
		Href:     href,
		Propstat: xmlpkg.BuildPropstats(resolved, nil),
	})
	writeMultistatus(w, ms)
}

func writeMultistatus(w http.ResponseWriter, ms *xmlpkg.Multistatus) {
	body, err := ms.Marshal()
	if err != nil {
		http.Error(w, "failed to render response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(body)
}
