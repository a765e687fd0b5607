package caldav

import (
	"net/url"
	"path"
)

// hrefContext carries the URL prefix a request arrived under, so
// response builders can render hrefs that match the path the client
// actually used rather than a single canonical form. Apple's
// dataaccessd fixates on whichever prefix first authenticated it
// (/calendar/dav/{email}/user/ or /caldav/users/{u}/), so every
// subsequent href in a response to that client must stay under the
// same prefix or sync silently breaks.
type hrefContext struct {
	// base is the collection-home prefix, with no trailing slash,
	// e.g. "/caldav/users/alice" or "/calendar/dav/alice@example.com/user".
	base string
}

func homeHrefContext(username string) hrefContext {
	return hrefContext{base: "/caldav/users/" + username}
}

func emailHrefContext(email string) hrefContext {
	return hrefContext{base: "/calendar/dav/" + url.PathEscape(email) + "/user"}
}

func (c hrefContext) homeHref() string {
	return c.base + "/"
}

func (c hrefContext) calendarHref(calendarID string) string {
	return c.base + "/" + calendarID + "/"
}

func (c hrefContext) objectHref(calendarID, uid string) string {
	return path.Join(c.base, calendarID, encodeUID(uid)+".ics")
}

// encodeUID percent-encodes a UID for use as a path segment, mirroring
// the decoding objectUIDFromSegment performs on the way in.
func encodeUID(uid string) string {
	return url.PathEscape(uid)
}

// objectUIDFromSegment reverses a ".ics" resource segment back to its
// UID: strip the extension, then percent-decode. Falls back to the raw
// segment if decoding fails, matching the handler contract's "from the
// filename (with .ics stripped and percent-decoded)" rule without
// rejecting a request over a malformed escape.
func objectUIDFromSegment(segment string) string {
	trimmed := segment
	if len(trimmed) > 4 && trimmed[len(trimmed)-4:] == ".ics" {
		trimmed = trimmed[:len(trimmed)-4]
	}
	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		return trimmed
	}
	return decoded
}
