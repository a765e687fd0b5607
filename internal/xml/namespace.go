// Package xml implements the CalDAV/WebDAV XML request parsers and
// 207 Multi-Status response builder: parsing PROPFIND, PROPPATCH, and
// REPORT bodies, and building namespace-aware propstat responses.
package xml

// Namespace prefixes used throughout the CalDAV wire protocol.
const (
	NSDav            = "DAV:"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSAppleICal      = "http://apple.com/ns/ical/"
	NSCalendarServer = "http://calendarserver.org/ns/"
)

// QName is a namespace-qualified property name, the unit PROPFIND and
// PROPPATCH parsers extract from request bodies.
type QName struct {
	Namespace string
	Local     string
}

// String renders the QName using the conventional D/C/A/CS prefixes
// for diagnostics; wire encoding is handled by the prop builders.
func (q QName) String() string {
	return prefixFor(q.Namespace) + ":" + q.Local
}

func prefixFor(ns string) string {
	switch ns {
	case NSDav:
		return "D"
	case NSCalDAV:
		return "C"
	case NSAppleICal:
		return "A"
	case NSCalendarServer:
		return "CS"
	default:
		return ns
	}
}
