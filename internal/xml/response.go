package xml

import (
	"encoding/xml"
	"fmt"
)

// cdataString marshals its content wrapped in a CDATA section, used
// for any element whose text may contain characters XML escaping
// would otherwise mangle (raw calendar-data bodies, display names a
// user chose freely).
type cdataString string

func (c cdataString) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(struct {
		S string `xml:",cdata"`
	}{string(c)}, start)
}

// resourceType renders D:resourcetype's children, per the known
// property builder table: bare D:collection on non-calendar
// collections, D:collection+C:calendar on calendars, D:principal on
// principal resources.
type resourceType struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
	Calendar   *struct{} `xml:"C:calendar,omitempty"`
	Principal  *struct{} `xml:"D:principal,omitempty"`
}

func newMarker() *struct{} { return &struct{}{} }

// ResourceKind selects which resourcetype shape BuildResourceType
// emits.
type ResourceKind int

const (
	// ResourceObject renders an empty D:resourcetype, per RFC 4918's
	// convention for a plain (non-collection) resource such as a
	// calendar object.
	ResourceObject ResourceKind = iota
	ResourceCollection
	ResourceCalendar
	ResourcePrincipal
)

func buildResourceType(kind ResourceKind) *resourceType {
	rt := &resourceType{}
	switch kind {
	case ResourceCollection:
		rt.Collection = newMarker()
	case ResourceCalendar:
		rt.Collection = newMarker()
		rt.Calendar = newMarker()
	case ResourcePrincipal:
		rt.Principal = newMarker()
	}
	return rt
}

type currentUserPrincipal struct {
	Href            *cdataString `xml:"D:href,omitempty"`
	Unauthenticated *struct{}    `xml:"D:unauthenticated,omitempty"`
}

type compSet struct {
	Comp []compName `xml:"C:comp"`
}

type compName struct {
	Name string `xml:"name,attr"`
}

// prop carries the subset of known properties this server understands,
// per the XML layer's known-property builder table. Fields left nil
// are simply omitted from the marshalled element.
type prop struct {
	XMLName                        xml.Name              `xml:"D:prop"`
	ResourceType                   *resourceType         `xml:"D:resourcetype,omitempty"`
	DisplayName                    *cdataString          `xml:"D:displayname,omitempty"`
	GetETag                        *cdataString          `xml:"D:getetag,omitempty"`
	GetContentType                 *cdataString          `xml:"D:getcontenttype,omitempty"`
	SyncToken                      *cdataString          `xml:"D:sync-token,omitempty"`
	CurrentUserPrincipal           *currentUserPrincipal `xml:"D:current-user-principal,omitempty"`
	CalendarData                   *cdataString          `xml:"C:calendar-data,omitempty"`
	CalendarDescription            *cdataString          `xml:"C:calendar-description,omitempty"`
	SupportedCalendarComponentSet  *compSet              `xml:"C:supported-calendar-component-set,omitempty"`
	CalendarColor                  *cdataString          `xml:"A:calendar-color,omitempty"`
	GetCTag                        *cdataString          `xml:"CS:getctag,omitempty"`
}

// Propstat groups one or more resolved or unresolved properties under
// a single HTTP status, per RFC 4791/2518.
type Propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

// Response is one <D:response> element: either a resource with one or
// more propstat blocks, or a bare tombstone response carrying only a
// status.
type Response struct {
	Href     string     `xml:"D:href"`
	Propstat []Propstat `xml:"D:propstat,omitempty"`
	Status   string     `xml:"D:status,omitempty"`
}

// Multistatus is the top-level 207 response envelope.
type Multistatus struct {
	XMLName   xml.Name     `xml:"D:multistatus"`
	XmlnsD    string       `xml:"xmlns:D,attr"`
	XmlnsC    string       `xml:"xmlns:C,attr"`
	XmlnsA    string       `xml:"xmlns:A,attr"`
	XmlnsCS   string       `xml:"xmlns:CS,attr"`
	Response  []Response   `xml:"D:response"`
	SyncToken *cdataString `xml:"D:sync-token,omitempty"`
}

// NewMultistatus builds an empty envelope with all four namespaces
// declared, ready to have Response values appended.
func NewMultistatus() *Multistatus {
	return &Multistatus{
		XmlnsD:  NSDav,
		XmlnsC:  NSCalDAV,
		XmlnsA:  NSAppleICal,
		XmlnsCS: NSCalendarServer,
	}
}

// SetSyncToken sets the envelope's trailing sync-token element, quoted
// to match the per-property D:sync-token rendering.
func (m *Multistatus) SetSyncToken(token string) {
	v := cdataString(quote(token))
	m.SyncToken = &v
}

// Marshal renders the envelope as an XML document with a declaration,
// matching what CalDAV clients expect on the wire.
func (m *Multistatus) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("xml: marshal multistatus: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// HTTPStatusLine renders an HTTP status line for use inside a
// <D:status> element, e.g. "HTTP/1.1 200 OK".
func HTTPStatusLine(code int, text string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, text)
}

const (
	StatusOK                 = "HTTP/1.1 200 OK"
	StatusNotFound           = "HTTP/1.1 404 Not Found"
	StatusForbidden          = "HTTP/1.1 403 Forbidden"
	StatusInternalServerErr  = "HTTP/1.1 500 Internal Server Error"
)

// ResolvedProp is one property the caller successfully resolved, ready
// to be placed in a 200 OK propstat.
type ResolvedProp struct {
	Name  QName
	Apply func(*prop)
}

// BuildPropstats groups resolved properties into a 200 OK propstat and,
// when missing is non-empty, adds a 404 Not Found propstat. That 404
// propstat carries an empty D:prop: the names in missing are not
// written into it.
func BuildPropstats(resolved []ResolvedProp, missing []QName) []Propstat {
	var out []Propstat

	if len(resolved) > 0 {
		var p prop
		for _, r := range resolved {
			r.Apply(&p)
		}
		out = append(out, Propstat{Prop: p, Status: StatusOK})
	}

	if len(missing) > 0 {
		out = append(out, Propstat{Prop: prop{}, Status: StatusNotFound})
	}

	return out
}

// The following ApplyX helpers are the "known property builders" from
// the XML layer's design: each maps one qname to a mutation of a prop
// value being assembled for a 200 OK propstat.

func ApplyResourceType(kind ResourceKind) func(*prop) {
	return func(p *prop) { p.ResourceType = buildResourceType(kind) }
}

func ApplyDisplayName(name string) func(*prop) {
	return func(p *prop) { v := cdataString(name); p.DisplayName = &v }
}

// ApplyGetETag renders the ETag quoted, per "D:getetag (quoted)".
func ApplyGetETag(etag string) func(*prop) {
	return func(p *prop) { v := cdataString(quote(etag)); p.GetETag = &v }
}

func ApplyGetContentType(contentType string) func(*prop) {
	return func(p *prop) { v := cdataString(contentType); p.GetContentType = &v }
}

// ApplySyncToken renders the sync token quoted, per "D:sync-token
// (quoted sync-{uuid})".
func ApplySyncToken(token string) func(*prop) {
	return func(p *prop) { v := cdataString(quote(token)); p.SyncToken = &v }
}

func ApplyCurrentUserPrincipalHref(href string) func(*prop) {
	return func(p *prop) {
		v := cdataString(href)
		p.CurrentUserPrincipal = &currentUserPrincipal{Href: &v}
	}
}

func ApplyCurrentUserPrincipalUnauthenticated() func(*prop) {
	return func(p *prop) {
		p.CurrentUserPrincipal = &currentUserPrincipal{Unauthenticated: newMarker()}
	}
}

func ApplyCalendarData(raw string) func(*prop) {
	return func(p *prop) { v := cdataString(raw); p.CalendarData = &v }
}

func ApplyCalendarDescription(desc string) func(*prop) {
	return func(p *prop) { v := cdataString(desc); p.CalendarDescription = &v }
}

func ApplySupportedCalendarComponentSet(components ...string) func(*prop) {
	return func(p *prop) {
		cs := &compSet{}
		for _, c := range components {
			cs.Comp = append(cs.Comp, compName{Name: c})
		}
		p.SupportedCalendarComponentSet = cs
	}
}

func ApplyCalendarColor(color string) func(*prop) {
	return func(p *prop) { v := cdataString(color); p.CalendarColor = &v }
}

func ApplyGetCTag(ctag string) func(*prop) {
	return func(p *prop) { v := cdataString(ctag); p.GetCTag = &v }
}

func quote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s
	}
	return `"` + s + `"`
}
