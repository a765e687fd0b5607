package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BuildInput holds the structured fields accepted by Build.
type BuildInput struct {
	UID         string // optional; synthesised when empty
	Title       string
	Start       time.Time
	End         time.Time
	Description string // optional
	Location    string // optional
}

// Build emits a syntactically valid VCALENDAR/VEVENT from structured
// fields. No line folding is applied to the output. When UID is empty
// a new one is synthesised in the form "{uuid-v4}@caldav-server".
func Build(in BuildInput) string {
	uid := in.UID
	if uid == "" {
		uid = fmt.Sprintf("%s@caldav-server", uuid.NewString())
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//calcard//calcard//EN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%s\r\n", uid)
	fmt.Fprintf(&b, "DTSTART:%s\r\n", formatICalTime(in.Start))
	fmt.Fprintf(&b, "DTEND:%s\r\n", formatICalTime(in.End))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeText(in.Title))
	if in.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeText(in.Description))
	}
	if in.Location != "" {
		fmt.Fprintf(&b, "LOCATION:%s\r\n", escapeText(in.Location))
	}
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", formatICalTime(time.Now().UTC()))
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeText escapes the RFC 5545 TEXT value characters the builder
// might plausibly emit; it does not attempt full TEXT escaping since
// the core never rewrites client-supplied bodies, only ones it builds
// itself from plain strings.
func escapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		"\n", `\n`,
	)
	return r.Replace(s)
}

// ParseEventTime parses a start/end timestamp accepted by the MCP
// create_event/update_event tools, which take either iCal basic form
// (20260301T090000Z) or ISO 8601 (2026-03-01T09:00:00Z).
func ParseEventTime(s string) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("ical: unrecognised time format %q", s)
}
