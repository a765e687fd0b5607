// Package ical implements the minimal iCalendar codec: indexed-field
// extraction from a raw VCALENDAR body, and a builder that emits a
// syntactically valid VCALENDAR/VEVENT from structured fields. Bodies
// are never rewritten or semantically validated; the codec only reads
// or writes the handful of properties the rest of the server indexes
// on.
package ical

import "strings"

// Fields holds the properties extracted from the VEVENT or VTODO
// components in a raw iCalendar body; each field keeps the first value
// found for it.
type Fields struct {
	UID           string
	DTStart       string
	DTEnd         string // populated from DUE for VTODO components
	Summary       string
	ComponentType string // "VEVENT" or "VTODO"
}

// Extract performs RFC 5545 line unfolding followed by a single-pass
// scan of every VEVENT or VTODO component, pulling out UID, DTSTART,
// DTEND (or DUE), and SUMMARY. ComponentType is the type of the first
// such component; a field the first component lacks is filled from a
// later one if that one has it. Property parameters preceding
// the first unparameterized colon are discarded. No date parsing or
// semantic validation is performed — values are returned verbatim.
//
// UID may be set by a property that appears outside any component;
// every other field requires an active VEVENT/VTODO.
func Extract(raw string) Fields {
	var f Fields
	inComponent := false

	for _, line := range unfoldLines(raw) {
		name, value, ok := splitProperty(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			if value == "VEVENT" || value == "VTODO" {
				inComponent = true
				if f.ComponentType == "" {
					f.ComponentType = value
				}
			}
			continue
		case "END":
			if value == "VEVENT" || value == "VTODO" {
				inComponent = false
			}
			continue
		}

		if name == "UID" && f.UID == "" {
			f.UID = value
			continue
		}

		if !inComponent {
			continue
		}

		switch name {
		case "DTSTART":
			if f.DTStart == "" {
				f.DTStart = value
			}
		case "DTEND":
			if f.DTEnd == "" {
				f.DTEnd = value
			}
		case "DUE":
			if f.DTEnd == "" {
				f.DTEnd = value
			}
		case "SUMMARY":
			if f.Summary == "" {
				f.Summary = value
			}
		}
	}

	if f.ComponentType == "" {
		f.ComponentType = "VEVENT"
	}
	return f
}

// unfoldLines normalises line endings and joins RFC 5545 continuation
// lines: any physical line beginning with a single space or tab is
// appended to the previous logical line, with that one leading
// whitespace character stripped.
func unfoldLines(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	physical := strings.Split(normalized, "\n")

	logical := make([]string, 0, len(physical))
	for _, line := range physical {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}
	return logical
}

// splitProperty splits a logical content line into its property name
// and value, discarding any parameters between the name and the first
// unparameterized colon (e.g. "DTSTART;TZID=UTC:20260301T090000Z"
// yields ("DTSTART", "20260301T090000Z")).
func splitProperty(line string) (name, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}

	head := line[:colon]
	value = line[colon+1:]

	if semi := strings.IndexByte(head, ';'); semi >= 0 {
		head = head[:semi]
	}
	name = strings.ToUpper(strings.TrimSpace(head))
	if name == "" {
		return "", "", false
	}
	return name, value, true
}
