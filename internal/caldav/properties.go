package caldav

import (
	"github.com/jw6ventures/calcard/internal/store"
	xmlpkg "github.com/jw6ventures/calcard/internal/xml"
)

// calendarResponse builds the propstat block for one calendar as a
// child of a home or discovery listing.
func calendarResponse(ctx hrefContext, cal *store.Calendar) xmlpkg.Response {
	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceCalendar)},
		{Apply: xmlpkg.ApplyDisplayName(cal.Name)},
		{Apply: xmlpkg.ApplyCalendarColor(cal.Color)},
		{Apply: xmlpkg.ApplyGetCTag(cal.CTag)},
		{Apply: xmlpkg.ApplySyncToken(cal.SyncToken)},
		{Apply: xmlpkg.ApplySupportedCalendarComponentSet("VEVENT", "VTODO")},
	}
	if cal.Description != "" {
		resolved = append(resolved, xmlpkg.ResolvedProp{Apply: xmlpkg.ApplyCalendarDescription(cal.Description)})
	}
	return xmlpkg.Response{
		Href:     ctx.calendarHref(cal.ID),
		Propstat: xmlpkg.BuildPropstats(resolved, nil),
	}
}

// objectResponse builds the propstat block for one calendar object,
// including the full calendar-data body only when includeData is set
// (callers pass this based on whether the request's prop list asked
// for C:calendar-data).
func objectResponse(ctx hrefContext, calendarID string, obj *store.CalendarObject, includeData bool) xmlpkg.Response {
	resolved := []xmlpkg.ResolvedProp{
		{Apply: xmlpkg.ApplyResourceType(xmlpkg.ResourceObject)},
		{Apply: xmlpkg.ApplyGetETag(obj.ETag)},
		{Apply: xmlpkg.ApplyGetContentType("text/calendar; charset=utf-8")},
	}
	if includeData {
		resolved = append(resolved, xmlpkg.ResolvedProp{Apply: xmlpkg.ApplyCalendarData(obj.IcalData)})
	}
	return xmlpkg.Response{
		Href:     ctx.objectHref(calendarID, obj.UID),
		Propstat: xmlpkg.BuildPropstats(resolved, nil),
	}
}

// requestsCalendarData reports whether props asked for C:calendar-data.
func requestsCalendarData(props []xmlpkg.QName) bool {
	for _, p := range props {
		if p.Local == "calendar-data" {
			return true
		}
	}
	return false
}

// tombstoneResponse is a bare 404 response for an href whose object no
// longer exists — used both for sync-collection deletions and for a
// modified-then-deleted object that vanished between the change-log
// entry and the refetch.
func tombstoneResponse(href string) xmlpkg.Response {
	return xmlpkg.Response{Href: href, Status: xmlpkg.StatusNotFound}
}
