package mcp

import (
	"context"
	"errors"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

// authorizeCalendar resolves calendarID and checks that userID may act
// on it: ownership always qualifies, for read or write; a
// CalendarShare qualifies for read unconditionally and for write only
// when its Permission is read-write. This is the same ownership-or-
// share rule the CalDAV dispatcher enforces, reapplied here since the
// two transports each call authorization at their own route/tool
// boundary rather than sharing one gate.
func authorizeCalendar(ctx context.Context, st *store.Store, userID, calendarID string, requireWrite bool) (*store.Calendar, error) {
	cal, err := st.Calendars.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("calendar %q not found", calendarID)
		}
		return nil, apperr.Internalf(err, "mcp: get calendar %q", calendarID)
	}
	if cal.OwnerID == userID {
		return cal, nil
	}
	share, err := st.Shares.Get(ctx, calendarID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbiddenf("user %q has no access to calendar %q", userID, calendarID)
		}
		return nil, apperr.Internalf(err, "mcp: get share for %q on %q", userID, calendarID)
	}
	if requireWrite && !share.Permission.CanWrite() {
		return nil, apperr.Forbiddenf("user %q has read-only access to calendar %q", userID, calendarID)
	}
	return cal, nil
}

// authorizeOwner resolves calendarID and requires userID to be its
// owner, for the sharing-administration tools: a read-write share
// lets a collaborator edit events, not reassign who else can see the
// calendar.
func authorizeOwner(ctx context.Context, st *store.Store, userID, calendarID string) (*store.Calendar, error) {
	cal, err := st.Calendars.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("calendar %q not found", calendarID)
		}
		return nil, apperr.Internalf(err, "mcp: get calendar %q", calendarID)
	}
	if cal.OwnerID != userID {
		return nil, apperr.Forbiddenf("user %q does not own calendar %q", userID, calendarID)
	}
	return cal, nil
}
