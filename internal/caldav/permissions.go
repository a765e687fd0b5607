package caldav

import (
	"context"
	"errors"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

// authorizeCalendar loads calendarID and checks that userID may access
// it: ownership always qualifies, a share qualifies for read access,
// and additionally needs CanWrite() when requireWrite is set. Returns
// a NotFound apperr if the calendar does not exist, Forbidden if the
// user has no standing to access it at the requested level.
func (h *Handler) authorizeCalendar(ctx context.Context, userID, calendarID string, requireWrite bool) (*store.Calendar, error) {
	cal, err := h.store.Calendars.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("calendar %q not found", calendarID)
		}
		return nil, apperr.Internalf(err, "caldav: get calendar %q", calendarID)
	}

	if cal.OwnerID == userID {
		return cal, nil
	}

	share, err := h.store.Shares.Get(ctx, calendarID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbiddenf("user %q has no access to calendar %q", userID, calendarID)
		}
		return nil, apperr.Internalf(err, "caldav: get share for %q on %q", userID, calendarID)
	}
	if requireWrite && !share.Permission.CanWrite() {
		return nil, apperr.Forbiddenf("user %q has read-only access to calendar %q", userID, calendarID)
	}
	return cal, nil
}

// authorizeCalendarOwner loads calendarID and requires that userID is its
// owner, rejecting even a read-write share. Deleting a calendar collection
// removes every object a sharee might also depend on, so that operation
// needs strict ownership rather than authorizeCalendar's write-share
// latitude.
func (h *Handler) authorizeCalendarOwner(ctx context.Context, userID, calendarID string) (*store.Calendar, error) {
	cal, err := h.store.Calendars.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("calendar %q not found", calendarID)
		}
		return nil, apperr.Internalf(err, "caldav: get calendar %q", calendarID)
	}
	if cal.OwnerID != userID {
		return nil, apperr.Forbiddenf("user %q does not own calendar %q", userID, calendarID)
	}
	return cal, nil
}
