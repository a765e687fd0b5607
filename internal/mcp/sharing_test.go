package mcp

import (
	"context"
	"testing"

	"github.com/jw6ventures/calcard/internal/apperr"
)

func TestToolShareCalendarRequiresOwnership(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")
	carol := tf.createUser(t, "carol")
	if _, err := tf.store.Shares.Create(context.Background(), tf.calendar.ID, bob.ID, "read-write"); err != nil {
		t.Fatalf("share: %v", err)
	}

	_, err := toolShareCalendar(context.Background(), tf.store, bob.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": carol.Username, "permission": "read",
	}))
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("a read-write collaborator should not authorise share_calendar; err kind = %v", apperr.KindOf(err))
	}
}

func TestToolShareCalendarInvalidPermission(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")
	_, err := toolShareCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": bob.Username, "permission": "sudo",
	}))
	if apperr.KindOf(err) != apperr.BadRequest {
		t.Errorf("err kind = %v, want BadRequest", apperr.KindOf(err))
	}
}

func TestToolShareCalendarUnknownUser(t *testing.T) {
	tf := newFixture(t)
	_, err := toolShareCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": "ghost", "permission": "read",
	}))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("err kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestToolShareAndUnshareCalendar(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")

	result, err := toolShareCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": bob.Username, "permission": "read-write",
	}))
	if err != nil {
		t.Fatalf("toolShareCalendar: %v", err)
	}
	if result.(map[string]any)["permission"] != "read-write" {
		t.Errorf("unexpected result: %+v", result)
	}

	listed, err := toolListSharedCalendars(context.Background(), tf.store, bob.ID, nil)
	if err != nil {
		t.Fatalf("toolListSharedCalendars: %v", err)
	}
	shared := listed.(map[string]any)["shared_calendars"].([]map[string]any)
	if len(shared) != 1 || shared[0]["id"] != tf.calendar.ID {
		t.Fatalf("unexpected shared calendars: %+v", shared)
	}

	unshared, err := toolUnshareCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": bob.Username,
	}))
	if err != nil {
		t.Fatalf("toolUnshareCalendar: %v", err)
	}
	if unshared.(map[string]any)["unshared"] != true {
		t.Errorf("unexpected result: %+v", unshared)
	}

	listedAgain, err := toolListSharedCalendars(context.Background(), tf.store, bob.ID, nil)
	if err != nil {
		t.Fatalf("toolListSharedCalendars: %v", err)
	}
	if got := listedAgain.(map[string]any)["shared_calendars"].([]map[string]any); len(got) != 0 {
		t.Errorf("expected no shared calendars after unshare, got %+v", got)
	}
}

func TestToolUnshareCalendarNoExistingShare(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")
	_, err := toolUnshareCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"calendar_id": tf.calendar.ID, "username": bob.Username,
	}))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("err kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestToolListSharedCalendarsExcludesOwned(t *testing.T) {
	tf := newFixture(t)
	listed, err := toolListSharedCalendars(context.Background(), tf.store, tf.owner.ID, nil)
	if err != nil {
		t.Fatalf("toolListSharedCalendars: %v", err)
	}
	if got := listed.(map[string]any)["shared_calendars"].([]map[string]any); len(got) != 0 {
		t.Errorf("owner's own calendar should not appear as a received share, got %+v", got)
	}
}
