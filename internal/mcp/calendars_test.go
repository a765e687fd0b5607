package mcp

import (
	"context"
	"testing"

	"github.com/jw6ventures/calcard/internal/apperr"
)

func TestToolListCalendarsOwnedAndShared(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")
	shared, err := tf.store.Calendars.Create(context.Background(), bob.ID, "Team", "", "", "")
	if err != nil {
		t.Fatalf("create shared calendar: %v", err)
	}
	if _, err := tf.store.Shares.Create(context.Background(), shared.ID, tf.owner.ID, "read"); err != nil {
		t.Fatalf("share: %v", err)
	}

	result, err := toolListCalendars(context.Background(), tf.store, tf.owner.ID, nil)
	if err != nil {
		t.Fatalf("toolListCalendars: %v", err)
	}
	out := result.(map[string]any)
	cals := out["calendars"].([]map[string]any)
	if len(cals) != 2 {
		t.Fatalf("got %d calendars, want 2 (owned + shared)", len(cals))
	}
}

func TestToolGetCalendarNotFound(t *testing.T) {
	tf := newFixture(t)
	_, err := toolGetCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{"calendar_id": "nope"}))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("err kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestToolGetCalendarForbiddenForStranger(t *testing.T) {
	tf := newFixture(t)
	stranger := tf.createUser(t, "mallory")
	_, err := toolGetCalendar(context.Background(), tf.store, stranger.ID, rawArgs(t, map[string]any{"calendar_id": tf.calendar.ID}))
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("err kind = %v, want Forbidden", apperr.KindOf(err))
	}
}

func TestToolGetCalendarSuccess(t *testing.T) {
	tf := newFixture(t)
	result, err := toolGetCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{"calendar_id": tf.calendar.ID}))
	if err != nil {
		t.Fatalf("toolGetCalendar: %v", err)
	}
	out := result.(map[string]any)
	if out["id"] != tf.calendar.ID {
		t.Errorf("id = %v, want %v", out["id"], tf.calendar.ID)
	}
	if _, ok := out["ctag"]; !ok {
		t.Error("missing ctag in get_calendar result")
	}
}

func TestToolCreateCalendarRequiresName(t *testing.T) {
	tf := newFixture(t)
	_, err := toolCreateCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{}))
	if apperr.KindOf(err) != apperr.BadRequest {
		t.Errorf("err kind = %v, want BadRequest", apperr.KindOf(err))
	}
}

func TestToolCreateCalendarSuccess(t *testing.T) {
	tf := newFixture(t)
	result, err := toolCreateCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{
		"name": "Work", "color": "#ABCDEF",
	}))
	if err != nil {
		t.Fatalf("toolCreateCalendar: %v", err)
	}
	out := result.(map[string]any)
	if out["name"] != "Work" || out["owner_id"] != tf.owner.ID {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestToolDeleteCalendarRequiresOwnership(t *testing.T) {
	tf := newFixture(t)
	bob := tf.createUser(t, "bob")
	if _, err := tf.store.Shares.Create(context.Background(), tf.calendar.ID, bob.ID, "read-write"); err != nil {
		t.Fatalf("share: %v", err)
	}

	_, err := toolDeleteCalendar(context.Background(), tf.store, bob.ID, rawArgs(t, map[string]any{"calendar_id": tf.calendar.ID}))
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("a read-write share should not authorise delete_calendar; err kind = %v", apperr.KindOf(err))
	}
}

func TestToolDeleteCalendarSuccess(t *testing.T) {
	tf := newFixture(t)
	result, err := toolDeleteCalendar(context.Background(), tf.store, tf.owner.ID, rawArgs(t, map[string]any{"calendar_id": tf.calendar.ID}))
	if err != nil {
		t.Fatalf("toolDeleteCalendar: %v", err)
	}
	if result.(map[string]any)["deleted"] != true {
		t.Errorf("unexpected result: %+v", result)
	}
	if _, err := tf.store.Calendars.GetByID(context.Background(), tf.calendar.ID); err == nil {
		t.Error("calendar should no longer exist")
	}
}
