package caldav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/calcard/internal/hash"
	"github.com/jw6ventures/calcard/internal/store"
)

// chiContext attaches rctx as the request's chi route context, the way
// the router does internally, so handler tests can call a Handler
// method directly without standing up the full router.
func chiContext(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

const testEvent = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:event-1\r\nDTSTART:20260401T090000Z\r\nSUMMARY:Standup\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func newTestHandler() (*Handler, *fakeStore) {
	st, f := newTestStore()
	return NewHandler(st, "calcard"), f
}

func mustCreateUser(t *testing.T, f *fakeStore, username string) *store.User {
	t.Helper()
	encoded, err := hash.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &store.User{ID: "user-" + username, Username: username, PasswordHash: encoded}
	f.users[u.ID] = u
	return u
}

func mustCreateUserWithEmail(t *testing.T, f *fakeStore, username, email string) *store.User {
	t.Helper()
	u := mustCreateUser(t, f, username)
	u.Email = &email
	return u
}

func mustCreateCalendar(t *testing.T, f *fakeStore, id, ownerID string) *store.Calendar {
	t.Helper()
	repo := &fakeCalendarRepo{f: f}
	cal, err := repo.CreateWithID(nil, id, ownerID, "Home", "", "", "")
	if err != nil {
		t.Fatalf("create calendar: %v", err)
	}
	return cal
}

func newRouterRequest(method, target string, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r
}

func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(chiContext(r, rctx))
}

func TestObjectPutCreatesAndReturnsETag(t *testing.T) {
	h, f := newTestHandler()
	user := mustCreateUser(t, f, "alice")
	mustCreateCalendar(t, f, "home", user.ID)

	req := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/alice/home/event-1.ics", testEvent),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	rec := httptest.NewRecorder()
	h.ObjectPut(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected ETag header on created object")
	}
	if _, ok := f.objects["home"]["event-1"]; !ok {
		t.Error("expected object to be stored under its extracted UID")
	}
}

func TestObjectPutThenGetRoundtrips(t *testing.T) {
	h, f := newTestHandler()
	user := mustCreateUser(t, f, "alice")
	mustCreateCalendar(t, f, "home", user.ID)

	putReq := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/alice/home/event-1.ics", testEvent),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	putRec := httptest.NewRecorder()
	h.ObjectPut(putRec, putReq)
	if putRec.Code != http.StatusCreated {
		t.Fatalf("put failed: %d %s", putRec.Code, putRec.Body.String())
	}

	getReq := withChiParams(newRouterRequest(http.MethodGet, "/caldav/users/alice/home/event-1.ics", ""),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	getRec := httptest.NewRecorder()
	h.ObjectGet(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if getRec.Body.String() != testEvent {
		t.Errorf("expected body to roundtrip verbatim, got %q", getRec.Body.String())
	}
	if getRec.Header().Get("Content-Type") != "text/calendar; charset=utf-8" {
		t.Errorf("unexpected content-type %q", getRec.Header().Get("Content-Type"))
	}
}

func TestObjectGetMissingReturns404(t *testing.T) {
	h, f := newTestHandler()
	user := mustCreateUser(t, f, "alice")
	mustCreateCalendar(t, f, "home", user.ID)

	req := withChiParams(newRouterRequest(http.MethodGet, "/caldav/users/alice/home/missing.ics", ""),
		map[string]string{"username": "alice", "calendar": "home", "resource": "missing.ics"})
	rec := httptest.NewRecorder()
	h.ObjectGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestObjectPutIfMatchMismatchReturns412(t *testing.T) {
	h, f := newTestHandler()
	user := mustCreateUser(t, f, "alice")
	mustCreateCalendar(t, f, "home", user.ID)

	putReq := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/alice/home/event-1.ics", testEvent),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	h.ObjectPut(httptest.NewRecorder(), putReq)

	req2 := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/alice/home/event-1.ics", testEvent),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	req2.Header.Set("If-Match", `"not-the-real-etag"`)
	rec2 := httptest.NewRecorder()
	h.ObjectPut(rec2, req2)

	if rec2.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec2.Code)
	}
}

func TestObjectPutRejectsOtherUsersCalendarWithoutShare(t *testing.T) {
	h, f := newTestHandler()
	owner := mustCreateUser(t, f, "alice")
	mustCreateUser(t, f, "mallory")
	mustCreateCalendar(t, f, "home", owner.ID)

	req := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/mallory/home/event-1.ics", testEvent),
		map[string]string{"username": "mallory", "calendar": "home", "resource": "event-1.ics"})
	rec := httptest.NewRecorder()
	h.ObjectPut(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestObjectDeleteRequiresWritePermission(t *testing.T) {
	h, f := newTestHandler()
	owner := mustCreateUser(t, f, "alice")
	sharedWith := mustCreateUser(t, f, "bob")
	mustCreateCalendar(t, f, "home", owner.ID)
	shareRepo := &fakeShareRepo{f: f}
	if _, err := shareRepo.Create(nil, "home", sharedWith.ID, store.PermissionRead); err != nil {
		t.Fatalf("create share: %v", err)
	}

	putReq := withChiParams(newRouterRequest(http.MethodPut, "/caldav/users/alice/home/event-1.ics", testEvent),
		map[string]string{"username": "alice", "calendar": "home", "resource": "event-1.ics"})
	h.ObjectPut(httptest.NewRecorder(), putReq)

	delReq := withChiParams(newRouterRequest(http.MethodDelete, "/caldav/users/bob/home/event-1.ics", ""),
		map[string]string{"username": "bob", "calendar": "home", "resource": "event-1.ics"})
	delRec := httptest.NewRecorder()
	h.ObjectDelete(delRec, delReq)

	if delRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for read-only share delete, got %d", delRec.Code)
	}
}

func TestEmailObjectPutThenGetRoundtrips(t *testing.T) {
	h, f := newTestHandler()
	user := mustCreateUserWithEmail(t, f, "alice", "alice@example.com")
	mustCreateCalendar(t, f, "home", user.ID)

	putReq := withChiParams(newRouterRequest(http.MethodPut, "/calendar/dav/alice@example.com/user/home/event-1.ics", testEvent),
		map[string]string{"email": "alice@example.com", "calendar_id": "home", "filename": "event-1.ics"})
	putReq.SetBasicAuth("alice", "s3cret")
	putRec := httptest.NewRecorder()
	h.EmailObjectPut(putRec, putReq)
	if putRec.Code != http.StatusCreated {
		t.Fatalf("put failed: %d %s", putRec.Code, putRec.Body.String())
	}

	getReq := withChiParams(newRouterRequest(http.MethodGet, "/calendar/dav/alice@example.com/user/home/event-1.ics", ""),
		map[string]string{"email": "alice@example.com", "calendar_id": "home", "filename": "event-1.ics"})
	getReq.SetBasicAuth("alice", "s3cret")
	getRec := httptest.NewRecorder()
	h.EmailObjectGet(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if getRec.Body.String() != testEvent {
		t.Errorf("expected body to roundtrip verbatim, got %q", getRec.Body.String())
	}
}

func TestEmailObjectPutRejectsOtherUsersCalendarWithoutShare(t *testing.T) {
	h, f := newTestHandler()
	owner := mustCreateUserWithEmail(t, f, "alice", "alice@example.com")
	mustCreateUserWithEmail(t, f, "mallory", "mallory@example.com")
	mustCreateCalendar(t, f, "home", owner.ID)

	req := withChiParams(newRouterRequest(http.MethodPut, "/calendar/dav/mallory@example.com/user/home/event-1.ics", testEvent),
		map[string]string{"email": "mallory@example.com", "calendar_id": "home", "filename": "event-1.ics"})
	req.SetBasicAuth("mallory", "s3cret")
	rec := httptest.NewRecorder()
	h.EmailObjectPut(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
