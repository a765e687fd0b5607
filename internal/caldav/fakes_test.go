package caldav

import (
	"context"
	"fmt"
	"time"

	"github.com/jw6ventures/calcard/internal/store"
)

// fakeStore is an in-memory stand-in for store.Store, shared by every
// repository fake so a mutation on one (e.g. UpsertObject rotating a
// calendar's ctag) is visible through the others, mirroring how the
// real repositories all operate against one connection pool.
type fakeStore struct {
	users     map[string]*store.User
	calendars map[string]*store.Calendar
	objects   map[string]map[string]*store.CalendarObject // calendarID -> uid -> object
	shares    map[string]*store.CalendarShare              // calendarID+"/"+userID
	changes   map[string][]*store.SyncChange               // calendarID -> ordered log
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*store.User),
		calendars: make(map[string]*store.Calendar),
		objects:   make(map[string]map[string]*store.CalendarObject),
		shares:    make(map[string]*store.CalendarShare),
		changes:   make(map[string][]*store.SyncChange),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func newTestStore() (*store.Store, *fakeStore) {
	f := newFakeStore()
	return &store.Store{
		Users:       &fakeUserRepo{f: f},
		Calendars:   &fakeCalendarRepo{f: f},
		Objects:     &fakeObjectRepo{f: f},
		Shares:      &fakeShareRepo{f: f},
		SyncChanges: &fakeSyncChangeRepo{f: f},
	}, f
}

// --- users ---

type fakeUserRepo struct{ f *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, username string, email *string, passwordHash string) (*store.User, error) {
	u := &store.User{ID: r.f.nextID("user"), Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	r.f.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	if u, ok := r.f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	for _, u := range r.f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	for _, u := range r.f.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context) ([]*store.User, error) {
	var out []*store.User
	for _, u := range r.f.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	u, ok := r.f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.f.users, id)
	return nil
}

// --- calendars ---

type fakeCalendarRepo struct{ f *fakeStore }

func (r *fakeCalendarRepo) Create(ctx context.Context, ownerID, name, description, color, timezone string) (*store.Calendar, error) {
	return r.CreateWithID(ctx, r.f.nextID("cal"), ownerID, name, description, color, timezone)
}

func (r *fakeCalendarRepo) CreateWithID(ctx context.Context, id, ownerID, name, description, color, timezone string) (*store.Calendar, error) {
	if _, exists := r.f.calendars[id]; exists {
		return nil, store.ErrAlreadyExists
	}
	if color == "" {
		color = store.DefaultCalendarColor
	}
	if timezone == "" {
		timezone = store.DefaultTimezone
	}
	now := time.Now().UTC()
	c := &store.Calendar{
		ID: id, OwnerID: ownerID, Name: name, Description: description, Color: color, Timezone: timezone,
		CTag: r.f.nextID("ctag"), SyncToken: "sync-" + r.f.nextID("tok"), CreatedAt: now, UpdatedAt: now,
	}
	r.f.calendars[id] = c
	return c, nil
}

func (r *fakeCalendarRepo) GetByID(ctx context.Context, id string) (*store.Calendar, error) {
	if c, ok := r.f.calendars[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (r *fakeCalendarRepo) UpdateProperties(ctx context.Context, id string, name, description, color *string) (*store.Calendar, error) {
	c, ok := r.f.calendars[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if name != nil {
		c.Name = *name
	}
	if description != nil {
		c.Description = *description
	}
	if color != nil {
		c.Color = *color
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (r *fakeCalendarRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.f.calendars[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.f.calendars, id)
	delete(r.f.objects, id)
	delete(r.f.changes, id)
	return nil
}

func (r *fakeCalendarRepo) ListOwnedBy(ctx context.Context, ownerID string) ([]*store.Calendar, error) {
	var out []*store.Calendar
	for _, c := range r.f.calendars {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCalendarRepo) ListVisibleTo(ctx context.Context, userID string) ([]*store.Calendar, error) {
	var out []*store.Calendar
	for _, c := range r.f.calendars {
		if c.OwnerID == userID {
			out = append(out, c)
			continue
		}
		if s, ok := r.f.shares[c.ID+"/"+userID]; ok && s != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- objects ---

type fakeObjectRepo struct{ f *fakeStore }

func (r *fakeObjectRepo) rotate(calendarID, uid string, changeType store.ChangeType) error {
	cal, ok := r.f.calendars[calendarID]
	if !ok {
		return store.ErrNotFound
	}
	token := "sync-" + r.f.nextID("tok")
	cal.CTag = r.f.nextID("ctag")
	cal.SyncToken = token
	cal.UpdatedAt = time.Now().UTC()
	r.f.changes[calendarID] = append(r.f.changes[calendarID], &store.SyncChange{
		ID:         int64(len(r.f.changes[calendarID]) + 1),
		CalendarID: calendarID,
		ObjectUID:  uid,
		ChangeType: changeType,
		SyncToken:  token,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

func (r *fakeObjectRepo) UpsertObject(ctx context.Context, calendarID, uid, icalData string, fields store.ExtractedFields) (*store.CalendarObject, bool, error) {
	if _, ok := r.f.calendars[calendarID]; !ok {
		return nil, false, store.ErrNotFound
	}
	byUID, ok := r.f.objects[calendarID]
	if !ok {
		byUID = make(map[string]*store.CalendarObject)
		r.f.objects[calendarID] = byUID
	}
	existing, isNew := byUID[uid], false
	now := time.Now().UTC()
	if existing == nil {
		isNew = true
		existing = &store.CalendarObject{ID: r.f.nextID("obj"), CalendarID: calendarID, UID: uid, CreatedAt: now}
	}
	existing.ETag = r.f.nextID("etag")
	existing.IcalData = icalData
	existing.ComponentType = fields.ComponentType
	existing.DTStart = fields.DTStart
	existing.DTEnd = fields.DTEnd
	existing.Summary = fields.Summary
	existing.UpdatedAt = now
	byUID[uid] = existing

	changeType := store.ChangeModified
	if isNew {
		changeType = store.ChangeCreated
	}
	if err := r.rotate(calendarID, uid, changeType); err != nil {
		return nil, false, err
	}
	return existing, isNew, nil
}

func (r *fakeObjectRepo) GetByUID(ctx context.Context, calendarID, uid string) (*store.CalendarObject, error) {
	if byUID, ok := r.f.objects[calendarID]; ok {
		if o, ok := byUID[uid]; ok {
			return o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeObjectRepo) DeleteObject(ctx context.Context, calendarID, uid string) error {
	byUID, ok := r.f.objects[calendarID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := byUID[uid]; !ok {
		return store.ErrNotFound
	}
	if err := r.rotate(calendarID, uid, store.ChangeDeleted); err != nil {
		return err
	}
	delete(byUID, uid)
	return nil
}

func (r *fakeObjectRepo) ListObjects(ctx context.Context, calendarID string) ([]*store.CalendarObject, error) {
	var out []*store.CalendarObject
	for _, o := range r.f.objects[calendarID] {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeObjectRepo) ListObjectsInRange(ctx context.Context, calendarID string, start, end time.Time) ([]*store.CalendarObject, error) {
	return r.ListObjects(ctx, calendarID)
}

func (r *fakeObjectRepo) GetObjectsByUIDs(ctx context.Context, calendarID string, uids []string) ([]*store.CalendarObject, error) {
	var out []*store.CalendarObject
	byUID := r.f.objects[calendarID]
	for _, uid := range uids {
		if o, ok := byUID[uid]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- shares ---

type fakeShareRepo struct{ f *fakeStore }

func (r *fakeShareRepo) key(calendarID, userID string) string { return calendarID + "/" + userID }

func (r *fakeShareRepo) Create(ctx context.Context, calendarID, userID string, permission store.Permission) (*store.CalendarShare, error) {
	s := &store.CalendarShare{ID: r.f.nextID("share"), CalendarID: calendarID, UserID: userID, Permission: permission, CreatedAt: time.Now().UTC()}
	r.f.shares[r.key(calendarID, userID)] = s
	return s, nil
}

func (r *fakeShareRepo) Delete(ctx context.Context, calendarID, userID string) error {
	k := r.key(calendarID, userID)
	if _, ok := r.f.shares[k]; !ok {
		return store.ErrNotFound
	}
	delete(r.f.shares, k)
	return nil
}

func (r *fakeShareRepo) ListReceivedBy(ctx context.Context, userID string) ([]*store.CalendarShare, error) {
	var out []*store.CalendarShare
	for _, s := range r.f.shares {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) Get(ctx context.Context, calendarID, userID string) (*store.CalendarShare, error) {
	if s, ok := r.f.shares[r.key(calendarID, userID)]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

// --- sync changes ---

type fakeSyncChangeRepo struct{ f *fakeStore }

func (r *fakeSyncChangeRepo) GetSince(ctx context.Context, calendarID, token string) ([]*store.SyncChange, error) {
	log := r.f.changes[calendarID]
	anchor := -1
	for i, c := range log {
		if c.SyncToken == token {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return nil, store.ErrUnknownSyncToken
	}
	return log[anchor+1:], nil
}
