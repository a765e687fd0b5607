package store

import (
	"context"
	"time"
)

// UserRepository covers User CRUD. Users are created and destroyed
// exclusively through the admin CLI; neither wire protocol mutates
// them.
type UserRepository interface {
	Create(ctx context.Context, username string, email *string, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// CalendarRepository covers Calendar CRUD and the membership/visibility
// queries the CalDAV and MCP dispatchers need.
type CalendarRepository interface {
	Create(ctx context.Context, ownerID, name, description, color, timezone string) (*Calendar, error)
	CreateWithID(ctx context.Context, id, ownerID, name, description, color, timezone string) (*Calendar, error)
	GetByID(ctx context.Context, id string) (*Calendar, error)
	UpdateProperties(ctx context.Context, id string, name, description, color *string) (*Calendar, error)
	Delete(ctx context.Context, id string) error
	ListOwnedBy(ctx context.Context, ownerID string) ([]*Calendar, error)
	ListVisibleTo(ctx context.Context, userID string) ([]*Calendar, error)
}

// ObjectRepository covers CalendarObject CRUD, including the atomic
// mutation primitives that rotate the owning Calendar's ctag and
// sync_token and append a SyncChange row.
type ObjectRepository interface {
	UpsertObject(ctx context.Context, calendarID, uid, icalData string, fields ExtractedFields) (obj *CalendarObject, isNew bool, err error)
	GetByUID(ctx context.Context, calendarID, uid string) (*CalendarObject, error)
	DeleteObject(ctx context.Context, calendarID, uid string) error
	ListObjects(ctx context.Context, calendarID string) ([]*CalendarObject, error)
	ListObjectsInRange(ctx context.Context, calendarID string, start, end time.Time) ([]*CalendarObject, error)
	GetObjectsByUIDs(ctx context.Context, calendarID string, uids []string) ([]*CalendarObject, error)
}

// ExtractedFields is the ical.Fields subset the Store indexes; it is
// declared here (rather than importing internal/ical) so the store
// package's public surface does not depend on the codec package.
type ExtractedFields struct {
	ComponentType string
	DTStart       string
	DTEnd         string
	Summary       string
}

// ShareRepository covers CalendarShare CRUD.
type ShareRepository interface {
	Create(ctx context.Context, calendarID, userID string, permission Permission) (*CalendarShare, error)
	Delete(ctx context.Context, calendarID, userID string) error
	ListReceivedBy(ctx context.Context, userID string) ([]*CalendarShare, error)
	Get(ctx context.Context, calendarID, userID string) (*CalendarShare, error)
}

// SyncChangeRepository covers the append-only sync change log.
type SyncChangeRepository interface {
	GetSince(ctx context.Context, calendarID, token string) ([]*SyncChange, error)
}

// TokenRepository covers McpToken CRUD.
type TokenRepository interface {
	Create(ctx context.Context, userID, tokenHash, name string, expiresAt *time.Time) (*McpToken, error)
	ListByUser(ctx context.Context, userID string) ([]*McpToken, error)
	ListAll(ctx context.Context) ([]*McpToken, error)
	Delete(ctx context.Context, id string) error
}
