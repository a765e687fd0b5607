package store

import "time"

// Permission is the access level granted by a CalendarShare.
type Permission string

const (
	PermissionRead      Permission = "read"
	PermissionReadWrite Permission = "read-write"
)

// CanWrite reports whether p allows mutating the shared calendar's
// contents.
func (p Permission) CanWrite() bool { return p == PermissionReadWrite }

// Valid reports whether p is one of the two recognised permission
// values.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionReadWrite
}

// User is an account on the server. Created by the admin CLI, never by
// either wire protocol.
type User struct {
	ID           string
	Username     string
	Email        *string
	PasswordHash string
	CreatedAt    time.Time
}

// Calendar is a collection of CalendarObjects owned by one User and
// optionally shared with others. Every mutation to the calendar itself
// or to any of its objects rotates CTag and SyncToken.
type Calendar struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Color       string
	Timezone    string
	CTag        string
	SyncToken   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	DefaultCalendarColor = "#0E61B9"
	DefaultTimezone      = "UTC"
)

// CalendarObject is one opaque iCalendar resource (VEVENT/VTODO/etc.)
// inside a Calendar. IcalData is stored byte-for-byte as received;
// DTStart/DTEnd/Summary/ComponentType are indexed copies extracted from
// it at write time.
type CalendarObject struct {
	ID            string
	CalendarID    string
	UID           string
	ETag          string
	IcalData      string
	ComponentType string
	DTStart       string
	DTEnd         string
	Summary       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CalendarShare grants a non-owner User access to a Calendar at a given
// Permission.
type CalendarShare struct {
	ID         string
	CalendarID string
	UserID     string
	Permission Permission
	CreatedAt  time.Time
}

// ChangeType classifies a SyncChange row.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// SyncChange is one append-only row in a Calendar's change log, used to
// answer RFC 6578 sync-collection REPORTs.
type SyncChange struct {
	ID         int64
	CalendarID string
	ObjectUID  string
	ChangeType ChangeType
	SyncToken  string
	CreatedAt  time.Time
}

// McpToken is a hashed MCP bearer credential belonging to a User.
type McpToken struct {
	ID        string
	UserID    string
	TokenHash string
	Name      string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token's expiry, if any, is in the past
// relative to now.
func (t McpToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
