package store

import "errors"

// ErrNotFound is returned by lookups and mutations whose target row
// does not exist. Callers map this to apperr.NotFound at the transport
// boundary.
var ErrNotFound = errors.New("store: record not found")

// ErrUnknownSyncToken is returned by SyncChanges.GetSince when the
// supplied token does not match any SyncChange row for the calendar.
// The REPORT handler (component F) is responsible for treating this as
// a request for a full initial sync, per the Store contract's "If
// token is empty or unknown, the caller performs a full initial sync."
var ErrUnknownSyncToken = errors.New("store: unknown sync token")

// ErrAlreadyExists is returned by creates that collide with a unique
// constraint the caller did not already check for (e.g. MKCALENDAR on
// an existing calendar id).
var ErrAlreadyExists = errors.New("store: already exists")
