package store

import "github.com/google/uuid"

// newID returns a time-sortable UUID v7, used for every primary key and
// for the UUID embedded in sync tokens.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system entropy source fails;
		// NewString (v4) is an acceptable degraded fallback since
		// uniqueness, not sortability, is the load-bearing property for
		// correctness.
		return uuid.NewString()
	}
	return id.String()
}

// newETag returns a fresh UUID v4, used for CalendarObject.ETag on
// every write.
func newETag() string {
	return uuid.NewString()
}

// newSyncToken returns a fresh sync token in the "sync-{uuid-v7}" wire
// form described by the data model and external interfaces.
func newSyncToken() string {
	return "sync-" + newID()
}
