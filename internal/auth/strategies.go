package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/hash"
	"github.com/jw6ventures/calcard/internal/store"
)

// StrictBasic requires Authorization: Basic, resolves the user, and
// verifies the password in timing-safe fashion. It never falls back to
// path-derived identity. On failure it returns a *BasicRealmError
// carrying realm; it does not write any header itself, and callers pass
// the error to ApplyUnauthorizedHeader to set WWW-Authenticate.
func StrictBasic(ctx context.Context, r *http.Request, st *store.Store, realm string) (*store.User, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, unauthorized(realm)
	}

	u, err := st.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Perform a dummy verify so the miss takes comparable time to
			// a found-user-wrong-password miss.
			_, _ = hash.Verify(dummyHash, password)
			return nil, unauthorized(realm)
		}
		return nil, apperr.Internalf(err, "auth: look up user %q", username)
	}

	ok, err = hash.Verify(u.PasswordHash, password)
	if err != nil || !ok {
		return nil, unauthorized(realm)
	}
	return u, nil
}

// dummyHash is verified against on a username miss so StrictBasic does
// not leak "user exists" via timing.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// BasicRealmError is an Unauthorized error that also carries the Basic
// realm the caller should echo in WWW-Authenticate, since the 401
// response for a Basic failure must always carry that header.
type BasicRealmError struct {
	Err   *apperr.Error
	Realm string
}

// Error makes *BasicRealmError itself satisfy the error interface by
// forwarding to the wrapped *apperr.Error.
func (e *BasicRealmError) Error() string { return e.Err.Error() }

// Unwrap exposes the wrapped *apperr.Error itself (not its own,
// typically nil, wrapped cause) so errors.As(err, &apperrError) and
// apperr.KindOf still see Unauthorized through this wrapper.
func (e *BasicRealmError) Unwrap() error { return e.Err }

func unauthorized(realm string) error {
	return &BasicRealmError{Err: apperr.Unauthorizedf("invalid or missing basic credentials"), Realm: realm}
}

// ApplyUnauthorizedHeader sets WWW-Authenticate for err if it carries a
// Basic realm; a no-op for any other error.
func ApplyUnauthorizedHeader(w http.ResponseWriter, err error) {
	var re *BasicRealmError
	if errors.As(err, &re) {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+re.Realm+`"`)
	}
}

// BasicOrPathResult is the outcome of the Basic-or-path strategy.
type BasicOrPathResult struct {
	User *store.User
	// Authoritative is true when the identity came from verified
	// credentials (Strict Basic fallback path); false when it was
	// derived from the URL path alone. The route must still perform an
	// explicit ownership check in the latter case — this strategy
	// returns an identity, not an authorisation.
	Authoritative bool
}

// BasicOrPath implements the Apple dataaccessd-compatible strategy: if
// an Authorization header is present, behaves as StrictBasic; otherwise
// resolves pathUsername by username with no password check. 401s if the
// header is present but invalid, or if pathUsername does not resolve
// to any user — in both cases without leaking which failure occurred,
// so unknown usernames do not become an enumeration oracle.
func BasicOrPath(ctx context.Context, r *http.Request, st *store.Store, pathUsername, realm string) (*BasicOrPathResult, error) {
	if _, _, ok := r.BasicAuth(); ok {
		u, err := StrictBasic(ctx, r, st, realm)
		if err != nil {
			return nil, err
		}
		return &BasicOrPathResult{User: u, Authoritative: true}, nil
	}

	u, err := st.Users.GetByUsername(ctx, pathUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized(realm)
		}
		return nil, apperr.Internalf(err, "auth: look up path user %q", pathUsername)
	}
	return &BasicOrPathResult{User: u, Authoritative: false}, nil
}

// BasicOrEmail is BasicOrPath's counterpart for the email-rooted CalDAV
// routes: if an Authorization header is present, behaves as StrictBasic;
// otherwise resolves email by address with no password check, the same
// latitude Apple's dataaccessd relies on when it revisits the email
// discovery URL's collection and object children without ever attaching
// credentials. 401s without distinguishing a bad header from an unknown
// address, so email is not an enumeration oracle either.
func BasicOrEmail(ctx context.Context, r *http.Request, st *store.Store, email, realm string) (*BasicOrPathResult, error) {
	if _, _, ok := r.BasicAuth(); ok {
		u, err := StrictBasic(ctx, r, st, realm)
		if err != nil {
			return nil, err
		}
		return &BasicOrPathResult{User: u, Authoritative: true}, nil
	}

	u, err := st.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized(realm)
		}
		return nil, apperr.Internalf(err, "auth: look up email user %q", email)
	}
	return &BasicOrPathResult{User: u, Authoritative: false}, nil
}

// Bearer requires Authorization: Bearer, verifying the candidate
// against every stored MCP token hash (Argon2id digests are not
// indexable) in timing-safe fashion, rejecting expired tokens. Returns
// the resolved user id on success.
func Bearer(ctx context.Context, r *http.Request, st *store.Store) (string, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", apperr.Unauthorizedf("missing bearer token")
	}
	candidate := strings.TrimPrefix(authz, prefix)
	if candidate == "" {
		return "", apperr.Unauthorizedf("empty bearer token")
	}

	tokens, err := st.Tokens.ListAll(ctx)
	if err != nil {
		return "", apperr.Internalf(err, "auth: list tokens")
	}

	now := time.Now().UTC()
	for _, tok := range tokens {
		ok, err := hash.Verify(tok.TokenHash, candidate)
		if err != nil || !ok {
			continue
		}
		if tok.Expired(now) {
			return "", apperr.Unauthorizedf("token expired")
		}
		return tok.UserID, nil
	}
	return "", apperr.Unauthorizedf("invalid bearer token")
}
