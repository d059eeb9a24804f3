package store

import "errors"

// ErrStoreMissing is returned by OpenReadOnly when the database file does
// not exist.
var ErrStoreMissing = errors.New("store: database file missing")

// ErrStoreBusy names file-lock contention on the database. No function
// in this package returns it: Open retries lock contention itself, and
// OpenReadOnly returns bbolt's own error.
var ErrStoreBusy = errors.New("store: database busy")

// ErrNotFound is returned by UpdateTransferred and DeleteInscription
// when no row exists for the inscription id; lookups report absence
// through their bool result instead.
var ErrNotFound = errors.New("store: not found")
