package store

import "errors"

var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write clashes with existing rows: a slot
// already taken, a duplicate email, or a delete of something still in use.
var ErrConflict = errors.New("conflict")

var ErrInvalidReference = errors.New("referenced person or machine does not exist")
