package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist, or when a
// conditional update matched no row (e.g. resolving a decision that is no
// longer pending).
var ErrNotFound = errors.New("storage: not found")
