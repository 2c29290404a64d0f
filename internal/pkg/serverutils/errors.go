package serverutils

import "errors"

// ErrNotFound covers both "does not exist" and "exists but owned by someone
// else"; the two must be indistinguishable to the caller.
var ErrNotFound = errors.New("not found")

var ErrUnauthorized = errors.New("unauthorized")

var ErrInvalidIntent = errors.New("invalid intent")
