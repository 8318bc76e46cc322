package cache

import "errors"

// ErrNotReady mirrors the engine's NotReady sentinel: a Cache method called
// before New has returned successfully is a programming error, not a runtime
// fault, but callers still get an error back rather than a panic.
var ErrNotReady = errors.New("cache: not ready")
