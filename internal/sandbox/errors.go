package sandbox

import "errors"

// ErrNotFound is returned by file operations against a missing path.
var ErrNotFound = errors.New("file not found in sandbox")
