package interfaces

import "errors"

// ErrNotFound is returned by every repository backend when a keyed entity does not exist
var ErrNotFound = errors.New("not found")
