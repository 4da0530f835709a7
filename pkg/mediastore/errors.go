package mediastore

import "errors"

var (
	// ErrNotFound is returned when an object does not exist or has already
	// been evicted. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("media object not found")

	// ErrAccessDenied is returned when the object exists but the presented
	// token does not verify.
	ErrAccessDenied = errors.New("media access denied")

	// ErrWriteFailed is returned when persisting a new object fails. The
	// object never existed; callers must treat this as fatal for the
	// enclosing request.
	ErrWriteFailed = errors.New("media write failed")
)
