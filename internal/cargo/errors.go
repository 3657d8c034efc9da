package cargo

import "errors"

var (
	ErrManifest = errors.New("invalid manifest")
	ErrLock     = errors.New("invalid lock file")
	ErrUnpinned = errors.New("dependency not pinned")
)
