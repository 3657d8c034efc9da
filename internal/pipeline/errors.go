package pipeline

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrAssemble            = errors.New("image assembly failed")
	ErrCopy                = errors.New("copy failed")
	ErrCommandFailed       = errors.New("command failed")
	ErrConfig              = errors.New("invalid build config")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
