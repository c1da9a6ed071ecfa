package file

import "errors"

var (
	// ErrFileNotFound covers both missing files and files owned by another
	// account, so existence is never leaked across accounts.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileTooLarge signals that the upload exceeds the per-file limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrStorageFailure indicates a transient object-storage fault. Any quota
	// reserved for the attempt has been released.
	ErrStorageFailure = errors.New("storage failure")
)
