// Package apperr defines the sentinel errors shared across Jera components.
package apperr

import "errors"

var (
	// ErrConfig marks invalid configuration: empty region markers, an
	// uncompilable filename pattern, or an empty path template.
	ErrConfig = errors.New("invalid configuration")
	// ErrFormat marks a template expansion failure.
	ErrFormat = errors.New("template expansion failed")
	// ErrStorage marks a failure propagated from the storage provider.
	ErrStorage = errors.New("storage operation failed")
)
