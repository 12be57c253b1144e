package polls

import "github.com/pkg/errors"

var (
	// ErrValidation indicates missing or malformed command arguments
	ErrValidation = errors.New("invalid arguments")

	// ErrNotFound indicates an unknown poll id or an unresolvable message
	ErrNotFound = errors.New("not found")

	// ErrPermission indicates the invoker did not create the poll
	ErrPermission = errors.New("not allowed")

	// ErrStateConflict indicates the operation is invalid for the poll status
	ErrStateConflict = errors.New("invalid poll state")

	// ErrHost indicates a failed call to the chat platform
	ErrHost = errors.New("platform call failed")
)
