package reactive

import (
	"github.com/vango-dev/livestate/internal/errors"
)

// Sentinel errors. Errors returned by the package match these with errors.Is
// regardless of the key or path they carry.
var (
	// ErrUnknownKey is returned when writing a key the object does not have.
	ErrUnknownKey error = errors.New("E101")

	// ErrTypeMismatch is returned when a value cannot be converted to the
	// type stored at a key.
	ErrTypeMismatch error = errors.New("E102")

	// ErrNotSettable is returned when writing an unexported or otherwise
	// read-only field.
	ErrNotSettable error = errors.New("E103")

	// ErrNoMethod is returned by Call when the method does not exist.
	ErrNoMethod error = errors.New("E104")

	// ErrDeleteUnsupported is returned by Delete on struct nodes.
	ErrDeleteUnsupported error = errors.New("E105")

	// ErrNotWrappable is returned when an object was required but v is a
	// scalar, slice, nil or other passthrough value.
	ErrNotWrappable error = errors.New("E106")

	// ErrNotList is returned by Append when the key holds something other
	// than a slice.
	ErrNotList error = errors.New("E107")

	// ErrIndexOutOfRange is returned when writing a list element that does
	// not exist.
	ErrIndexOutOfRange error = errors.New("E108")

	// ErrNoListOwner is returned by Assign when a list element's path has no
	// object holding the list, as for a root that is itself a list.
	ErrNoListOwner error = errors.New("E109")

	// ErrInvalidPath is raised for path keys that are not strings or integers.
	ErrInvalidPath error = errors.New("E201")

	// ErrEmptyPath is returned by Assign for the empty path.
	ErrEmptyPath error = errors.New("E202")
)
