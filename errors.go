package thriftdb

import "errors"

var (
	// ErrInvalidName rejects empty or blank table/stream naming input
	// before any network call is made.
	ErrInvalidName = errors.New("thriftdb: invalid name")

	// ErrAmbiguousRole is returned when a caller-supplied role name
	// collides with an existing role. The caller must pass the existing
	// role's ARN instead of a name to resolve the ambiguity.
	ErrAmbiguousRole = errors.New("thriftdb: role name already exists, supply RoleARN explicitly")
)
