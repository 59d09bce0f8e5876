package editor

import "errors"

var (
	// ErrNotFound indicates that the opened container id does not resolve to
	// a top-level container of the project.
	ErrNotFound = errors.New("container not found")

	// ErrNodeNotFound indicates that no node in the project has the given id.
	ErrNodeNotFound = errors.New("node not found")
)
