package extension

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("extension not found")
	ErrAlreadyLoaded = errors.New("extension already loaded")
	ErrNotLoaded     = errors.New("extension not loaded")
	ErrDisabled      = errors.New("extension disabled by manifest")
	// ErrSuperseded means a loaded extension already provides a
	// specialization of the group type being loaded.
	ErrSuperseded = errors.New("extension superseded by a loaded specialization")
)

// LoadError is returned when an extension's own setup fails. Cause is the
// original error, reachable through errors.Unwrap.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("extension %q failed to load: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Cause returns the error an extension's setup originally raised, or err
// itself if it is not a load failure.
func Cause(err error) error {
	var le *LoadError
	if errors.As(err, &le) && le.Cause != nil {
		return le.Cause
	}
	return err
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}
