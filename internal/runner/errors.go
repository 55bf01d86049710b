package runner

import (
	"errors"
	"fmt"
)

var (
	ErrSpawn = errors.New("command could not be started")
	ErrWait  = errors.New("command could not be waited on")
)

// Reports a command whose process could not be started.
type SpawnError struct {
	Name string // Executable as configured.
	Err  error  // Underlying OS or lookup error.
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSpawn, e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }
