package registry

import (
	"errors"
	"fmt"
)

var (
	ErrConfigFormat  = errors.New("config must map strings to strings")
	ErrInvalidKey    = errors.New("invalid key")
	ErrCommandParse  = errors.New("command could not be parsed")
	ErrNoExecutable  = errors.New("command has no executable")
	ErrEmptyRegistry = errors.New("config has no entries")
)

// Reports a configuration document that is not a flat string mapping.
type ConfigFormatError struct {
	Line   int   // 1-based line of the offending node, 0 if unknown.
	Column int   // 1-based column of the offending node, 0 if unknown.
	Err    error // Underlying cause.
}

func (e *ConfigFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d, column %d: %v", ErrConfigFormat, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrConfigFormat, e.Err)
}

func (e *ConfigFormatError) Unwrap() error { return e.Err }

func (e *ConfigFormatError) Is(target error) bool { return target == ErrConfigFormat }

// Reports a key that is empty or contains the request delimiter.
type InvalidKeyError struct {
	Key    string // Offending key as decoded.
	NullAt int    // Byte index of the first null byte, or -1 if the key is empty.
}

func (e *InvalidKeyError) Error() string {
	if e.NullAt < 0 {
		return fmt.Sprintf("%s: empty string", ErrInvalidKey)
	}
	return fmt.Sprintf("%s %q: null byte at index %d", ErrInvalidKey, e.Key, e.NullAt)
}

func (e *InvalidKeyError) Is(target error) bool { return target == ErrInvalidKey }

// Reports a command line that could not be turned into an argument vector.
type CommandParseError struct {
	Key   string // Key the command is configured under.
	Value string // Raw command line.
	Err   error  // Tokenizer failure or [ErrNoExecutable].
}

func (e *CommandParseError) Error() string {
	return fmt.Sprintf("%s: key %q: command %q: %v", ErrCommandParse, e.Key, e.Value, e.Err)
}

func (e *CommandParseError) Unwrap() error { return e.Err }

func (e *CommandParseError) Is(target error) bool { return target == ErrCommandParse }
