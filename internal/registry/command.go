package registry

import "strings"

// A configured command line split into words.
//
// Leading words containing "=" are environment assignments. The first word
// without "=" is the executable; every later word is an argument even if it
// contains "=". A Command built by [Parse] or [NewCommand] always has an
// executable.
type Command struct {
	raw    string
	tokens []string
	exe    int // Index of the executable in tokens.
}

// Splits line with [Split] and locates the executable.
func NewCommand(line string) (Command, error) {
	tokens, err := Split(line)
	if err != nil {
		return Command{}, err
	}

	exe := executableIndex(tokens)
	if exe < 0 {
		return Command{}, ErrNoExecutable
	}

	return Command{raw: line, tokens: tokens, exe: exe}, nil
}

// Returns the index of the first token without "=", or -1.
func executableIndex(tokens []string) int {
	for i, t := range tokens {
		if !strings.Contains(t, "=") {
			return i
		}
	}
	return -1
}

// Returns the command line as configured.
func (c Command) Raw() string {
	return c.raw
}

// Returns all words, assignments included, quoted so that [Split] reads
// them back unchanged.
func (c Command) String() string {
	return Join(c.tokens)
}

// Returns the leading NAME=VALUE assignments.
func (c Command) Env() []string {
	return append([]string(nil), c.tokens[:c.exe]...)
}

// Returns the executable followed by its arguments.
func (c Command) Argv() []string {
	return append([]string(nil), c.tokens[c.exe:]...)
}

// Returns the executable word.
func (c Command) Executable() string {
	return c.tokens[c.exe]
}
