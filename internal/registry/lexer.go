package registry

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

var errNullByte = errors.New("null byte in command line")

// Splits a command line into words using sh quoting rules.
//
// Whitespace separates words. Single quotes, double quotes and backslashes
// quote as they do in sh, and a backslash before a newline joins lines.
// Every other character is literal: "$HOME", "a|b", "x&y" and "#" reach the
// command exactly as written, since the words are never handed to a shell.
// Unterminated quotes and a trailing backslash are errors.
func Split(line string) ([]string, error) {
	if strings.IndexByte(line, 0) >= 0 {
		return nil, errNullByte
	}

	words, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	return words, nil
}

// Quotes words so that [Split] returns them unchanged.
func Join(words []string) string {
	return shellquote.Join(words...)
}
