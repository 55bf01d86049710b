package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Daemon name, used for logging groups, default paths and the CLI.
	Name = "triggerd"

	// Placeholder for build variables that were not injected.
	defaultUndefined = "(undefined)"

	// Version string reported by builds made outside the release pipeline.
	defaultLocalBuild = "(local)"

	// Branch whose builds omit the stage suffix.
	mainBranch = "main"
)

var (
	version   = "" // Release version, e.g. "1.2.3".
	stage     = "" // Git branch the build was cut from.
	gitCommit = "" // Commit hash of the build.

	rawQuiet = "false" // Default for quiet mode.
	rawDebug = "false" // Default for debug mode.
)

// Returns the release version without any leading "v".
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns the lower-cased build stage.
func Stage() string {
	s := strings.TrimSpace(stage)
	if s == "" {
		return defaultUndefined
	}
	return strings.ToLower(s)
}

// Returns the commit hash of the build.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns true unless version, stage and commit were all injected.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns "<version>[+<stage>] <commit> [<arch>]", or "(local)" for builds
// made outside the release pipeline.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	s := ""
	if st := Stage(); st != mainBranch {
		s = "+" + st
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), s, GitCommit(), runtime.GOARCH)
}
