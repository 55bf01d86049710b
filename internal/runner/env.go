package runner

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Variables copied from the daemon's environment into every child, if set.
var InheritedEnv = []string{"HOME", "PATH", "USER", "SHELL", "TERM"}

// Builds the child environment for a command.
//
// Starts empty, copies each name in inherit that lookup reports as set, then
// applies assignments, which are NAME=VALUE strings split at the first "=".
// The result is sorted and never nil, so it can be assigned to exec.Cmd.Env
// without falling back to the daemon's environment.
func buildEnv(inherit []string, lookup func(string) (string, bool), assignments []string) []string {
	base := make([]string, 0, len(inherit))
	for _, name := range inherit {
		if v, ok := lookup(name); ok {
			base = append(base, name+"="+v)
		}
	}
	return mergeEnv(base, assignments)
}

// Merges override env vars on top of a base env slice.
//
// Entries without "=" are skipped. The result is sorted by entry.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// Returns the value of name in env, an exec.Cmd style environment.
func lookupEnv(env []string, name string) (string, bool) {
	for _, entry := range env {
		if k, v, ok := strings.Cut(entry, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}

// Resolves an executable name the way execvp does, but against the PATH of
// the child environment rather than the daemon's.
//
// Names containing a slash are returned unchanged. Empty PATH entries mean
// the current directory.
func lookPath(name string, env []string) (string, error) {
	if name == "" {
		return "", os.ErrNotExist
	}
	if strings.Contains(name, "/") {
		return name, nil
	}

	path, _ := lookupEnv(env, "PATH")
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", errNotFound
}

// Whether path is a regular file with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
