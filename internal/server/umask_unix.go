//go:build unix

package server

import "golang.org/x/sys/unix"

// Runs f with the process umask set to mask, restoring it afterwards.
func withUmask(mask int, f func() error) error {
	old := unix.Umask(mask)
	defer unix.Umask(old)
	return f()
}
