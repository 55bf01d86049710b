//go:build unix

package runner

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Places the child in its own process group so terminal signals aimed at the
// daemon do not reach in-flight commands.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
