//go:build !unix

package runner

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func signalName(sig syscall.Signal) string {
	return sig.String()
}
