//go:build !unix

package server

func withUmask(_ int, f func() error) error {
	return f()
}
