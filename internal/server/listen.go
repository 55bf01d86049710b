package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/user"
	"strconv"
)

const (

	// File mode applied to the Unix socket. Owner and group get read-write
	// (required for connect); others get no access.
	socketMode = 0660

	// Umask in effect while the socket is bound, so the file is never
	// created with wider permissions than socketMode.
	socketUmask = 0117
)

// Creates a Unix socket listener at socketPath.
//
// A stale socket or empty file at the path is removed first. A non-empty
// regular file or a directory is left alone and [ErrPathOccupied] returned
// before any socket is created. The socket is bound with a restrictive
// umask, chmodded to 0660, and, if group is non-empty, handed to that group.
func Listen(socketPath, group string) (net.Listener, error) {
	if err := clearSocketPath(socketPath); err != nil {
		return nil, err
	}

	var listener net.Listener
	err := withUmask(socketUmask, func() error {
		var err error
		listener, err = net.Listen("unix", socketPath)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not open socket %s: %w", ErrServer, socketPath, err)
	}

	if err := setSocketPermissions(socketPath, group); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// Removes a leftover socket artifact, refusing to destroy user data.
func clearSocketPath(socketPath string) error {
	info, err := os.Lstat(socketPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServer, err)
	}

	switch {
	case info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrPathOccupied, socketPath)
	case info.Mode().IsRegular() && info.Size() > 0:
		return fmt.Errorf("%w: %s is a non-empty file", ErrPathOccupied, socketPath)
	}

	slog.Debug("removing old socket file", "path", socketPath)
	if err := os.Remove(socketPath); err != nil {
		return fmt.Errorf("%w: could not remove %s: %w", ErrServer, socketPath, err)
	}
	return nil
}

// Restricts socket access to owner and group, and optionally changes the
// socket's group so its members can connect.
func setSocketPermissions(socketPath, group string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return fmt.Errorf("%w: could not set socket permissions on %s: %w", ErrServer, socketPath, err)
	}

	if group == "" {
		return nil
	}

	g, err := user.LookupGroup(group)
	if err != nil {
		slog.Warn("socket group not found, socket keeps its default group", "group", group, "error", err)
		return nil
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		slog.Warn("socket group has a non-numeric id", "group", group, "gid", g.Gid)
		return nil
	}
	if err := os.Chown(socketPath, -1, gid); err != nil {
		slog.Warn("failed to chgrp socket", "group", group, "error", err)
	}
	return nil
}
