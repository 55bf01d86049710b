package server

import "errors"

var (
	ErrServer       = errors.New("server error")
	ErrPathOccupied = errors.New("refusing to remove existing file at socket path")
)
