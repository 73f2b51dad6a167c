package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrBackpressure = errors.New("import queue full")
	ErrNotStarted   = errors.New("service not started")
)
