package importcli

import "errors"

// Sentinel errors for import runs.
var (
	ErrEmptyFile    = errors.New("no rows in file")
	ErrNoDate       = errors.New("no date given and none in file name")
	ErrRejected     = errors.New("import rejected")
	ErrBackpressure = errors.New("server import queue full")
)
