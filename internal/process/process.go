// Package process stops the headless browser used by preview checks
// together with the renderer and GPU processes it forks.
package process

import "errors"

// ErrInvalidPID is returned for pids that cannot lead a process group.
var ErrInvalidPID = errors.New("invalid pid")
