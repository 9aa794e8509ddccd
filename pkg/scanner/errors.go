package scanner

import "errors"

// Scanner errors
var (
	// ErrAlreadyRunning indicates the scanner is already running
	ErrAlreadyRunning = errors.New("scanner is already running")

	// ErrNotRunning indicates the scanner is not running
	ErrNotRunning = errors.New("scanner is not running")

	// ErrInvalidConfig indicates invalid scanner configuration
	ErrInvalidConfig = errors.New("invalid scanner configuration")

	// ErrConfigVersion indicates unsupported config file version
	ErrConfigVersion = errors.New("unsupported configuration version")
)
