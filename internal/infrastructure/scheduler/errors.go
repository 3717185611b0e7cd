package scheduler

import "errors"

// ErrInvalidConfig is returned when sweeper configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")
