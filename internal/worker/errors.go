package worker

import "errors"

var errQueueFull = errors.New("call log queue full")
