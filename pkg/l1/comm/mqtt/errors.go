package mqtt

import "errors"

// ErrReadOnly indicates writing to a ReadWriter without a publish topic.
var ErrReadOnly = errors.New("no publish topic")
