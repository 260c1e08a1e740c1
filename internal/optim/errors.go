package optim

import "errors"

// Common errors.
var (
	ErrNonFinite = errors.New("objective is not finite")
)
