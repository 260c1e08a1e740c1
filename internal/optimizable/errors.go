package optimizable

import "errors"

// Common errors.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrDofNotFound       = errors.New("dof not found")
)
