package geo

import "errors"

// Common errors.
var (
	ErrSingularGeometry = errors.New("singular geometry")
	ErrInvalidCurve     = errors.New("invalid curve parameters")
	ErrInvalidSurface   = errors.New("invalid surface parameters")
)
