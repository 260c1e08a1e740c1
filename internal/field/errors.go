package field

import "errors"

// ErrDegeneratePoint is returned by kernels when an evaluation point lies on
// a filament. Evaluators pass it through unchanged.
var ErrDegeneratePoint = errors.New("evaluation point on filament")
