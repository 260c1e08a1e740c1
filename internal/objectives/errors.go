package objectives

import "errors"

// ErrInvalidParameter is returned for objective parameters outside their domain.
var ErrInvalidParameter = errors.New("invalid objective parameter")
