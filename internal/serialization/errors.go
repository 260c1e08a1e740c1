package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("owner offsets overlap")
	ErrOutOfBounds        = errors.New("owner extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrMisaligned         = errors.New("owner region not aligned to float64 values")
	ErrTooManyOwners      = errors.New("too many owners in file")
	ErrInvalidOwnerName   = errors.New("invalid owner name")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrGraphMismatch      = errors.New("snapshot does not match graph")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Owner   string // Primary owner name involved
	Owner2  string // Secondary owner name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Owner2 != "" {
		return fmt.Sprintf("%s: owners %q and %q: %s", e.Type, e.Owner, e.Owner2, e.Details)
	}
	if e.Owner != "" {
		return fmt.Sprintf("%s: owner %q: %s", e.Type, e.Owner, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap maps the error type to its sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	switch e.Type {
	case "offset_overlap":
		return ErrOffsetOverlap
	case "out_of_bounds", "size_mismatch":
		return ErrOutOfBounds
	case "negative_offset":
		return ErrNegativeOffset
	case "misaligned":
		return ErrMisaligned
	case "too_many_owners":
		return ErrTooManyOwners
	case "invalid_name", "name_too_long":
		return ErrInvalidOwnerName
	}
	return nil
}
