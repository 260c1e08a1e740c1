package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize   = 64 * 1024 * 1024 // 64MB - maximum header size
	MaxOwnerCount   = 100_000          // Maximum number of owners in a file
	MaxOwnerNameLen = 1024             // Maximum owner name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and sizes but not offsets.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateOwnerOffsets checks for overlapping owner regions and
// out-of-bounds access.
func ValidateOwnerOffsets(owners []OwnerMeta, dataSize int64) error {
	if len(owners) > MaxOwnerCount {
		return &ValidationError{
			Type:    "too_many_owners",
			Details: fmt.Sprintf("got %d, max %d", len(owners), MaxOwnerCount),
		}
	}

	sorted := make([]OwnerMeta, len(owners))
	copy(sorted, owners)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, o := range sorted {
		if err := checkOwnerRegion(o, dataSize); err != nil {
			return err
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if o.Offset+o.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Owner:   o.Name,
					Owner2:  next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						o.Offset, o.Offset+o.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}

	return nil
}

// checkOwnerRegion rejects a region that is negative, misaligned or not
// inside [0, dataSize). The comparison is arranged so it cannot overflow.
func checkOwnerRegion(o OwnerMeta, dataSize int64) error {
	if o.Offset < 0 || o.Size < 0 {
		return &ValidationError{
			Type:    "negative_offset",
			Owner:   o.Name,
			Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", o.Offset, o.Size),
		}
	}
	if o.Offset%ValueSize != 0 || o.Size%ValueSize != 0 {
		return &ValidationError{
			Type:    "misaligned",
			Owner:   o.Name,
			Details: fmt.Sprintf("offset=%d, size=%d not multiples of %d", o.Offset, o.Size, ValueSize),
		}
	}
	if o.Size > dataSize || o.Offset > dataSize-o.Size {
		return &ValidationError{
			Type:    "out_of_bounds",
			Owner:   o.Name,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", o.Offset, o.Size, dataSize),
		}
	}
	return nil
}

// ValidateOwnerName rejects empty, oversized or control-character names.
func ValidateOwnerName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty owner name"}
	}
	if len(name) > MaxOwnerNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Owner:   name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxOwnerNameLen),
		}
	}
	if strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return &ValidationError{
			Type:    "invalid_name",
			Owner:   name,
			Details: "contains control character",
		}
	}
	return nil
}

// ValidateOwnerShape checks that the per-dof arrays agree with the data size.
func ValidateOwnerShape(o OwnerMeta) error {
	if len(o.DofNames) != len(o.Free) || int64(len(o.DofNames))*ValueSize != o.Size {
		return &ValidationError{
			Type:  "size_mismatch",
			Owner: o.Name,
			Details: fmt.Sprintf("%d names, %d free flags, %d bytes",
				len(o.DofNames), len(o.Free), o.Size),
		}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Owners) > MaxOwnerCount {
		return &ValidationError{
			Type:    "too_many_owners",
			Details: fmt.Sprintf("got %d, max %d", len(h.Owners), MaxOwnerCount),
		}
	}

	for _, o := range h.Owners {
		if err := ValidateOwnerName(o.Name); err != nil {
			return err
		}
		if err := ValidateOwnerShape(o); err != nil {
			return err
		}
	}

	if level == ValidationStrict {
		if err := ValidateOwnerOffsets(h.Owners, dataSize); err != nil {
			return err
		}
	}

	return nil
}
