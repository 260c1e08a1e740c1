package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "COIL"
	FormatVersion   = 1    // v1: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align dof data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	ValueSize       = 8    // float64
)

// Flags for the .coil format.
const (
	FlagHasObjective uint32 = 1 << 0 // bit 0: objective value recorded
	FlagHasMetadata  uint32 = 1 << 1 // bit 1: custom metadata included
	FlagHasRun       uint32 = 1 << 2 // bit 2: linked to a stored run
)

// Header represents the JSON header in a .coil file.
type Header struct {
	FormatVersion int               `json:"format_version"`      // Version of the .coil format
	Version       string            `json:"coilopt_version"`     // Version of coilopt that created this file
	CreatedAt     time.Time         `json:"created_at"`          // When the file was created
	Owners        []OwnerMeta       `json:"owners"`              // Dof owner metadata
	Objective     *float64          `json:"objective,omitempty"` // Objective value at these dofs
	RunID         string            `json:"run_id,omitempty"`    // Run this snapshot belongs to
	Metadata      map[string]string `json:"metadata"`            // Custom metadata
}

// OwnerMeta describes one dof owner in the .coil file.
type OwnerMeta struct {
	Name     string   `json:"name"`      // Node name (e.g. "CurveXYZFourier1")
	DofNames []string `json:"dof_names"` // Local dof names
	Free     []bool   `json:"free"`      // Free flag per dof
	Offset   int64    `json:"offset"`    // Offset in the data section (bytes)
	Size     int64    `json:"size"`      // Size in bytes
}

// Version is the coilopt version written into new files.
var Version = "0.1.0"
