package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// ReaderOptions configures how snapshots are read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// ReadSnapshot reads a .coil file with strict validation.
func ReadSnapshot(path string) (*Snapshot, error) {
	return ReadSnapshotWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// ReadSnapshotWithOptions reads a .coil file with custom options.
func ReadSnapshotWithOptions(path string, opts ReaderOptions) (*Snapshot, error) {
	//nolint:gosec // G304: snapshot path comes from the user
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	s, _, err := ReadFrom(bufio.NewReader(file), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadFrom decodes one snapshot from r and also returns the raw header.
func ReadFrom(r io.Reader, opts ReaderOptions) (*Snapshot, *Header, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return nil, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}

	// 0x00-0x03: magic
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, nil, ErrInvalidMagic
	}

	// 0x04-0x07: version
	version := binary.LittleEndian.Uint32(fixedHeader[4:8])
	if version != FormatVersion {
		return nil, nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	// 0x10-0x17: header size, 0x18-0x1F: data size
	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	dataSize := binary.LittleEndian.Uint64(fixedHeader[24:32])
	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}

	// 0x20-0x3F: checksum
	var stored [32]byte
	copy(stored[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	if dataSize > math.MaxInt64 {
		return nil, nil, &ValidationError{
			Type:    "out_of_bounds",
			Details: fmt.Sprintf("data size %d", dataSize),
		}
	}
	if err := ValidateHeader(&header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	var data bytes.Buffer
	computed, err := ComputeChecksumReader(io.TeeReader(io.LimitReader(r, int64(dataSize)), &data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dof data: %w", err)
	}
	if uint64(data.Len()) != dataSize {
		return nil, nil, fmt.Errorf("failed to read dof data: %w", io.ErrUnexpectedEOF)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(computed, stored); err != nil {
			return nil, nil, err
		}
	}

	raw := data.Bytes()
	s := &Snapshot{
		Owners:    make([]OwnerState, len(header.Owners)),
		Objective: header.Objective,
		RunID:     header.RunID,
		Metadata:  header.Metadata,
		CreatedAt: header.CreatedAt,
	}
	for i, o := range header.Owners {
		if err := checkOwnerRegion(o, int64(len(raw))); err != nil {
			return nil, nil, fmt.Errorf("corrupt snapshot: %w", err)
		}
		n := int(o.Size / ValueSize)
		values := make([]float64, n)
		for k := range values {
			off := o.Offset + int64(k*ValueSize)
			values[k] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off : off+ValueSize]))
		}
		s.Owners[i] = OwnerState{
			Name:     o.Name,
			DofNames: o.DofNames,
			Values:   values,
			Free:     o.Free,
		}
	}
	return s, &header, nil
}
