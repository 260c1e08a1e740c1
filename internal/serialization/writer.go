package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Writer writes snapshots in .coil format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .coil file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: snapshot path comes from the user
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// Write writes one snapshot. A writer holds a single snapshot.
func (w *Writer) Write(s *Snapshot) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	buf := bufio.NewWriter(w.file)
	if err := WriteTo(buf, s); err != nil {
		return err
	}
	return buf.Flush()
}

// Close closes the writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteSnapshot writes s to path.
func WriteSnapshot(path string, s *Snapshot) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(s); err != nil {
		_ = w.Close() // Best effort close on error
		return err
	}
	return w.Close()
}

// buildHeader lays out the data section and returns the header and data.
func buildHeader(s *Snapshot) (Header, []byte, error) {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	header := Header{
		FormatVersion: FormatVersion,
		Version:       Version,
		CreatedAt:     createdAt,
		Owners:        make([]OwnerMeta, 0, len(s.Owners)),
		Objective:     s.Objective,
		RunID:         s.RunID,
		Metadata:      s.Metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	data := make([]byte, 0, s.Size()*ValueSize)
	var offset int64
	for _, o := range s.Owners {
		if len(o.DofNames) != len(o.Values) || len(o.Free) != len(o.Values) {
			return Header{}, nil, &ValidationError{
				Type:  "size_mismatch",
				Owner: o.Name,
				Details: fmt.Sprintf("%d names, %d values, %d free flags",
					len(o.DofNames), len(o.Values), len(o.Free)),
			}
		}
		if err := ValidateOwnerName(o.Name); err != nil {
			return Header{}, nil, err
		}
		size := int64(len(o.Values) * ValueSize)
		header.Owners = append(header.Owners, OwnerMeta{
			Name:     o.Name,
			DofNames: o.DofNames,
			Free:     o.Free,
			Offset:   offset,
			Size:     size,
		})
		for _, v := range o.Values {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
		offset += size
	}
	return header, data, nil
}

// WriteTo writes s in .coil format to an io.Writer.
func WriteTo(w io.Writer, s *Snapshot) error {
	header, data, err := buildHeader(s)
	if err != nil {
		return err
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	headerSize := uint64(len(headerJSON))
	checksum := ComputeChecksum(data)

	fixedHeader := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes "COIL"
	copy(fixedHeader[0:4], MagicBytes)

	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	// 0x08-0x0B: Flags
	flags := uint32(0)
	if header.Objective != nil {
		flags |= FlagHasObjective
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.RunID != "" {
		flags |= FlagHasRun
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixedHeader[16:24], headerSize)

	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))

	// 0x20-0x3F: SHA-256 checksum
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize on read
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write dof data: %w", err)
	}
	return nil
}
