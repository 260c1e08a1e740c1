package serialization

import (
	"crypto/sha256"
	"fmt"
	"io"
)

// ComputeChecksum returns the SHA-256 digest of a data section.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader hashes everything read from r. The reader uses it
// on the data section as it streams in, so the section is read once.
func ComputeChecksumReader(r io.Reader) ([ChecksumSize]byte, error) {
	var sum [ChecksumSize]byte
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return sum, err
	}
	h.Sum(sum[:0])
	return sum, nil
}

// ValidateChecksum compares the digest computed on read with the one stored
// in the fixed header.
func ValidateChecksum(computed, stored [ChecksumSize]byte) error {
	if computed == stored {
		return nil
	}
	return fmt.Errorf("%w: stored %x…, computed %x…", ErrChecksumMismatch, stored[:4], computed[:4])
}
