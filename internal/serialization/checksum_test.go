package serialization

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChecksum(t *testing.T) {
	a := ComputeChecksum([]byte("dofs"))
	assert.Equal(t, a, ComputeChecksum([]byte("dofs")))
	assert.NotEqual(t, a, ComputeChecksum([]byte("dofz")))
}

func TestComputeChecksumReader(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 4}, 4096)
	sum, err := ComputeChecksumReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum(data), sum)
}

func TestValidateChecksum(t *testing.T) {
	a := ComputeChecksum([]byte("a"))
	b := ComputeChecksum([]byte("b"))
	require.NoError(t, ValidateChecksum(a, a))
	assert.ErrorIs(t, ValidateChecksum(a, b), ErrChecksumMismatch)
}
