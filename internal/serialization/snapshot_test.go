package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coilopt/coilopt/internal/optimizable"
)

// graph builds curve -> coil <- current with one fixed dof.
func graph(t *testing.T) (root, curve, current *optimizable.Optimizable) {
	t.Helper()
	curve = optimizable.New("Curve", []string{"xc(0)", "xs(1)", "yc(1)"}, []float64{1, 0.5, 0.5})
	current = optimizable.New("Current", []string{"I"}, []float64{1e5})
	require.NoError(t, current.Fix("I"))
	root = optimizable.New("Coil", nil, nil, curve, current)
	return root, curve, current
}

func TestCaptureSkipsDoflessNodes(t *testing.T) {
	root, curve, current := graph(t)
	s := Capture(root)

	require.Len(t, s.Owners, 2)
	assert.Equal(t, curve.Name(), s.Owners[0].Name)
	assert.Equal(t, current.Name(), s.Owners[1].Name)
	assert.Equal(t, []bool{false}, s.Owners[1].Free)
	assert.Equal(t, 4, s.Size())
}

func TestSnapshotRoundTrip(t *testing.T) {
	root, _, _ := graph(t)
	j := 0.125
	s := Capture(root)
	s.Objective = &j
	s.RunID = "run-1"
	s.Metadata = map[string]string{"stage": "2"}

	path := filepath.Join(t.TempDir(), "coils.coil")
	require.NoError(t, WriteSnapshot(path, s))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got.Owners, 2)
	assert.Equal(t, s.Owners, got.Owners)
	require.NotNil(t, got.Objective)
	assert.Equal(t, j, *got.Objective)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "2", got.Metadata["stage"])
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestApplyToFreshGraph(t *testing.T) {
	root, curve, _ := graph(t)
	require.NoError(t, curve.Set("xs(1)", 0.75))
	require.NoError(t, curve.Fix("yc(1)"))

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, Capture(root)))
	s, _, err := ReadFrom(&buf, ReaderOptions{})
	require.NoError(t, err)

	fresh, freshCurve, freshCurrent := graph(t)
	require.NoError(t, freshCurrent.Unfix("I"))
	require.NoError(t, s.Apply(fresh))

	assert.Equal(t, []float64{1, 0.75, 0.5}, freshCurve.FullX())
	assert.Equal(t, root.X(), fresh.X())
	assert.Equal(t, 2, fresh.DofSize())
	assert.False(t, freshCurrent.Dofs().IsFree(0))
}

func TestApplyGraphMismatch(t *testing.T) {
	root, _, _ := graph(t)
	s := Capture(root)

	other := optimizable.New("Current", []string{"I"}, []float64{1})
	assert.ErrorIs(t, s.Apply(other), ErrGraphMismatch)

	renamed := optimizable.New("Coil", nil, nil,
		optimizable.New("Curve", []string{"xc(0)", "xs(1)", "zc(1)"}, []float64{1, 0, 0}),
		optimizable.New("Current", []string{"I"}, []float64{1}))
	assert.ErrorIs(t, s.Apply(renamed), ErrGraphMismatch)
}

func TestFixedHeaderFlags(t *testing.T) {
	root, _, _ := graph(t)
	s := Capture(root)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, s))
	raw := buf.Bytes()
	assert.Equal(t, MagicBytes, string(raw[0:4]))
	assert.Equal(t, uint32(FormatVersion), binary.LittleEndian.Uint32(raw[4:8]))
	assert.Zero(t, binary.LittleEndian.Uint32(raw[8:12]))
	assert.Equal(t, uint64(4*ValueSize), binary.LittleEndian.Uint64(raw[24:32]))
	assert.Zero(t, (len(raw)-4*ValueSize)%HeaderAlignment)

	j := 1.0
	s.Objective = &j
	s.RunID = "r"
	buf.Reset()
	require.NoError(t, WriteTo(&buf, s))
	flags := binary.LittleEndian.Uint32(buf.Bytes()[8:12])
	assert.Equal(t, uint32(FlagHasObjective|FlagHasRun), flags)
}

func TestReadCorruption(t *testing.T) {
	root, _, _ := graph(t)
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, Capture(root)))
	good := buf.Bytes()

	t.Run("checksum", func(t *testing.T) {
		raw := bytes.Clone(good)
		raw[len(raw)-1] ^= 0xff
		_, _, err := ReadFrom(bytes.NewReader(raw), ReaderOptions{})
		assert.ErrorIs(t, err, ErrChecksumMismatch)

		_, _, err = ReadFrom(bytes.NewReader(raw), ReaderOptions{SkipChecksumValidation: true})
		assert.NoError(t, err)
	})

	t.Run("magic", func(t *testing.T) {
		raw := bytes.Clone(good)
		copy(raw, "SAFE")
		_, _, err := ReadFrom(bytes.NewReader(raw), ReaderOptions{})
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		raw := bytes.Clone(good)
		binary.LittleEndian.PutUint32(raw[4:8], FormatVersion+1)
		_, _, err := ReadFrom(bytes.NewReader(raw), ReaderOptions{})
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("header size", func(t *testing.T) {
		raw := bytes.Clone(good)
		binary.LittleEndian.PutUint64(raw[16:24], MaxHeaderSize+1)
		_, _, err := ReadFrom(bytes.NewReader(raw), ReaderOptions{})
		assert.ErrorIs(t, err, ErrHeaderTooLarge)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := ReadFrom(bytes.NewReader(good[:len(good)-3]), ReaderOptions{})
		assert.Error(t, err)
	})
}

func TestWriteRejectsInconsistentOwner(t *testing.T) {
	s := &Snapshot{Owners: []OwnerState{{
		Name:     "Curve1",
		DofNames: []string{"a", "b"},
		Values:   []float64{1},
		Free:     []bool{true, true},
	}}}
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteTo(&buf, s), ErrOutOfBounds)
}

// encodeRaw lays out header and data exactly as WriteTo does, without any
// of WriteTo's consistency checks.
func encodeRaw(t *testing.T, h Header, data []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(h)
	require.NoError(t, err)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	sum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	out := append(fixed, headerJSON...)
	pad := (HeaderAlignment - len(out)%HeaderAlignment) % HeaderAlignment
	out = append(out, make([]byte, pad)...)
	return append(out, data...)
}

func TestReadRejectsOverflowingOwner(t *testing.T) {
	h := Header{
		FormatVersion: FormatVersion,
		Owners: []OwnerMeta{{
			Name:     "Curve1",
			DofNames: []string{"x"},
			Free:     []bool{true},
			Offset:   math.MaxInt64 - 7,
			Size:     8,
		}},
	}
	raw := encodeRaw(t, h, nil)

	for _, level := range []ValidationLevel{ValidationStrict, ValidationNormal, ValidationNone} {
		var err error
		require.NotPanics(t, func() {
			_, _, err = ReadFrom(bytes.NewReader(raw), ReaderOptions{ValidationLevel: level})
		})
		assert.ErrorIs(t, err, ErrOutOfBounds, "level %d", level)
	}

	h.Owners[0].Offset = math.MaxInt64 - 3
	_, _, err := ReadFrom(bytes.NewReader(encodeRaw(t, h, nil)), ReaderOptions{})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestReadRejectsMisalignedOwner(t *testing.T) {
	h := Header{
		FormatVersion: FormatVersion,
		Owners: []OwnerMeta{{
			Name:     "Current1",
			DofNames: []string{"I"},
			Free:     []bool{true},
			Offset:   4,
			Size:     8,
		}},
	}
	_, _, err := ReadFrom(bytes.NewReader(encodeRaw(t, h, make([]byte, 16))), ReaderOptions{ValidationLevel: ValidationNone})
	assert.ErrorIs(t, err, ErrMisaligned)
}
