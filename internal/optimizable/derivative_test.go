package optimizable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivative_AddKeyWise(t *testing.T) {
	a, b, _, d := diamond()

	d1 := Of(a, []float64{1, 2})
	d2 := Of(a, []float64{10, 20}).Add(Of(b, []float64{5}))

	sum := d1.Add(d2)
	assert.Equal(t, []float64{11, 22}, sum.Get(a))
	assert.Equal(t, []float64{5}, sum.Get(b))
	assert.Equal(t, []float64{1, 2}, d1.Get(a), "operands are not mutated")

	assert.Equal(t, []float64{11, 22, 5, 0}, sum.Flatten(d))
}

func TestDerivative_AddInPlaceOnZeroValue(t *testing.T) {
	a, _, _, _ := diamond()

	var acc Derivative
	acc.AddInPlace(Of(a, []float64{1, 1}))
	acc.AddInPlace(Of(a, []float64{2, 3}))

	assert.Equal(t, []float64{3, 4}, acc.Get(a))
	assert.Equal(t, 1, acc.Len())
}

func TestDerivative_ProjectsFixed(t *testing.T) {
	a, _, _, d := diamond()
	require.NoError(t, a.Fix("a0"))

	g := Of(a, []float64{7, 9})
	assert.Equal(t, []float64{9}, g.Get(a))
	assert.Equal(t, []float64{9, 0, 0}, g.Flatten(d))

	a.FixAll()
	assert.Equal(t, 0, Of(a, []float64{1, 2}).Len())
}

func TestDerivative_Scale(t *testing.T) {
	a, _, _, _ := diamond()

	g := Of(a, []float64{1, -2}).Scale(3)
	assert.Equal(t, []float64{3, -6}, g.Get(a))
}

func TestDerivative_FlattenIgnoresForeignNodes(t *testing.T) {
	a, _, _, _ := diamond()
	other := New("Other", []string{"z"}, []float64{0})

	g := Of(other, []float64{4}).Add(Of(a, []float64{1, 2}))
	assert.Equal(t, []float64{1, 2}, g.Flatten(a))
}

func TestDerivative_WrongLengthPanics(t *testing.T) {
	a, _, _, _ := diamond()
	assert.Panics(t, func() { Of(a, []float64{1}) })
}
