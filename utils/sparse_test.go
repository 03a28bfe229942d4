package utils

import (
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
)

func testMatrix() *sparse.CSR {
	d := sparse.NewDOK(3, 3)
	d.Set(0, 0, 2)
	d.Set(0, 2, -3)
	d.Set(1, 1, 1)
	d.Set(2, 0, 4)
	d.Set(2, 2, 0.5)
	return d.ToCSR()
}

func TestSparseInfNorm(t *testing.T) {
	assert.Equal(t, 5.0, SparseInfNorm(testMatrix()))
	assert.Equal(t, 0.0, SparseInfNorm(sparse.NewDOK(2, 2)))
}

func TestSparseMulVec(t *testing.T) {
	dst := []float64{7, 7, 7} // stale values must be cleared
	SparseMulVec(dst, testMatrix(), []float64{1, 2, 3})
	assert.InDelta(t, -7.0, dst[0], 1e-14)
	assert.InDelta(t, 2.0, dst[1], 1e-14)
	assert.InDelta(t, 5.5, dst[2], 1e-14)
}

func TestSparseToDense(t *testing.T) {
	m := testMatrix()
	d := SparseToDense(m)
	r, c := d.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), d.At(i, j), "entry %d,%d", i, j)
		}
	}
}
