package doublepir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandContractAreInverses(t *testing.T) {
	cp := ContractParams{Modulus: 552, Delta: 4}
	m, err := RandomMod(8, 35, 0xFFFFFFFF)
	require.NoError(t, err)

	expanded := m.Expand(cp)
	contracted := expanded.Contract(cp)

	require.Equal(t, m.Rows, contracted.Rows)
	require.Equal(t, m.Cols, contracted.Cols)
	require.Equal(t, m.Data, contracted.Data)
}

func TestMatrixMulDimensions(t *testing.T) {
	a := NewMatrix(3, 4)
	b := NewMatrix(4, 2)
	c, err := a.Mul(b)
	require.NoError(t, err)
	require.Equal(t, 3, c.Rows)
	require.Equal(t, 2, c.Cols)

	_, err = b.Mul(a) // 4x2 * 3x4: cols(b)=2 != rows(a)=3
	require.Error(t, err)
}
