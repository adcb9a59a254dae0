package doublepir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSquishUnsquishAreInverses(t *testing.T) {
	sp := SquishParams{Basis: 10, Delta: 3}
	m, err := RandomMod(10, 35, 1<<sp.Basis)
	require.NoError(t, err)

	squished, err := m.Squish(sp)
	require.NoError(t, err)
	unsquished, err := squished.Unsquish(sp, m.Cols)
	require.NoError(t, err)

	require.Equal(t, m.Data, unsquished.Data)
}

func TestSquishRejectsOversizedParams(t *testing.T) {
	sp := SquishParams{Basis: 20, Delta: 10}
	m := NewMatrix(2, 2)
	_, err := m.Squish(sp)
	require.Error(t, err)
}
