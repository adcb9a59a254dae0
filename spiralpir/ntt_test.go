package spiralpir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNTTRoundTrip(t *testing.T) {
	table, ok := BuildNTTTable(2048, 268369921)
	require.True(t, ok)

	t.Run("ValueAtZero", func(t *testing.T) {
		a := make([]uint64, 2048)
		a[0] = 100
		table.NTTForward(a)
		table.NTTInverse(a)
		require.Equal(t, uint64(100), a[0])
		for i := 1; i < len(a); i++ {
			require.Equal(t, uint64(0), a[i])
		}
	})

	t.Run("ValueAtHighestDegree", func(t *testing.T) {
		a := make([]uint64, 2048)
		a[2047] = 100
		table.NTTForward(a)
		table.NTTInverse(a)
		require.Equal(t, uint64(100), a[2047])
		for i := 0; i < len(a)-1; i++ {
			require.Equal(t, uint64(0), a[i])
		}
	})
}
