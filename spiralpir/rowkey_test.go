package spiralpir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowFromKeyIsDeterministicAndInRange(t *testing.T) {
	const numItems = 1 << 15

	ca1 := RowFromKey("CA", numItems)
	ca2 := RowFromKey("CA", numItems)
	require.Equal(t, ca1, ca2)
	require.GreaterOrEqual(t, ca1, 0)
	require.Less(t, ca1, numItems)

	or := RowFromKey("OR", numItems)
	require.NotEqual(t, ca1, or, "distinct keys should not collide for this table size")
}
