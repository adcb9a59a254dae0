package doublepir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blyss-go/pir/gaussian"
)

func testProtocolParams() Params {
	return Params{N: 8, Sigma: 6.4, L: 16, M: 16, LogQ: 32, P: 991}
}

// testDbInfo builds an unpacked, single-component DbInfo (Packing: 0, Ne: 1)
// so item indices map directly onto (row, col) without NewDbInfo's
// bits-per-entry-driven packing decision.
func testDbInfo(params Params) DbInfo {
	return DbInfo{
		NumEntries:   uint64(params.L * params.M),
		BitsPerEntry: 32,
		Packing:      0,
		Ne:           1,
		X:            1,
		P:            params.P,
		LogQ:         params.LogQ,
		Squish:       DefaultSquishParams(),
		OrigCols:     params.M,
	}
}

func TestSingleQueryRecoversEntry(t *testing.T) {
	params := testProtocolParams()
	info := testDbInfo(params)

	db := NewDb(info, params)
	for r := 0; r < params.L; r++ {
		for c := 0; c < params.M; c++ {
			db.Data.Set(r, c, uint32((r*7+c*3)%int(params.P)))
		}
	}
	db.Data = db.Data.Apply(func(x uint32) uint32 { return x - uint32(params.P/2) })

	shared, err := Init(params.L, params.M, params.N)
	require.NoError(t, err)

	server, hint, err := Setup(db, shared, params)
	require.NoError(t, err)

	dg := gaussian.Build(params.Sigma)
	targetRow, targetCol := 5, 9
	targetIdx := targetRow*params.M + targetCol
	want := uint64((targetRow*7 + targetCol*3) % int(params.P))

	client, query, err := GenerateQuery(targetIdx, info, params, dg)
	require.NoError(t, err)

	answer, err := ProcessAnswer(db, []*Query{query}, server, params)
	require.NoError(t, err)

	got, err := Recover(targetIdx, 0, hint, query, answer, shared, client, params, info)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestBatchedQueriesRecoverDistinctEntries(t *testing.T) {
	params := testProtocolParams()
	info := testDbInfo(params)

	db := NewDb(info, params)
	for r := 0; r < params.L; r++ {
		for c := 0; c < params.M; c++ {
			db.Data.Set(r, c, uint32((r*11+c*5)%int(params.P)))
		}
	}
	db.Data = db.Data.Apply(func(x uint32) uint32 { return x - uint32(params.P/2) })

	shared, err := Init(params.L, params.M, params.N)
	require.NoError(t, err)

	server, hint, err := Setup(db, shared, params)
	require.NoError(t, err)

	dg := gaussian.Build(params.Sigma)

	// Rows [0,8) and [8,16) are the two batch partitions (L=16, 2 queries).
	idx1 := 2*params.M + 3  // row 2, partition 0
	idx2 := 10*params.M + 7 // row 10, partition 1

	queries, states, slots, err := GenerateQueryBatch([]int{idx1, idx2}, info, params, dg)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	require.True(t, slots[0].Served)
	require.True(t, slots[1].Served)
	require.Equal(t, idx1, slots[0].RequestedIndex)
	require.Equal(t, idx2, slots[1].RequestedIndex)

	answer, err := ProcessAnswer(db, queries, server, params)
	require.NoError(t, err)

	got1, err := Recover(idx1, 0, hint, queries[0], answer, shared, states[0], params, info)
	require.NoError(t, err)
	require.Equal(t, uint64((2*11+3*5)%int(params.P)), got1)

	got2, err := Recover(idx2, 1, hint, queries[1], answer, shared, states[1], params, info)
	require.NoError(t, err)
	require.Equal(t, uint64((10*11+7*5)%int(params.P)), got2)
}

func TestGenerateQueryBatchDropsCollisionAndFillsEmptySlotWithDummy(t *testing.T) {
	params := testProtocolParams()
	info := testDbInfo(params)
	dg := gaussian.Build(params.Sigma)

	// Both indices fall in partition 0 (rows [0,8)): the second collides.
	idx1 := 1 * params.M
	idx2 := 2 * params.M

	_, _, slots, err := GenerateQueryBatch([]int{idx1, idx2}, info, params, dg)
	require.NoError(t, err)
	require.True(t, slots[0].Served)
	require.Equal(t, idx1, slots[0].RequestedIndex)
	require.False(t, slots[1].Served)
	// the dummy must still land inside partition 1's row range
	require.GreaterOrEqual(t, slots[1].TargetIndex, 8*params.M)
	require.Less(t, slots[1].TargetIndex, params.L*params.M)
}
