package doublepir

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blyss-go/pir/gaussian"
	"github.com/blyss-go/pir/pirerr"
)

// SharedState is the pair of public matrices (A1, A2) both client and
// server derive identically from fixed seeds (spec §4.F.1 "Init").
type SharedState struct {
	A1, A2 *Matrix
}

// Hint is the server's precomputed H2 = H1 . A2, handed to the client once
// per parameter set (spec §3 "DoublePIR state", §4.F.2 "Setup").
type Hint struct {
	H2 *Matrix
}

// ServerState is what Setup keeps on the server side: the hint H1
// (re-centered by +P/2, not squished) and a transposed copy of A2
// (spec §4.F.2).
type ServerState struct {
	H1       *Matrix
	A2Transp *Matrix
}

// Init derives the two shared public matrices for a database shaped l x m.
func Init(l, m, n int) (*SharedState, error) {
	a1, err := DeriveMatrixFromSeed(m, n, SeedA1)
	if err != nil {
		return nil, err
	}
	a2, err := DeriveMatrixFromSeed(l, n, SeedA2)
	if err != nil {
		return nil, err
	}
	return &SharedState{A1: a1, A2: a2}, nil
}

// Setup computes H1 = expand(transpose(db . A1)) and H2 = H1 . A2 (spec
// §4.F.2). H2 is derived before the +P/2 re-centering below, matching the
// original's ordering. db.Data and H1 are re-centered by +P/2 afterward (the
// same offset Recover's val1/val2 correction terms cancel) but not packed
// via Squish: ProcessAnswer's Mul calls need db.Data/H1 at their expanded
// width, and this package's Mul is the plain, unpacked kernel (see
// DESIGN.md), so nothing here ever reads the squished representation. Squish
// remains available as a tested, explicit at-rest compaction primitive for
// callers that want to store a database more compactly between Setup calls.
func Setup(db *Db, shared *SharedState, params Params) (*ServerState, *Hint, error) {
	h1, err := db.Data.Mul(shared.A1) // (l,m)*(m,n) = (l,n)
	if err != nil {
		return nil, nil, err
	}
	h1 = h1.Transpose() // (n,l)
	h1 = h1.Expand(params.GetContractParams())
	h1, err = h1.ConcatCols(1)
	if err != nil {
		return nil, nil, err
	}

	h2, err := h1.Mul(shared.A2)
	if err != nil {
		return nil, nil, err
	}

	db.Data = db.Data.AddScalar(uint32(params.P / 2))
	h1 = h1.AddScalar(uint32(params.P / 2))

	a2T := shared.A2.Transpose()

	return &ServerState{H1: h1, A2Transp: a2T}, &Hint{H2: h2}, nil
}

// ClientQueryState is the client's retained secret for one query: one
// secret1 for the first LWE level, and one secret2 per Z_p component an
// entry spans (spec §4.F.5 "for each of the ne/x components").
type ClientQueryState struct {
	Secret1 *Matrix
	Secret2 []*Matrix
}

// Query is the wire-visible request for one index: query1 for the first LWE
// level, and one query2 per Z_p component (spec §4.F.3).
type Query struct {
	Query1 *Matrix
	Query2 []*Matrix
}

// GenerateQuery builds the LWE queries selecting row i1 of the compressed
// hint dimension and column i2 of the database, for item index i (spec
// §4.F.3 "query with i1/i2 split and asymmetric secret sampling": secret1 is
// uniform since it only ever multiplies the public A1, while secret2 is
// drawn from the error distribution so that H1's already-noisy rows don't
// compound additional uniform-secret noise on the second level). i is a raw
// item index; when info.Packing > 0, several items share one Z_p element and
// i is first divided down to that element's index. When an entry spans
// info.Ne > 1 Z_p elements, one query2/secret2 pair is generated per
// component, targeting the info.Ne physical rows the database layout
// (database.go's LoadBytes) packs per logical row; the batching repetition
// factor (info.X) that the original further folds into this split is not
// replicated here — see DESIGN.md.
func GenerateQuery(i int, info DbInfo, params Params, dg *gaussian.Sampler) (*ClientQueryState, *Query, error) {
	idxToQuery := i
	if info.Packing > 0 {
		idxToQuery /= info.Packing
	}
	ne := info.Ne
	if ne < 1 {
		ne = 1
	}
	i1 := (idxToQuery / params.M) * ne
	i2 := idxToQuery % params.M

	secret1, err := RandomLogMod(params.N, 1, params.LogQ)
	if err != nil {
		return nil, nil, err
	}
	err1, err := Gaussian(params.M, 1, dg)
	if err != nil {
		return nil, nil, err
	}
	shared, err := Init(params.L, params.M, params.N)
	if err != nil {
		return nil, nil, err
	}
	query1, err := shared.A1.Mul(secret1)
	if err != nil {
		return nil, nil, err
	}
	query1, err = query1.Add(err1)
	if err != nil {
		return nil, nil, err
	}
	query1.Data[i2] += uint32(params.ExtDelta())

	secret2s := make([]*Matrix, ne)
	query2s := make([]*Matrix, ne)
	for j := 0; j < ne; j++ {
		secret2, err := Gaussian(params.N, 1, dg)
		if err != nil {
			return nil, nil, err
		}
		err2, err := Gaussian(params.L, 1, dg)
		if err != nil {
			return nil, nil, err
		}
		query2, err := shared.A2.Mul(secret2)
		if err != nil {
			return nil, nil, err
		}
		query2, err = query2.Add(err2)
		if err != nil {
			return nil, nil, err
		}
		query2.Data[i1+j] += uint32(params.ExtDelta())
		secret2s[j] = secret2
		query2s[j] = query2
	}

	return &ClientQueryState{Secret1: secret1, Secret2: secret2s},
		&Query{Query1: query1, Query2: query2s}, nil
}

// BatchSlot describes what one contiguous row-partition's query actually
// targets in a batched round (spec §4.F.6 "batching via contiguous
// row-space partitioning"): either the first requested index that fell
// into this partition, or — when no requested index lands in the
// partition — a uniformly random dummy index drawn from within the
// partition, so every partition still sends exactly one query and no
// partition is ever skipped. Later requested indices that fall into an
// already-claimed partition are not queried and are listed in Dropped.
type BatchSlot struct {
	RequestedIndex int   // valid only if Served
	Served         bool  // false: no requested index fell into this partition, so it carries a dummy query
	TargetIndex    int   // the item index actually queried; == RequestedIndex when Served
	Dropped        []int // requested indices that collided with RequestedIndex and were not queried
}

// GenerateQueryBatch assigns each requested index to the database's
// row-space partition it falls in and builds one query per partition (spec
// §4.F.6). Indices sharing a partition collide: only the first claims it,
// the rest are reported in that partition's BatchSlot.Dropped so the caller
// knows to re-request them in a later round. Partitions no requested index lands
// in are filled with a random dummy index so the response shape never
// reveals which partitions were "real".
func GenerateQueryBatch(indices []int, info DbInfo, params Params, dg *gaussian.Sampler) ([]*Query, []*ClientQueryState, []BatchSlot, error) {
	batchNum := len(indices)
	if batchNum == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no indices to query", pirerr.ErrParameter)
	}
	batchSz := params.L / batchNum
	if batchSz == 0 {
		return nil, nil, nil, fmt.Errorf("%w: batch of %d indices exceeds %d db rows", pirerr.ErrParameter, batchNum, params.L)
	}
	packing := info.Packing
	if packing < 1 {
		packing = 1
	}
	wordsPerBatch := batchSz * params.M * packing

	slots := make([]BatchSlot, batchNum)
	for _, idx := range indices {
		elemIdx := idx / packing
		row := elemIdx / params.M
		batch := row / batchSz
		if batch >= batchNum {
			batch = batchNum - 1
		}
		if slots[batch].Served {
			// collision: the first index to claim this partition wins
			slots[batch].Dropped = append(slots[batch].Dropped, idx)
			continue
		}
		slots[batch] = BatchSlot{RequestedIndex: idx, Served: true, TargetIndex: idx}
	}

	for b := range slots {
		if slots[b].Served {
			continue
		}
		offset, err := randomIntBelow(wordsPerBatch)
		if err != nil {
			return nil, nil, nil, err
		}
		slots[b].TargetIndex = b*wordsPerBatch + offset
	}

	queries := make([]*Query, batchNum)
	states := make([]*ClientQueryState, batchNum)
	for b, slot := range slots {
		state, q, err := GenerateQuery(slot.TargetIndex, info, params, dg)
		if err != nil {
			return nil, nil, nil, err
		}
		states[b], queries[b] = state, q
	}

	return queries, states, slots, nil
}

// randomIntBelow draws a uniform random integer in [0, n) via rejection
// sampling, the same approach RandomMod uses for matrix entries.
func randomIntBelow(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: randomIntBelow requires n > 0", pirerr.ErrParameter)
	}
	buf := make([]byte, 8)
	limit := (^uint64(0) / uint64(n)) * uint64(n)
	for {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(buf)
		if v < limit {
			return int(v % uint64(n)), nil
		}
	}
}

// Answer holds the server's response for a batch of queries: one combined
// second-level hint response (H1Combined, spec §4.F.4's "H1_out", the
// leading element of the answer) shared across every query in the batch,
// and, per query, one (a2, h2) pair per Z_p component the query targets
// (spec §4.F.4).
type Answer struct {
	H1Combined *Matrix
	PerQuery   [][]AnswerShare // PerQuery[batchIndex][component]
}

// AnswerShare is one query component's second-level response pair.
type AnswerShare struct {
	A2 *Matrix
	H2 *Matrix
}

// ProcessAnswer runs the server's answer computation for a batch of queries,
// each owning a contiguous partition of the database's rows (spec §4.F.4
// "answer with packed-SIMD kernels and chunking", §4.F.6 "batching via
// contiguous row-space partitioning"). Queries earlier in the slice own
// earlier row ranges; the final query absorbs any remainder. Use
// GenerateQueryBatch client-side to build a []*Query whose row-partition
// assumptions (one served or dummy query per partition) match this
// function's partitioning.
func ProcessAnswer(db *Db, queries []*Query, server *ServerState, params Params) (*Answer, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries to answer", pirerr.ErrParameter)
	}

	numRows := db.NumRows()
	batchSz := numRows / len(queries)

	var a1Combined *Matrix
	last := 0
	for batch, q := range queries {
		sz := batchSz
		if batch == len(queries)-1 {
			sz = numRows - last
		}
		rows := db.Data.RowSlice(last, sz)
		partial, err := rows.Mul(q.Query1)
		if err != nil {
			return nil, err
		}
		if a1Combined == nil {
			a1Combined = partial
		} else {
			a1Combined, err = a1Combined.ConcatRows(partial)
			if err != nil {
				return nil, err
			}
		}
		last += sz
	}

	expanded := a1Combined.Transpose()
	expanded = expanded.Expand(params.GetContractParams())
	// Raw digits in [0, P): Recover's val2/val3 terms subtract the P/2 offset.
	expanded = expanded.AddScalar(uint32(params.P / 2))
	expanded, err := expanded.ConcatCols(1)
	if err != nil {
		return nil, err
	}

	h1Combined, err := expanded.Mul(server.A2Transp.Transpose())
	if err != nil {
		return nil, err
	}

	shares := make([][]AnswerShare, len(queries))
	for i, q := range queries {
		perComponent := make([]AnswerShare, len(q.Query2))
		for j, q2 := range q.Query2 {
			a2, err := server.H1.Mul(q2)
			if err != nil {
				return nil, err
			}
			h2, err := expanded.Mul(q2)
			if err != nil {
				return nil, err
			}
			perComponent[j] = AnswerShare{A2: a2, H2: h2}
		}
		shares[i] = perComponent
	}

	return &Answer{H1Combined: h1Combined, PerQuery: shares}, nil
}

// Recover decodes the plaintext value at item index i using the client's
// retained state, the query it sent, and the server's answer (spec §4.F.5).
// batchIndex must be the position in ProcessAnswer's queries slice that
// carried this query (0 for an unbatched single query), so the right
// answer.PerQuery slot is consulted (spec §4.F.6's batching gap this closes:
// Recover previously always read PerQuery[0] regardless of which partition
// served the request).
func Recover(i, batchIndex int, hint *Hint, query *Query, answer *Answer, shared *SharedState, client *ClientQueryState, params Params, info DbInfo) (uint64, error) {
	if batchIndex < 0 || batchIndex >= len(answer.PerQuery) {
		return 0, fmt.Errorf("%w: batch index %d out of range for %d queries", pirerr.ErrParameter, batchIndex, len(answer.PerQuery))
	}

	ratio := params.P / 2
	mod := uint64(1) << params.LogQ

	var val1 uint64
	for j := 0; j < params.M; j++ {
		val1 += ratio * uint64(query.Query1.Data[j])
	}
	val1 %= mod
	val1 = mod - val1

	if shared.A2.Cols != params.N {
		return 0, fmt.Errorf("%w: a2 has %d cols, want %d", pirerr.ErrParameter, shared.A2.Cols, params.N)
	}

	h1 := answer.H1Combined.Clone()
	for j1 := 0; j1 < params.N; j1++ {
		var val3 uint64
		for j2 := 0; j2 < shared.A2.Rows; j2++ {
			val3 += ratio * uint64(shared.A2.At(j2, j1))
		}
		val3 %= mod
		val3 = mod - val3
		v := uint32(val3)
		for k := 0; k < h1.Rows; k++ {
			h1.Data[k*h1.Cols+j1] += v
		}
	}

	cp := params.GetContractParams()
	delta := params.Delta()

	components := answer.PerQuery[batchIndex]
	ne := len(components)
	vals := make([]uint64, ne)
	for c := 0; c < ne; c++ {
		share := components[c]
		secret2 := client.Secret2[c]

		// val2 cancels the P/2 offset against this component's own query2.
		var val2 uint64
		for j := 0; j < params.L; j++ {
			val2 += ratio * uint64(query.Query2[c].Data[j])
		}
		val2 %= mod
		val2 = mod - val2

		h2 := share.H2.AddScalar(uint32(val2))

		a2Rows := share.A2.RowSlice(0, params.N*delta)
		state := a2Rows.AddScalar(uint32(val2))
		h2Rows := h2.RowSlice(0, delta)
		state, err := state.ConcatRows(h2Rows)
		if err != nil {
			return 0, err
		}

		hintRows := hint.H2.RowSlice(0, params.N*delta)
		hintFull, err := hintRows.ConcatRows(h1.RowSlice(0, delta))
		if err != nil {
			return 0, err
		}

		interm, err := hintFull.Mul(secret2)
		if err != nil {
			return 0, err
		}
		state, err = state.Sub(interm)
		if err != nil {
			return 0, err
		}
		state = state.Apply(func(x uint32) uint32 { return uint32(params.Round(uint64(x))) })

		contracted := state.Contract(cp)

		noised := uint64(contracted.Data[params.N]) + val1
		for l := 0; l < params.N; l++ {
			noised -= uint64(client.Secret1.Data[l]) * uint64(contracted.Data[l])
			noised %= mod
		}

		vals[c] = params.Round(noised)
	}

	return ReconstructElem(vals, uint64(i), info), nil
}
