package doublepir

import "math"

// DbInfo describes the logical-to-physical layout of a DoublePIR database
// (spec §4 supplemented "DbInfo/approx_database_dims"): how many database
// entries share one Z_p element (Packing) or how many Z_p elements one
// entry spans (Ne), and how many repetitions (X) the batching scheme uses.
type DbInfo struct {
	NumEntries    uint64
	BitsPerEntry  uint64
	Packing       int
	Ne            int
	X             int
	P             uint64
	LogQ          uint
	Squish        SquishParams
	OrigCols      int
}

// numDBEntries returns (total Z_p elements needed, elements-per-entry,
// entries-per-element) for a database of numEntries items of bitsPerEntry
// bits each, against plaintext modulus p.
func numDBEntries(numEntries, bitsPerEntry, p uint64) (uint64, int, int) {
	logP := math.Log2(float64(p))
	if float64(bitsPerEntry) <= logP {
		packing := int(logP / float64(bitsPerEntry))
		if packing < 1 {
			packing = 1
		}
		total := (numEntries + uint64(packing) - 1) / uint64(packing)
		return total, 1, packing
	}
	ne := int(math.Ceil(float64(bitsPerEntry) / logP))
	return numEntries * uint64(ne), ne, 0
}

// approxSquareDatabaseDims picks (l, m) close to sqrt(total elements) so the
// database is laid out roughly square (spec §4.F.1, used when no lower
// bound on m is supplied).
func approxSquareDatabaseDims(numEntries, bitsPerEntry, p uint64) (int, int) {
	total, ne, _ := numDBEntries(numEntries, bitsPerEntry, p)
	sq := int(math.Ceil(math.Sqrt(float64(total))))
	m := sq
	l := int(math.Ceil(float64(total) / float64(m)))
	if ne > 1 {
		rem := l % ne
		if rem != 0 {
			l += ne - rem
		}
	}
	return l, m
}

// ApproxDatabaseDims finds the smallest (l, m) such that l*m covers the
// database's total Z_p-element count, ne divides l, and m is at least
// lowerBoundM (spec §4.F.1 "parameter selection hill-climb").
func ApproxDatabaseDims(numEntries, bitsPerEntry, p uint64, lowerBoundM int) (int, int) {
	l, m := approxSquareDatabaseDims(numEntries, bitsPerEntry, p)
	if m >= lowerBoundM {
		return l, m
	}

	m = lowerBoundM
	total, ne, _ := numDBEntries(numEntries, bitsPerEntry, p)
	l = int(math.Ceil(float64(total) / float64(m)))
	if ne > 1 {
		rem := l % ne
		if rem != 0 {
			l += ne - rem
		}
	}
	return l, m
}

// NewDbInfo computes the layout for a database of numEntries items of
// bitsPerEntry bits against params, with a repetition factor x (spec §4.F.6
// "batching").
func NewDbInfo(numEntries, bitsPerEntry uint64, params Params, x int) DbInfo {
	_, ne, packing := numDBEntries(numEntries, bitsPerEntry, params.P)
	if x < 1 {
		x = 1
	}
	return DbInfo{
		NumEntries:   numEntries,
		BitsPerEntry: bitsPerEntry,
		Packing:      packing,
		Ne:           ne,
		X:            x,
		P:            params.P,
		LogQ:         params.LogQ,
		Squish:       DefaultSquishParams(),
		OrigCols:     params.M,
	}
}

// Db holds the server's in-memory database matrix. Setup re-centers it by
// +P/2 in place but does not squish it (spec §4.F.2).
type Db struct {
	Info DbInfo
	Data *Matrix
}

// NewDb allocates a zero-filled database matching params.
func NewDb(info DbInfo, params Params) *Db {
	return &Db{Info: info, Data: NewMatrix(params.L, params.M)}
}

// NumRows reports the physical row count.
func (db *Db) NumRows() int { return db.Data.Rows }

// NumCols reports the physical column count.
func (db *Db) NumCols() int { return db.Data.Cols }

// LoadBytes fills the database from a flat byte-per-entry source (spec §6
// "flat files named by decimal row index" is the on-disk layout sparsedb
// presents; this is the in-memory loader operating on the decoded byte
// slice), centering every entry at params.P/2 as the original does before
// squishing.
func (db *Db) LoadBytes(values []byte, params Params) {
	m := params.M
	if db.Info.Packing > 0 {
		at := 0
		var cur uint32
		var coeff uint32 = 1
		for i, v := range values {
			cur += uint32(v) * coeff
			coeff *= uint32(1) << db.Info.BitsPerEntry
			if (i+1)%db.Info.Packing == 0 || i == len(values)-1 {
				db.Data.Set(at/m, at%m, cur)
				at++
				cur = 0
				coeff = 1
			}
		}
	} else {
		for i, v := range values {
			for j := 0; j < db.Info.Ne; j++ {
				row := (i/m)*db.Info.Ne + j
				col := i % m
				db.Data.Set(row, col, uint32(baseP(db.Info.P, uint64(v), j)))
			}
		}
	}
	half := uint32(params.P / 2)
	for i := range db.Data.Data {
		db.Data.Data[i] -= half
	}
}

// ReconstructElem recombines the Ne recovered Z_p words for one item back
// into its raw value, undoing LoadBytes' base-p split and, when several
// items are packed into one Z_p element, extracting item index i's digit
// out of the packed word (spec §4.F.5 "reconstruct", original_source
// Db::reconstruct_elem).
func ReconstructElem(vals []uint64, i uint64, info DbInfo) uint64 {
	q := uint64(1) << info.LogQ
	adjusted := make([]uint64, len(vals))
	for j, v := range vals {
		adjusted[j] = ((v + info.P/2) % q) % info.P
	}
	val := reconstructFromBaseP(info.P, adjusted)
	if info.Packing > 0 {
		val = baseP(uint64(1)<<info.BitsPerEntry, val, int(i%uint64(info.Packing)))
	}
	return val
}

// Squish compresses the database in place for the memory-bound online phase
// (spec §4.F.2 "squish/unsquish").
func (db *Db) Squish() error {
	db.Data = db.Data.AddScalar(uint32(db.Info.P / 2))
	squished, err := db.Data.Squish(db.Info.Squish)
	if err != nil {
		return err
	}
	db.Data = squished
	return nil
}
