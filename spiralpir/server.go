package spiralpir

import (
	"fmt"
	"runtime"

	"github.com/blyss-go/pir/utils/concurrency"
)

// Database is the read-only view the SpiralPIR server needs over the
// backing store (spec §4.G sparse database): one NTT-form polynomial per
// (instance, trial, firstDimIdx, furtherIdx) cell. cmd/pirserver implements
// it with an in-memory demo database; no sparsedb-backed implementation
// exists in this module.
type Database interface {
	Instances() int
	Trials() int          // n^2
	NumFirstDim() int      // 2^nu1
	NumFurther() int       // 2^nu2
	Entry(instance, trial, firstDimIdx, furtherIdx int) *PolyMatrixNTT
}

// Server runs the SpiralPIR query-processing pipeline (spec §4.E.3) against
// a Database and a client's PublicParameters.
type Server struct {
	Params *Parameters
	neg1   []*PolyMatrixNTT
}

// NewServer precomputes the -X^(N/2^r) monomial table used by coefficient
// expansion.
func NewServer(params *Parameters) *Server {
	return &Server{Params: params, neg1: buildNeg1Table(params)}
}

func buildNeg1Table(p *Parameters) []*PolyMatrixNTT {
	table := make([]*PolyMatrixNTT, p.G)
	for r := 0; r < p.G; r++ {
		raw := ZeroRaw(p, 1, 1)
		shift := p.PolyLen / (1 << uint(r))
		if shift < p.PolyLen {
			raw.Poly(0, 0)[shift] = p.Modulus - 1
		} else {
			raw.Poly(0, 0)[0] = 1 // -X^N = 1 in the negacyclic ring
		}
		table[r] = raw.ToNTT()
	}
	return table
}

// CoefficientExpansion turns v[0] (a single Regev ciphertext) into up to
// 2^g independent Regev ciphertexts via a binary tree of homomorphic
// automorphisms (spec §4.E.3 step 1), grounded on
// original_source/spiral-rs/src/server.rs::coefficient_expansion. v must be
// pre-sized to length 2^g with every slot beyond v[0] zeroed.
func (s *Server) CoefficientExpansion(v []*PolyMatrixNTT, stopRound int, pp *PublicParameters, maxBitsToGenRight int) {
	p := s.Params
	for r := 0; r < p.G; r++ {
		numIn := 1 << uint(r)
		numOut := 2 * numIn
		t := (p.PolyLen/(1<<uint(r)))%(2*p.PolyLen) + 1
		neg1 := s.neg1[r]

		for i := 0; i < numOut && i < len(v); i++ {
			if stopRound > 0 && i%2 == 1 && r > stopRound {
				continue
			}
			if r == stopRound && i/2 >= maxBitsToGenRight {
				continue
			}

			var w *PolyMatrixNTT
			var gadgetDim int
			if i%2 == 0 {
				w = pp.VExpansionLeft[r].Data
				gadgetDim = p.TExpLeft
			} else {
				w = pp.VExpansionRight[r].Data
				gadgetDim = p.TExpRight
			}

			if i < numIn && numIn+i < len(v) {
				v[numIn+i] = ScalarMultiplyNTT(neg1, v[i])
			}

			ct := v[i].FromNTT()
			ctAuto := ct.Automorph(t)
			ctAuto0 := ctAuto.Submatrix(0, 0, 1, 1)
			ctAuto1NTT := ctAuto.Submatrix(1, 0, 1, 1).ToNTT()

			ginvCt := GadgetInvert(p, gadgetDim, ctAuto0)
			ginvCtNTT := ginvCt.ToNTT()
			wTimesGinvCt := MultiplyNTT(w, ginvCtNTT)

			sum := AddNTT(v[i], wTimesGinvCt)
			row1 := sum.Poly(1, 0)
			addPolyInto(p, row1, row1, ctAuto1NTT.Poly(0, 0))
			v[i] = sum
		}
	}
}

// RegevToGSW combines TGsw Regev ciphertexts (the gadget-digit expansion of
// one folding bit) with v_conversion into a single GSW-style 2 x 2*TGsw
// ciphertext (spec §4.E.3 step 2).
func (s *Server) RegevToGSW(regevs []*PolyMatrixNTT, vConv *GadgetCiphertext) *PolyMatrixNTT {
	p := s.Params
	out := ZeroNTT(p, 2, 2*p.TGsw)
	for j, ct := range regevs {
		if j >= p.TGsw {
			break
		}
		a := ct.Submatrix(0, 0, 1, 1)
		b := ct.Submatrix(1, 0, 1, 1)
		ginv := GadgetInvert(p, 2*p.TConv, a.FromNTT()).ToNTT()
		converted := MultiplyNTT(vConv.Data, ginv) // 2 x 2TConv * 2TConv x 1 = 2 x 1
		col := ZeroNTT(p, 2, 1)
		col.CopyInto(converted, 0, 0)
		addPolyInto(p, col.Poly(1, 0), col.Poly(1, 0), b.Poly(0, 0))
		out.CopyInto(col, 0, j)
	}
	return out
}

// FirstDimDotProduct computes, for one (instance, furtherIdx) pair, the sum
// over j of query[j] * db[j, furtherIdx] (spec §4.E.3 step 4), Barrett-
// reducing every MaxSummed terms.
func (s *Server) FirstDimDotProduct(query []*PolyMatrixNTT, db Database, instance, trial, furtherIdx int) *PolyMatrixNTT {
	p := s.Params
	acc := ZeroNTT(p, 2, 1)
	count := 0
	for j := 0; j < db.NumFirstDim() && j < len(query); j++ {
		entry := db.Entry(instance, trial, j, furtherIdx)
		scaled := ScalarMultiplyNTT(entry, query[j])
		acc.AddIntoNTT(scaled)
		count++
		if count%MaxSummed == 0 {
			for r := 0; r < acc.Rows; r++ {
				for c := 0; c < acc.Cols; c++ {
					poly := acc.Poly(r, c)
					for lane := 0; lane < p.CRTCount; lane++ {
						base := lane * p.PolyLen
						for z := 0; z < p.PolyLen; z++ {
							poly[base+z] = p.barrettCoeff(poly[base+z], lane)
						}
					}
				}
			}
		}
	}
	return acc
}

// ExternalProduct computes the GSW(2x2*dim) boxtimes Regev(2x1) product:
// gadget-invert the Regev ciphertext, NTT-multiply by the GSW matrix.
func ExternalProduct(p *Parameters, gsw *PolyMatrixNTT, regev *PolyMatrixNTT, dim int) *PolyMatrixNTT {
	regevRaw := regev.FromNTT()
	ginv := GadgetInvert(p, dim, regevRaw)
	return MultiplyNTT(gsw, ginv.ToNTT())
}

// Fold collapses a 2^nu2-length vector of Regev ciphertexts down to one by
// repeated GSW-Regev external products (spec §4.E.3 step 5):
// new[i] = old[i] + gsw[d] boxtimes (old[i+half] - old[i]).
func (s *Server) Fold(v []*PolyMatrixNTT, gsw []*PolyMatrixNTT) *PolyMatrixNTT {
	p := s.Params
	cur := v
	for d := len(gsw) - 1; d >= 0; d-- {
		half := len(cur) / 2
		next := make([]*PolyMatrixNTT, half)
		for i := 0; i < half; i++ {
			diff := subNTT(p, cur[i+half], cur[i])
			prod := ExternalProduct(p, gsw[d], diff, p.TGsw)
			next[i] = AddNTT(cur[i], prod)
		}
		cur = next
	}
	return cur[0]
}

func subNTT(p *Parameters, a, b *PolyMatrixNTT) *PolyMatrixNTT {
	out := ZeroNTT(p, a.Rows, a.Cols)
	for r := 0; r < a.Rows; r++ {
		for c := 0; c < a.Cols; c++ {
			da := a.Poly(r, c)
			db := b.Poly(r, c)
			dst := out.Poly(r, c)
			for lane := 0; lane < p.CRTCount; lane++ {
				m := p.Moduli[lane]
				base := lane * p.PolyLen
				for z := 0; z < p.PolyLen; z++ {
					idx := base + z
					dst[idx] = subMod(da[idx], db[idx], m)
				}
			}
		}
	}
	return out
}

// Pack combines Params.N*Params.N Regev ciphertexts (one per trial) into a
// single (Params.N+1) x 1 vector-Regev ciphertext using v_packing
// (spec §4.E.3 step 6): row 0 is Sum_r v_packing[r].a-component contracted
// against the gadget-inverted ciphertext "a" rows, rows 1..N carry the raw
// "b" components.
func (s *Server) Pack(perTrial []*PolyMatrixNTT, vPacking []*GadgetCiphertext) (*PolyMatrixNTT, error) {
	p := s.Params
	if len(perTrial) != p.N*p.N {
		return nil, fmt.Errorf("pack: expected %d trial ciphertexts, got %d", p.N*p.N, len(perTrial))
	}
	out := ZeroNTT(p, p.N+1, 1)
	for r := 0; r < p.N; r++ {
		a := perTrial[r].Submatrix(0, 0, 1, 1)
		b := perTrial[r].Submatrix(1, 0, 1, 1)
		ginv := GadgetInvert(p, p.TConv, a.FromNTT()).ToNTT()
		contribution := MultiplyNTT(vPacking[r].Data, ginv)
		row0 := out.Poly(0, 0)
		addPolyInto(p, row0, row0, contribution.Poly(1, 0))
		copy(out.Poly(1+r, 0), b.Poly(0, 0))
	}
	return out, nil
}

// ProcessQuery runs the full pipeline (expansion, Regev->GSW conversion,
// first-dimension dot product, folding, packing) for one instance and
// returns the packed (N+1) x 1 response ciphertext in NTT form, before the
// final modulus switch (spec §4.E.3, §5 "Ordering guarantees").
func (s *Server) ProcessQuery(q *Query, pp *PublicParameters, db Database, instance int) (*PolyMatrixNTT, error) {
	p := s.Params

	var firstDim []*PolyMatrixNTT
	var gsw []*PolyMatrixNTT

	if p.ExpandQueries {
		slots := 1 << uint(p.G)
		v := make([]*PolyMatrixNTT, slots)
		v[0] = q.Packed
		for i := 1; i < slots; i++ {
			v[i] = ZeroNTT(p, 2, 1)
		}
		s.CoefficientExpansion(v, p.StopRound, pp, p.TGsw*p.DbDim2)

		// even-indexed slots hold first-dimension selection bits.
		picked := make([]*PolyMatrixNTT, db.NumFirstDim())
		for i := range picked {
			picked[i] = v[2*i]
		}
		firstDim = picked

		gsw = make([]*PolyMatrixNTT, p.DbDim2)
		base := 2*(1<<uint(p.DbDim1)) + 1
		for d := 0; d < p.DbDim2; d++ {
			regevs := make([]*PolyMatrixNTT, p.TGsw)
			for j := 0; j < p.TGsw; j++ {
				idx := base + d*p.TGsw + j
				if idx < len(v) {
					regevs[j] = v[idx]
				} else {
					regevs[j] = ZeroNTT(p, 2, 1)
				}
			}
			gsw[d] = s.RegevToGSW(regevs, pp.VConversion)
		}
	} else {
		firstDim = q.FirstDim
		gsw = q.Folding
	}

	perTrial := make([]*PolyMatrixNTT, db.Trials())
	workers := runtime.GOMAXPROCS(0)
	if workers > db.Trials() {
		workers = db.Trials()
	}
	if workers < 1 {
		workers = 1
	}
	tokens := make([]struct{}, workers)
	rm := concurrency.NewRessourceManager(tokens)
	for trial := 0; trial < db.Trials(); trial++ {
		trial := trial
		rm.Run(func(struct{}) error {
			folded := make([]*PolyMatrixNTT, db.NumFurther())
			for furtherIdx := 0; furtherIdx < db.NumFurther(); furtherIdx++ {
				folded[furtherIdx] = s.FirstDimDotProduct(firstDim, db, instance, trial, furtherIdx)
			}
			perTrial[trial] = s.Fold(folded, gsw)
			return nil
		})
	}
	if err := rm.Wait(); err != nil {
		return nil, err
	}

	return s.Pack(perTrial, pp.VPacking)
}
