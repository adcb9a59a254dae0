// Package doublepir implements the two-level LWE private-information-
// retrieval scheme (spec §4.F): a database laid out as an L x M matrix over
// Z_p, a precomputed hint H2 = H1 . A2 that lets the client answer a query
// against a much smaller "compressed" dimension, and a query/answer/recover
// protocol built on plain LWE (no ring structure, unlike SpiralPIR).
package doublepir

import (
	"fmt"
	"math"

	"github.com/blyss-go/pir/pirerr"
)

// Params holds the scheme's numeric parameters (spec §4.F.1).
type Params struct {
	N     int     // LWE secret dimension
	Sigma float64 // LWE error distribution width s (standard deviation s/sqrt(2*pi))
	L     int     // database height
	M     int     // database width
	LogQ  uint    // log2 of the ciphertext modulus
	P     uint64  // plaintext modulus
}

// paramChoice is one entry of the literal parameter table used by PickParams
// (grounded on original_source's PARAMS_STORE lookup table: for a fixed
// (LWE dimension, max sample count, ciphertext modulus) tuple, use
// previously-estimated (sigma, p) values rather than re-running an LWE
// hardness estimator at runtime).
type paramChoice struct {
	logN, logM int
	logQ       uint
	sigma      float64
	p          uint64
}

var paramStore = []paramChoice{
	{logN: 10, logM: 8, logQ: 32, sigma: 6.4, p: 991},
	{logN: 10, logM: 9, logQ: 32, sigma: 6.4, p: 833},
	{logN: 10, logM: 10, logQ: 32, sigma: 6.4, p: 701},
	{logN: 10, logM: 11, logQ: 32, sigma: 6.4, p: 589},
	{logN: 10, logM: 12, logQ: 32, sigma: 6.4, p: 495},
	{logN: 10, logM: 13, logQ: 32, sigma: 6.4, p: 416},
	{logN: 10, logM: 14, logQ: 32, sigma: 6.4, p: 350},
	{logN: 10, logM: 15, logQ: 32, sigma: 6.4, p: 294},
	{logN: 10, logM: 16, logQ: 32, sigma: 6.4, p: 247},
	{logN: 10, logM: 17, logQ: 32, sigma: 6.4, p: 208},
	{logN: 10, logM: 18, logQ: 32, sigma: 6.4, p: 175},
	{logN: 10, logM: 19, logQ: 32, sigma: 6.4, p: 147},
	{logN: 10, logM: 20, logQ: 32, sigma: 6.4, p: 124},
	{logN: 10, logM: 21, logQ: 32, sigma: 6.4, p: 104},
	{logN: 10, logM: 22, logQ: 32, sigma: 6.4, p: 88},
	{logN: 10, logM: 23, logQ: 32, sigma: 6.4, p: 74},
	{logN: 10, logM: 24, logQ: 32, sigma: 6.4, p: 62},
}

// Pick looks up the (sigma, p) pair matching n, logq, and a sample bound of
// at least maxSamples (spec §4.F.1 "parameter selection").
func Pick(n int, logq uint, l, m, maxSamples int) (Params, error) {
	logN := log2(n)
	for _, c := range paramStore {
		if c.logN != logN || c.logQ != logq {
			continue
		}
		if maxSamples > (1 << uint(c.logM)) {
			continue
		}
		p := c.p
		if p == 552 {
			p = 512 // matches the upstream rounding-compatibility adjustment
		}
		return Params{N: n, Sigma: c.sigma, L: l, M: m, LogQ: logq, P: p}, nil
	}
	return Params{}, fmt.Errorf("%w: no suitable doublepir params for n=%d logq=%d maxSamples=%d", pirerr.ErrParameter, n, logq, maxSamples)
}

func log2(x int) int {
	n := 0
	for (1 << uint(n)) < x {
		n++
	}
	return n
}

// ExtDelta returns (2^LogQ) / P, the scaling factor queries add to select a
// database column.
func (p Params) ExtDelta() uint64 {
	return (uint64(1) << p.LogQ) / p.P
}

// Delta returns the number of base-P digits needed to represent a mod-2^LogQ
// value (spec §4.F "contract/expand" digit count).
func (p Params) Delta() int {
	d := float64(p.LogQ) / math.Log2(float64(p.P))
	return int(math.Ceil(d))
}

// Round recovers a mod-P value from a noisy mod-2^LogQ value by dividing by
// ExtDelta and rounding to the nearest integer (spec §4.F.5 "recover").
func (p Params) Round(x uint64) uint64 {
	ed := p.ExtDelta()
	v := (x + ed/2) / ed
	return v % p.P
}

// GetContractParams derives the modulus/delta pair used by Contract/Expand.
func (p Params) GetContractParams() ContractParams {
	return ContractParams{Modulus: uint32(p.P), Delta: p.Delta()}
}
