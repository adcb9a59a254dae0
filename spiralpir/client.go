package spiralpir

import (
	"crypto/rand"
	"fmt"

	"github.com/blyss-go/pir/gaussian"
)

// GadgetCiphertext is a 2 x dim NTT-form Regev-style encryption of a
// message against a length-dim gadget vector: row 0 is the negated "a"
// component (-a), row 1 is "a*s + e + m*gadget". Used for v_packing, v_expansion_left/right
// and (doubled) v_conversion (spec §3 "PublicParameters").
type GadgetCiphertext struct {
	Data     *PolyMatrixNTT
	StreamID uint64
}

// PublicParameters is the client's key material sent to the server once per
// setup (spec §3). Only the non-"a" rows are meant to travel on the wire
// (see wire.go); the seed lets the server regenerate the "a" rows.
type PublicParameters struct {
	Seed             Seed
	VPacking         []*GadgetCiphertext // length Params.N
	VExpansionLeft   []*GadgetCiphertext // length Params.G
	VExpansionRight  []*GadgetCiphertext // length Params.G
	VConversion      *GadgetCiphertext   // 2 x 2*TConv
}

// Client holds a SpiralPIR client's secret state: the never-transmitted
// Gaussian secret keys and the seed used to regenerate deterministic "a"
// rows (spec §3 "SpiralPIR key material").
type Client struct {
	Params *Parameters

	SkGsw *PolyMatrixRaw // N x 1
	SkReg *PolyMatrixRaw // 1 x 1

	SkGswFull *PolyMatrixRaw // N x (N+1): SkGsw with an N x N identity block appended
	SkRegFull *PolyMatrixRaw // 1 x 1 (trivially itself; kept for symmetry)

	dg   *gaussian.Sampler
	seed Seed

	streamCounter uint64
}

// NewClient allocates a client for params with a fresh random seed.
func NewClient(params *Parameters) (*Client, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewClientWithSeed(params, seed)
}

// NewClientWithSeed allocates a client whose "a" rows derive from seed
// (primarily for tests needing reproducible transcripts).
func NewClientWithSeed(params *Parameters, seed Seed) (*Client, error) {
	return &Client{
		Params: params,
		dg:     gaussian.Build(params.NoiseWidth),
		seed:   seed,
	}, nil
}

func (c *Client) nextStream() uint64 {
	c.streamCounter++
	return c.streamCounter
}

// sampleGaussianRaw fills a rows x cols coefficient-form matrix with fresh
// (non-deterministic) Gaussian noise, matching spec §4.E.1 "sample fresh
// noise non-deterministically".
func (c *Client) sampleGaussianRaw(rows, cols int) (*PolyMatrixRaw, error) {
	p := c.Params
	out := ZeroRaw(p, rows, cols)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			poly := out.Poly(r, col)
			for z := range poly {
				v, err := c.dg.SampleMod(rand.Reader, p.Modulus)
				if err != nil {
					return nil, err
				}
				poly[z] = v
			}
		}
	}
	return out, nil
}

// GenerateKeys samples sk_gsw/sk_reg and builds the PublicParameters:
// v_packing, v_expansion_left/right and v_conversion (spec §4.E.1).
func (c *Client) GenerateKeys() (*PublicParameters, error) {
	p := c.Params

	skGsw, err := c.sampleGaussianRaw(p.N, 1)
	if err != nil {
		return nil, err
	}
	skReg, err := c.sampleGaussianRaw(1, 1)
	if err != nil {
		return nil, err
	}
	c.SkGsw = skGsw
	c.SkReg = skReg
	skGswFull := ZeroRaw(p, p.N, p.N+1)
	skGswFull.CopyInto(skGsw, 0, 0)
	skGswFull.CopyInto(IdentityRaw(p, p.N, p.N), 0, 1)
	c.SkGswFull = skGswFull
	c.SkRegFull = skReg.Clone()

	skRegNTT := skReg.ToNTT()

	vPacking := make([]*GadgetCiphertext, p.N)
	for i := 0; i < p.N; i++ {
		ct, err := c.encryptGadget(skRegNTT, p.TConv)
		if err != nil {
			return nil, err
		}
		vPacking[i] = ct
	}

	vExpLeft := make([]*GadgetCiphertext, p.G)
	vExpRight := make([]*GadgetCiphertext, p.G)
	for r := 0; r < p.G; r++ {
		t := (p.PolyLen/(1<<r))%(2*p.PolyLen) + 1
		skAuto := skReg.Automorph(t).ToNTT()

		left, err := c.encryptGadget(skAuto, p.TExpLeft)
		if err != nil {
			return nil, err
		}
		right, err := c.encryptGadget(skAuto, p.TExpRight)
		if err != nil {
			return nil, err
		}
		vExpLeft[r] = left
		vExpRight[r] = right
	}

	// -sk_reg^2 computed in NTT form then taken back to coefficient form so
	// it can be re-encrypted as an ordinary gadget ciphertext message.
	skRegSqNTT := MultiplyNTT(skRegNTT, skRegNTT)
	negSkRegSqRaw := skRegSqNTT.FromNTT().Negate()

	convLeft, err := c.encryptGadget(negSkRegSqRaw.ToNTT(), p.TConv)
	if err != nil {
		return nil, err
	}
	convRight, err := c.encryptGadget(skReg.Negate().ToNTT(), p.TConv)
	if err != nil {
		return nil, err
	}
	vConv := &GadgetCiphertext{
		Data:     hconcatNTT(convLeft.Data, convRight.Data),
		StreamID: convLeft.StreamID,
	}

	return &PublicParameters{
		Seed:            c.seed,
		VPacking:        vPacking,
		VExpansionLeft:  vExpLeft,
		VExpansionRight: vExpRight,
		VConversion:     vConv,
	}, nil
}

// encryptGadget builds gadget(1, dim).ToNTT(), multiplies it by message
// (scalar_multiply) to get the plaintext columns, and Regev-encrypts the
// result under a fresh deterministic "a" stream.
func (c *Client) encryptGadget(message *PolyMatrixNTT, dim int) (*GadgetCiphertext, error) {
	p := c.Params
	gadget := BuildGadget(p, 1, dim).ToNTT()
	pt := ScalarMultiplyNTT(message, gadget)

	streamID := c.nextStream()
	a, err := RandomNTTFromSeed(p, 1, dim, c.seed, streamID)
	if err != nil {
		return nil, err
	}

	noiseRaw, err := c.sampleGaussianRaw(1, dim)
	if err != nil {
		return nil, err
	}
	e := noiseRaw.ToNTT()

	skRegNTT := c.SkReg.ToNTT()
	b := ScalarMultiplyNTT(skRegNTT, a)
	b.AddIntoNTT(e)
	b.AddIntoNTT(pt)

	ct := ZeroNTT(p, 2, dim)
	ct.CopyInto(a.Negate(), 0, 0)
	ct.CopyInto(b, 1, 0)

	return &GadgetCiphertext{Data: ct, StreamID: streamID}, nil
}

// Negate returns -m entrywise in NTT form.
func (m *PolyMatrixNTT) Negate() *PolyMatrixNTT {
	p := m.Params
	out := ZeroNTT(p, m.Rows, m.Cols)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			src := m.Poly(r, c)
			dst := out.Poly(r, c)
			for lane := 0; lane < p.CRTCount; lane++ {
				mod := p.Moduli[lane]
				base := lane * p.PolyLen
				for z := 0; z < p.PolyLen; z++ {
					idx := base + z
					if src[idx] == 0 {
						dst[idx] = 0
					} else {
						dst[idx] = mod - src[idx]
					}
				}
			}
		}
	}
	return out
}

func hconcatNTT(a, b *PolyMatrixNTT) *PolyMatrixNTT {
	out := ZeroNTT(a.Params, a.Rows, a.Cols+b.Cols)
	for r := 0; r < a.Rows; r++ {
		for c := 0; c < a.Cols; c++ {
			copy(out.Poly(r, c), a.Poly(r, c))
		}
		for c := 0; c < b.Cols; c++ {
			copy(out.Poly(r, a.Cols+c), b.Poly(r, c))
		}
	}
	return out
}

// EncryptMatrixReg Regev-encrypts a 1 x cols NTT plaintext under a fresh
// deterministic "a" stream, returning a 2 x cols ciphertext.
func (c *Client) EncryptMatrixReg(msg *PolyMatrixNTT) (*PolyMatrixNTT, error) {
	p := c.Params
	streamID := c.nextStream()
	a, err := RandomNTTFromSeed(p, msg.Rows, msg.Cols, c.seed, streamID)
	if err != nil {
		return nil, err
	}
	noiseRaw, err := c.sampleGaussianRaw(msg.Rows, msg.Cols)
	if err != nil {
		return nil, err
	}
	e := noiseRaw.ToNTT()

	skRegNTT := c.SkReg.ToNTT()
	b := ScalarMultiplyNTT(skRegNTT, a)
	b.AddIntoNTT(e)
	b.AddIntoNTT(msg)

	out := ZeroNTT(p, 2*msg.Rows, msg.Cols)
	out.CopyInto(a.Negate(), 0, 0)
	out.CopyInto(b, msg.Rows, 0)
	return out, nil
}

// DecryptMatrixReg recovers the plaintext (in R_p, still NTT form) from a
// 2*rows x cols Regev ciphertext.
func (c *Client) DecryptMatrixReg(ct *PolyMatrixNTT) *PolyMatrixNTT {
	rows := ct.Rows / 2
	a := ct.Submatrix(0, 0, rows, ct.Cols)
	b := ct.Submatrix(rows, 0, rows, ct.Cols)
	skRegNTT := c.SkReg.ToNTT()
	as := ScalarMultiplyNTT(skRegNTT, a)
	return AddNTT(b, as)
}

// GenerateExpansionParams reports the shapes encryptGadget will use for
// expansion round r, for callers (notably tests) that need to cross-check
// v_expansion dimensions without recomputing the automorphism exponent.
func (c *Client) GenerateExpansionParams(round int) (t int) {
	return (c.Params.PolyLen/(1<<round))%(2*c.Params.PolyLen) + 1
}

func (c *Client) String() string {
	return fmt.Sprintf("spiralpir.Client{N=%d PolyLen=%d}", c.Params.N, c.Params.PolyLen)
}
