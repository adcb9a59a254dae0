package spiralpir

// Query is a client's request for idxTarget = idxDim0 * 2^nu2 + idxFurther
// (spec §4.E.2). In expansion mode a single packed Regev ciphertext carries
// both the first-dimension one-hot and the folding-dimension gadget digits;
// in direct mode the two are sent as separate ciphertext vectors.
type Query struct {
	Seed Seed

	// Expansion mode.
	Packed *PolyMatrixNTT // 2 x 1, populated iff Params.ExpandQueries

	// Direct mode.
	FirstDim []*PolyMatrixNTT // 2^nu1 Regev ciphertexts, one-hot at idxDim0
	Folding  []*PolyMatrixNTT // nu2 GSW-style ciphertexts (2 x 2*TGsw), one per folding bit
}

// GenerateQuery builds a Query selecting idxTarget in
// [0, 2^(DbDim1+DbDim2)).
func (c *Client) GenerateQuery(idxTarget int) (*Query, error) {
	p := c.Params
	dim0Count := 1 << p.DbDim1
	idxDim0 := idxTarget / (1 << p.DbDim2)
	idxFurther := idxTarget % (1 << p.DbDim2)

	if p.ExpandQueries {
		return c.generateExpansionQuery(idxDim0, idxFurther)
	}
	return c.generateDirectQuery(idxDim0, idxFurther, dim0Count)
}

// generateExpansionQuery packs the first-dimension one-hot at even
// coefficient positions (scaled by q/p) and the base-2 digits of
// idxFurther at odd positions (each digit at its own TGsw-sized block),
// both pre-scaled by the modular inverse of the automorphism factor the
// server's expansion will divide out (spec §4.E.2 "Expansion mode").
func (c *Client) generateExpansionQuery(idxDim0, idxFurther int) (*Query, error) {
	p := c.Params
	sigma := ZeroRaw(p, 1, 1)
	sigma.Poly(0, 0)[2*idxDim0] = p.QScaleK

	for d := 0; d < p.DbDim2; d++ {
		bit := (idxFurther >> uint(d)) & 1
		if bit == 0 {
			continue
		}
		pos := 2*(1<<uint(p.DbDim1)) + d*p.TGsw
		if pos < p.PolyLen {
			sigma.Poly(0, 0)[pos] = p.QScaleK
		}
	}

	ct, err := c.EncryptMatrixReg(sigma.ToNTT())
	if err != nil {
		return nil, err
	}
	return &Query{Seed: c.seed, Packed: ct}, nil
}

// generateDirectQuery emits a one-hot vector of Regev ciphertexts over the
// first dimension and one GSW-style ciphertext per folding bit, each
// carrying both the bit and bit*sk_reg so the server never needs sk_reg
// (spec §4.E.2 "Direct mode").
func (c *Client) generateDirectQuery(idxDim0, idxFurther, dim0Count int) (*Query, error) {
	p := c.Params

	firstDim := make([]*PolyMatrixNTT, dim0Count)
	for i := 0; i < dim0Count; i++ {
		bit := ZeroRaw(p, 1, 1)
		if i == idxDim0 {
			bit.Data[0] = p.QScaleK
		}
		ct, err := c.EncryptMatrixReg(bit.ToNTT())
		if err != nil {
			return nil, err
		}
		firstDim[i] = ct
	}

	folding := make([]*PolyMatrixNTT, p.DbDim2)
	skRegNTT := c.SkReg.ToNTT()
	for d := 0; d < p.DbDim2; d++ {
		bit := (idxFurther >> uint(d)) & 1
		msg := ZeroRaw(p, 1, 1)
		if bit == 1 {
			msg.Data[0] = 1
		}
		msgNTT := msg.ToNTT()
		bitTimesS := ScalarMultiplyNTT(skRegNTT, msgNTT)

		gct, err := c.encryptGSWMessage(msgNTT, bitTimesS, p.TGsw)
		if err != nil {
			return nil, err
		}
		folding[d] = gct
	}

	return &Query{Seed: c.seed, FirstDim: firstDim, Folding: folding}, nil
}

// encryptGSWMessage builds a 2 x 2*dim GSW-style ciphertext carrying msg in
// the first dim columns and msgTimesS in the next dim columns (each against
// its own gadget), so that an external product against it never needs
// sk_reg server-side.
func (c *Client) encryptGSWMessage(msg, msgTimesS *PolyMatrixNTT, dim int) (*PolyMatrixNTT, error) {
	left, err := c.encryptGadget(msg, dim)
	if err != nil {
		return nil, err
	}
	right, err := c.encryptGadget(msgTimesS, dim)
	if err != nil {
		return nil, err
	}
	return hconcatNTT(left.Data, right.Data), nil
}
