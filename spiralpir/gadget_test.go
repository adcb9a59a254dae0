package spiralpir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T) *Parameters {
	t.Helper()
	p, err := NewParameters(ParametersLiteral{
		PolyLen:       2048,
		Moduli:        []uint64{268369921, 249561089},
		NoiseWidth:    6.4,
		N:             2,
		PtModulus:     256,
		Q2Bits:        20,
		TConv:         4,
		TExpLeft:      8,
		TExpRight:     56,
		TGsw:          8,
		ExpandQueries: true,
		DbDim1:        3,
		DbDim2:        2,
		Instances:     1,
		DbItemSize:    256,
	})
	require.NoError(t, err)
	return p
}

func TestGadgetInvertReconstructs(t *testing.T) {
	p := testParams(t)
	gadget := BuildGadget(p, 1, p.TConv)

	msg := ZeroRaw(p, 1, 1)
	msg.Poly(0, 0)[5] = 7

	ginv := GadgetInvert(p, p.TConv, msg)
	require.Equal(t, p.TConv, ginv.Rows)

	reconstructed := MultiplyNTT(gadget.ToNTT(), ginv.ToNTT())
	back := reconstructed.FromNTT()
	require.Equal(t, uint64(7), back.Poly(0, 0)[5])
}

func TestNewParametersRejectsNonPowerOfTwoPolyLen(t *testing.T) {
	_, err := NewParameters(ParametersLiteral{
		PolyLen:    100,
		Moduli:     []uint64{268369921},
		Q2Bits:     20,
		TConv:      4,
		N:          1,
		PtModulus:  2,
		DbItemSize: 1,
	})
	require.Error(t, err)
}

func TestNewParametersRejectsLowQ2Bits(t *testing.T) {
	_, err := NewParameters(ParametersLiteral{
		PolyLen:    2048,
		Moduli:     []uint64{268369921},
		Q2Bits:     4,
		TConv:      4,
		N:          1,
		PtModulus:  2,
		DbItemSize: 1,
	})
	require.Error(t, err)
}
