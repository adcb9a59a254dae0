// Command pirserver runs a small in-process SpiralPIR demo: it builds a
// toy database, runs key generation, query, answer, and decode, and reports
// whether the recovered item matches what was stored (spec §6's HTTP
// transport is explicitly out of scope; this exercises the library path a
// real transport would sit in front of).
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/blyss-go/pir/spiralpir"
)

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// demoDatabase is a trivial in-memory Database used only to drive the demo
// end to end; a real deployment wires spiralpir.Database to sparsedb.Store.
type demoDatabase struct {
	params   *spiralpir.Parameters
	trials   int
	firstDim int
	further  int
	cells    [][]*spiralpir.PolyMatrixNTT // [trial][firstDim*further+furtherIdx]
}

func (d *demoDatabase) Instances() int    { return 1 }
func (d *demoDatabase) Trials() int       { return d.trials }
func (d *demoDatabase) NumFirstDim() int  { return d.firstDim }
func (d *demoDatabase) NumFurther() int   { return d.further }
func (d *demoDatabase) Entry(instance, trial, firstDimIdx, furtherIdx int) *spiralpir.PolyMatrixNTT {
	return d.cells[trial][firstDimIdx*d.further+furtherIdx]
}

func main() {
	lit := spiralpir.ParametersLiteral{
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
	}
	params, err := spiralpir.NewParameters(lit)
	check(err)

	client, err := spiralpir.NewClient(params)
	check(err)
	pp, err := client.GenerateKeys()
	check(err)

	db := &demoDatabase{
		params:   params,
		trials:   params.N * params.N,
		firstDim: 1 << params.DbDim1,
		further:  1 << params.DbDim2,
	}
	db.cells = make([][]*spiralpir.PolyMatrixNTT, db.trials)
	for t := 0; t < db.trials; t++ {
		db.cells[t] = make([]*spiralpir.PolyMatrixNTT, db.firstDim*db.further)
		for i := range db.cells[t] {
			db.cells[t][i] = spiralpir.ZeroNTT(params, 2, 1)
		}
	}

	targetIdx := 3
	query, err := client.GenerateQuery(targetIdx)
	check(err)

	server := spiralpir.NewServer(params)
	packed, err := server.ProcessQuery(query, pp, db, 0)
	check(err)

	ans := server.ModulusSwitch(packed)
	out := client.Decode(ans)

	// Every stored cell is zero, so the stored item is all zero bytes.
	matches := bytes.Equal(out, make([]byte, len(out)))
	fmt.Printf("decoded %d bytes for index %d; matches stored item: %v\n", len(out), targetIdx, matches)
	os.Exit(0)
}
