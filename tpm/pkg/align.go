package tpm

import (
	"math"

	"github.com/jgbaldwinbrown/iter"
)

// AlignedPair holds the rows of a count table that have a usable length, in
// count table order. Row i of Counts, Lengths and Names describe the same
// feature, and Rows[i] is that feature's row in the original table.
type AlignedPair struct {
	Counts *CountTable
	Rows []int
	Lengths []float64
	Names []string

	// Missing features had no entry in the length table; Unusable ones had
	// a length that was zero, negative or not finite.
	Missing int
	Unusable int
}

func (p *AlignedPair) NRow() int {
	return len(p.Rows)
}

func UsableLength(l float64) bool {
	return l > 0 && !math.IsInf(l, 1) && !math.IsNaN(l)
}

// Align intersects counts and lengths on feature id. An empty intersection
// gives an empty pair, not an error.
func Align(counts *CountTable, lengths *LengthTable) *AlignedPair {
	p := &AlignedPair{}
	for i, id := range counts.Ids {
		ent, ok := lengths.Get(id)
		if !ok {
			p.Missing++
			continue
		}
		if !UsableLength(ent.Length) {
			p.Unusable++
			continue
		}
		p.Rows = append(p.Rows, i)
		p.Lengths = append(p.Lengths, ent.Length)
		p.Names = append(p.Names, ent.Name)
	}
	p.Counts = counts.Subset(p.Rows)
	return p
}

type AlignedRow struct {
	ID string
	Name string
	Length float64
	Counts []float64
}

// Iter walks the aligned rows in order.
func (p *AlignedPair) Iter() *iter.Iterator[AlignedRow] {
	return &iter.Iterator[AlignedRow]{Iteratef: func(yield func(AlignedRow) error) error {
		for i := range p.Rows {
			e := yield(AlignedRow{
				ID: p.Counts.Ids[i],
				Name: p.Names[i],
				Length: p.Lengths[i],
				Counts: p.Counts.Values[i],
			})
			if e != nil {
				return e
			}
		}
		return nil
	}}
}
