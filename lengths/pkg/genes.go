package lengths

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
)

// GeneLength summarises one gene. Mean, Median and Longest are taken over
// the exonic lengths of its isoforms. Merged is the length of the union of
// all of the gene's exons.
type GeneLength struct {
	ID string
	Name string
	Isoforms int
	Mean float64
	Median float64
	Longest float64
	Merged float64
}

// MergedLength returns the number of bases covered by at least one exon.
func MergedLength(exons []Exon) int64 {
	if len(exons) < 1 {
		return 0
	}
	sorted := append([]Exon{}, exons...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var total int64
	cur := sorted[0]
	for _, x := range sorted[1:] {
		if x.Start <= cur.End+1 {
			if x.End > cur.End {
				cur.End = x.End
			}
			continue
		}
		total += cur.Len()
		cur = x
	}
	return total + cur.Len()
}

func geneLength(g *Gene) (GeneLength, error) {
	h := handle("geneLength: gene %v: %w")
	gl := GeneLength{ID: g.ID, Name: g.Name, Isoforms: len(g.Transcripts)}
	if gl.Name == "" {
		gl.Name = g.ID
	}

	var all []Exon
	iso := make(stats.Float64Data, 0, len(g.Transcripts))
	for _, t := range g.Transcripts {
		iso = append(iso, float64(MergedLength(t.Exons)))
		all = append(all, t.Exons...)
	}
	gl.Merged = float64(MergedLength(all))

	var e error
	if gl.Mean, e = stats.Mean(iso); e != nil {
		return gl, h(g.ID, e)
	}
	if gl.Median, e = stats.Median(iso); e != nil {
		return gl, h(g.ID, e)
	}
	if gl.Longest, e = stats.Max(iso); e != nil {
		return gl, h(g.ID, e)
	}
	return gl, nil
}

// GeneLengths computes lengths for every gene that has at least one exon,
// in annotation order.
func GeneLengths(a *Annotation) ([]GeneLength, error) {
	out := make([]GeneLength, 0, len(a.Genes))
	for _, g := range a.Genes {
		if len(g.Transcripts) < 1 {
			continue
		}
		gl, e := geneLength(g)
		if e != nil {
			return nil, e
		}
		out = append(out, gl)
	}
	return out, nil
}

func fmtLen(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteGeneLengths writes a table that ReadLengthTable understands. The
// merged length is always the last column so it is the default length.
func WriteGeneLengths(w io.Writer, gls []GeneLength, withNames bool) error {
	h := handle("WriteGeneLengths: %w")
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{"gene", "mean", "median", "longest_isoform", "merged"}
	if withNames {
		header = []string{"gene", "name", "mean", "median", "longest_isoform", "merged"}
	}
	if e := cw.Write(header); e != nil {
		return h(e)
	}

	line := make([]string, 0, len(header))
	for _, gl := range gls {
		line = append(line[:0], gl.ID)
		if withNames {
			line = append(line, gl.Name)
		}
		line = append(line, fmtLen(gl.Mean), fmtLen(gl.Median), fmtLen(gl.Longest), fmtLen(gl.Merged))
		if e := cw.Write(line); e != nil {
			return h(e)
		}
	}

	cw.Flush()
	if e := cw.Error(); e != nil {
		return h(e)
	}
	return nil
}
