package tpm

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/montanaflynn/stats"
	"github.com/sajari/regression"
)

// Comparison describes how one sample column of a table tracks the same
// column of a reference table over their shared features.
type Comparison struct {
	Sample string
	N int
	Pearson float64
	Slope float64
	Intercept float64
	R2 float64
	MaxAbsDiff float64
}

func sharedSamples(a, b *CountTable) (ai, bi []int, names []string) {
	bcols := map[string]int{}
	for j, s := range b.Samples() {
		bcols[s] = j
	}
	for j, s := range a.Samples() {
		if k, ok := bcols[s]; ok {
			ai = append(ai, j)
			bi = append(bi, k)
			names = append(names, s)
		}
	}
	return ai, bi, names
}

func sharedRows(a, b *CountTable) (ai, bi []int) {
	for i, id := range a.Ids {
		if k, ok := b.Index[id]; ok {
			ai = append(ai, i)
			bi = append(bi, k)
		}
	}
	return ai, bi
}

// Fit regresses ys on xs with an intercept.
func Fit(xs, ys []float64) (slope, intercept, r2 float64, err error) {
	r := new(regression.Regression)
	r.SetObserved("ours")
	r.SetVar(0, "ref")
	for i := range xs {
		r.Train(regression.DataPoint(ys[i], []float64{xs[i]}))
	}
	if e := r.Run(); e != nil {
		return math.NaN(), math.NaN(), math.NaN(), e
	}
	return r.Coeff(1), r.Coeff(0), r.R2, nil
}

func compareColumn(name string, xs, ys []float64) (Comparison, error) {
	c := Comparison{Sample: name, N: len(xs)}

	var e error
	if c.Pearson, e = stats.Correlation(xs, ys); e != nil {
		return c, e
	}

	for i := range xs {
		if d := math.Abs(xs[i] - ys[i]); d > c.MaxAbsDiff {
			c.MaxAbsDiff = d
		}
	}

	sd, _ := stats.StandardDeviationPopulation(xs)
	if sd == 0 {
		c.Slope, c.Intercept, c.R2 = math.NaN(), math.NaN(), math.NaN()
		return c, nil
	}
	c.Slope, c.Intercept, c.R2, e = Fit(xs, ys)
	return c, e
}

// Compare matches ours against ref on shared feature ids and shared sample
// names, in the order of ours.
func Compare(ours, ref *CountTable) ([]Comparison, error) {
	h := handle("Compare: %w")

	oc, rc, names := sharedSamples(ours, ref)
	if len(names) == 0 {
		return nil, h(dataErr(ErrShapeMismatch, "no sample columns in common"))
	}
	orows, rrows := sharedRows(ours, ref)
	if len(orows) < 2 {
		return nil, h(dataErr(ErrShapeMismatch, "%v features in common, need at least 2", len(orows)))
	}

	out := make([]Comparison, 0, len(names))
	for k, name := range names {
		xs := make([]float64, len(rrows))
		ys := make([]float64, len(orows))
		for i := range orows {
			xs[i] = ref.Values[rrows[i]][rc[k]]
			ys[i] = ours.Values[orows[i]][oc[k]]
		}
		c, e := compareColumn(name, xs, ys)
		if e != nil {
			return nil, h(e)
		}
		out = append(out, c)
	}
	return out, nil
}

func formatStat(f float64) string {
	return strconv.FormatFloat(f, 'g', 8, 64)
}

func WriteComparisons(w io.Writer, cs []Comparison) error {
	cw := csv.NewWriter(w)
	cw.Comma = rune('\t')

	e := cw.Write([]string{"sample", "n", "pearson", "slope", "intercept", "r2", "max_abs_diff"})
	if e != nil {
		return e
	}
	for _, c := range cs {
		e := cw.Write([]string{
			c.Sample,
			strconv.Itoa(c.N),
			formatStat(c.Pearson),
			formatStat(c.Slope),
			formatStat(c.Intercept),
			formatStat(c.R2),
			formatStat(c.MaxAbsDiff),
		})
		if e != nil {
			return e
		}
	}
	cw.Flush()
	return cw.Error()
}

// ComparePaths compares two table files and writes the result as TSV, or as
// JSON lines when asJSON is set.
func ComparePaths(ourpath, refpath, outpath string, asJSON bool) (err error) {
	ours, e := ReadCountTablePath(ourpath)
	if e != nil {
		return e
	}
	ref, e := ReadCountTablePath(refpath)
	if e != nil {
		return e
	}
	cs, e := Compare(ours, ref)
	if e != nil {
		return e
	}

	w, e := csvh.CreateMaybeGz(outpath)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	if asJSON {
		return WriteComparisonsJSON(w, cs)
	}
	return WriteComparisons(w, cs)
}
