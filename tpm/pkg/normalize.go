package tpm

import (
	"context"
	"io"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultDigits = 5

var logMillion = math.Log(1e6)

type Options struct {
	// Digits is the number of decimals kept. Negative values round to tens,
	// hundreds and so on. 0 or less prints whole numbers.
	Digits int
	// Threads limits how many sample columns are normalised at once; 0 or
	// less means no limit.
	Threads int
	Log logrus.FieldLogger
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func orDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return discardLogger()
	}
	return l
}

// Result is a TPM matrix with the shape of the aligned count matrix.
type Result struct {
	Header []string
	Ids []string
	Names []string
	Values [][]float64
	Digits int
}

// ColumnTpm converts one sample column to TPM in log space:
// exp(ln c - ln l - ln(sum c/l) + ln 1e6). Zero counts give exactly zero, and
// a column with no positive count gives all zeros.
func ColumnTpm(counts []float64, logLengths []float64) []float64 {
	out := make([]float64, len(counts))
	adj := make([]float64, len(counts))

	max := math.Inf(-1)
	for i, c := range counts {
		adj[i] = math.Log(c) - logLengths[i]
		if adj[i] > max {
			max = adj[i]
		}
	}
	if math.IsInf(max, -1) {
		return out
	}

	var sum float64
	for _, a := range adj {
		sum += math.Exp(a - max)
	}
	logSum := max + math.Log(sum)

	for i, a := range adj {
		out[i] = math.Exp(a - logSum + logMillion)
	}
	return out
}

// maxDigits is the most decimal places a float64 can carry.
const maxDigits = 15

// RoundAll rounds vals in place to digits decimal places. Negative digits
// round to tens, hundreds and so on. Beyond maxDigits places rounding is a
// no-op, and below -maxDigits every TPM value rounds to zero.
func RoundAll(vals []float64, digits int) error {
	if digits > maxDigits {
		return nil
	}
	if digits < -maxDigits {
		digits = -maxDigits
	}
	for i, v := range vals {
		r, e := stats.Round(v, digits)
		if e != nil {
			return e
		}
		vals[i] = r
	}
	return nil
}

func checkCounts(p *AlignedPair) error {
	samples := p.Counts.Samples()
	return p.Iter().Iterate(func(r AlignedRow) error {
		for j, c := range r.Counts {
			if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				return dataErr(ErrInvalidCount, "feature %q, sample %q: count %v is not a finite non-negative number", r.ID, samples[j], c)
			}
		}
		return nil
	})
}

// Normalize converts the aligned counts to TPM, one sample column at a time.
func Normalize(ctx context.Context, p *AlignedPair, o Options) (*Result, error) {
	h := handle("Normalize: %w")
	log := orDiscard(o.Log)

	if e := checkCounts(p); e != nil {
		return nil, h(e)
	}

	logLengths := make([]float64, len(p.Lengths))
	for i, l := range p.Lengths {
		if !UsableLength(l) {
			return nil, h(dataErr(ErrInvalidLength, "feature %q has length %v", p.Counts.Ids[i], l))
		}
		logLengths[i] = math.Log(l)
	}

	ncol := p.Counts.NCol()
	cols := make([][]float64, ncol)

	g, ctx2 := errgroup.WithContext(ctx)
	if o.Threads > 0 {
		g.SetLimit(o.Threads)
	}
	for j := 0; j < ncol; j++ {
		j := j
		g.Go(func() error {
			if e := ctx2.Err(); e != nil {
				return e
			}
			col := ColumnTpm(p.Counts.Column(j), logLengths)
			if e := RoundAll(col, o.Digits); e != nil {
				return e
			}
			cols[j] = col
			return nil
		})
	}
	if e := g.Wait(); e != nil {
		return nil, h(e)
	}

	res := &Result{
		Header: p.Counts.Header,
		Ids: p.Counts.Ids,
		Names: p.Names,
		Values: make([][]float64, p.NRow()),
		Digits: o.Digits,
	}
	for i := range res.Values {
		row := make([]float64, ncol)
		for j := range row {
			row[j] = cols[j][i]
		}
		res.Values[i] = row
	}

	log.WithFields(logrus.Fields{
		"features": p.NRow(),
		"samples": ncol,
		"digits": o.Digits,
	}).Info("normalised counts to TPM")
	return res, nil
}

// Render lays the result out as a count table. With useNames the identifier
// column holds display names, which need not be unique; Index then maps each
// name to its first row.
func Render(res *Result, useNames bool) *CountTable {
	t := NewCountTable(res.Header)
	t.Ids = res.Ids
	if useNames {
		t.Ids = res.Names
	}
	t.Values = res.Values
	for i, id := range t.Ids {
		if _, ok := t.Index[id]; !ok {
			t.Index[id] = i
		}
	}
	return t
}

func WriteResult(w io.Writer, res *Result, useNames bool) error {
	return WriteTable(w, Render(res, useNames), res.Digits)
}
