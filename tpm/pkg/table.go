package tpm

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/fasttsv"
)

// CountTable is a feature by sample matrix. Header[0] names the identifier
// column and Header[1:] are the sample names. Values is row-major, one row per
// entry in Ids.
type CountTable struct {
	Header []string
	Ids []string
	Index map[string]int
	Values [][]float64
}

func NewCountTable(header []string) *CountTable {
	return &CountTable{
		Header: header,
		Index: map[string]int{},
	}
}

func (t *CountTable) Samples() []string {
	if len(t.Header) < 1 {
		return nil
	}
	return t.Header[1:]
}

func (t *CountTable) NRow() int {
	return len(t.Ids)
}

func (t *CountTable) NCol() int {
	return len(t.Samples())
}

// Append adds a row. Ids must be unique.
func (t *CountTable) Append(id string, vals []float64) error {
	if len(vals) != t.NCol() {
		return dataErr(ErrShapeMismatch, "feature %q has %v values, table has %v samples", id, len(vals), t.NCol())
	}
	if _, ok := t.Index[id]; ok {
		return dataErr(ErrDuplicateID, "feature %q appears more than once", id)
	}
	t.Index[id] = len(t.Ids)
	t.Ids = append(t.Ids, id)
	t.Values = append(t.Values, vals)
	return nil
}

func (t *CountTable) Column(j int) []float64 {
	out := make([]float64, len(t.Values))
	for i, row := range t.Values {
		out[i] = row[j]
	}
	return out
}

// Subset returns a new table holding the given rows in the given order. Row
// slices are shared with t.
func (t *CountTable) Subset(rows []int) *CountTable {
	out := NewCountTable(t.Header)
	out.Ids = make([]string, 0, len(rows))
	out.Values = make([][]float64, 0, len(rows))
	for _, r := range rows {
		out.Index[t.Ids[r]] = len(out.Ids)
		out.Ids = append(out.Ids, t.Ids[r])
		out.Values = append(out.Values, t.Values[r])
	}
	return out
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func skipLine(line []string) bool {
	if len(line) == 0 {
		return true
	}
	if len(line) == 1 && strings.TrimSpace(line[0]) == "" {
		return true
	}
	return strings.HasPrefix(line[0], "#")
}

func trimCR(line []string) {
	if len(line) > 0 {
		line[len(line)-1] = strings.TrimSuffix(line[len(line)-1], "\r")
	}
}

// ReadCountTable reads a tab-separated count table: one header line of
// sample names, then one line per feature with its identifier followed by
// one count per sample. Lines starting with '#' are skipped.
func ReadCountTable(r io.Reader) (*CountTable, error) {
	h := handle("ReadCountTable: %w")

	var t *CountTable
	s := fasttsv.NewScanner(r)
	lnum := 0
	for s.Scan() {
		lnum++
		line := s.Line()
		trimCR(line)
		if skipLine(line) {
			continue
		}

		if t == nil {
			if len(line) < 1 {
				return nil, h(fmt.Errorf("line %v: empty header", lnum))
			}
			t = NewCountTable(copyStrings(line))
			continue
		}

		if len(line) != len(t.Header) {
			return nil, h(dataErr(ErrShapeMismatch, "line %v has %v fields, header has %v", lnum, len(line), len(t.Header)))
		}

		id := line[0]
		vals := make([]float64, len(line)-1)
		for i, field := range line[1:] {
			v, e := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if e != nil {
				return nil, h(dataErr(ErrInvalidCount, "line %v, feature %q, sample %q: %v", lnum, id, t.Header[i+1], e))
			}
			vals[i] = v
		}
		if e := t.Append(id, vals); e != nil {
			return nil, h(e)
		}
	}

	if e := s.InScanner.Err(); e != nil {
		return nil, h(e)
	}
	if t == nil {
		return nil, h(fmt.Errorf("no header line found"))
	}
	return t, nil
}

func ReadCountTablePath(path string) (*CountTable, error) {
	r, e := csvh.OpenMaybeGz(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()

	t, e := ReadCountTable(r)
	if e != nil {
		return nil, fmt.Errorf("%v: %w", path, e)
	}
	return t, nil
}

// FormatValue writes v with no fractional part when digits <= 0, and in its
// shortest exact form otherwise (rounded values never print more than digits
// decimals).
func FormatValue(v float64, digits int) string {
	if digits <= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func WriteTable(w io.Writer, t *CountTable, digits int) error {
	h := handle("WriteTable: %w")

	cw := csv.NewWriter(w)
	cw.Comma = rune('\t')

	if e := cw.Write(t.Header); e != nil {
		return h(e)
	}

	line := make([]string, len(t.Header))
	for i, id := range t.Ids {
		line = line[:0]
		line = append(line, id)
		for _, v := range t.Values[i] {
			line = append(line, FormatValue(v, digits))
		}
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

func WriteTablePath(path string, t *CountTable, digits int) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	return WriteTable(w, t, digits)
}
