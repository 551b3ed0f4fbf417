package mtx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/iter"
	"github.com/jgbaldwinbrown/lscan/pkg"
)

func handle(format string) func(...any) error {
	return func(args ...any) error {
		return fmt.Errorf(format, args...)
	}
}

var ErrBadHeader = errors.New("not a MatrixMarket matrix header")

// Matrix is a dense copy of a MatrixMarket file.
type Matrix struct {
	Rows int
	Cols int
	Values [][]float64
}

func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{Rows: rows, Cols: cols, Values: make([][]float64, rows)}
	for i := range m.Values {
		m.Values[i] = make([]float64, cols)
	}
	return m
}

type header struct {
	Format string
	Field string
	Symmetry string
}

func parseHeader(line string) (header, error) {
	var hd header
	f := strings.Fields(strings.ToLower(line))
	if len(f) != 5 || f[0] != "%%matrixmarket" || f[1] != "matrix" {
		return hd, fmt.Errorf("%w: %q", ErrBadHeader, line)
	}
	hd.Format, hd.Field, hd.Symmetry = f[2], f[3], f[4]

	switch hd.Format {
	case "coordinate", "array":
	default:
		return hd, fmt.Errorf("%w: format %q", ErrBadHeader, hd.Format)
	}
	switch hd.Field {
	case "real", "integer", "double":
	case "pattern":
		if hd.Format == "array" {
			return hd, fmt.Errorf("%w: pattern array", ErrBadHeader)
		}
	default:
		return hd, fmt.Errorf("%w: field %q", ErrBadHeader, hd.Field)
	}
	switch hd.Symmetry {
	case "general", "symmetric":
	default:
		return hd, fmt.Errorf("%w: symmetry %q", ErrBadHeader, hd.Symmetry)
	}
	return hd, nil
}

var split = lscan.ByByte(' ')

func fields(buf []string, line string) []string {
	line = strings.TrimSpace(strings.ReplaceAll(line, "\t", " "))
	buf = lscan.SplitByFunc(buf, line, split)
	out := buf[:0]
	for _, f := range buf {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

type reader struct {
	hd header
	m *Matrix
	entries int
	seen int
	line []string
}

func (rd *reader) size(line string) error {
	rd.line = fields(rd.line, line)
	var rows, cols int
	if rd.hd.Format == "array" {
		if _, e := csvh.Scan(rd.line, &rows, &cols); e != nil {
			return e
		}
		rd.entries = rows * cols
		if rd.hd.Symmetry == "symmetric" {
			rd.entries = rows * (rows + 1) / 2
		}
	} else {
		if _, e := csvh.Scan(rd.line, &rows, &cols, &rd.entries); e != nil {
			return e
		}
	}
	if rows < 0 || cols < 0 || rd.entries < 0 {
		return fmt.Errorf("negative size line %q", line)
	}
	if rd.hd.Symmetry == "symmetric" && rows != cols {
		return fmt.Errorf("symmetric matrix is %v by %v", rows, cols)
	}
	rd.m = NewMatrix(rows, cols)
	return nil
}

func (rd *reader) set(i, j int, v float64) {
	rd.m.Values[i][j] += v
	if rd.hd.Symmetry == "symmetric" && i != j {
		rd.m.Values[j][i] += v
	}
}

func (rd *reader) arrayEntry(line string) error {
	var v float64
	rd.line = fields(rd.line, line)
	if _, e := csvh.Scan(rd.line, &v); e != nil {
		return e
	}

	// column-major; symmetric arrays list only the lower triangle
	var i, j int
	if rd.hd.Symmetry == "symmetric" {
		n := rd.seen
		for j = 0; n >= rd.m.Rows-j; j++ {
			n -= rd.m.Rows - j
		}
		i = j + n
	} else {
		i = rd.seen % rd.m.Rows
		j = rd.seen / rd.m.Rows
	}
	rd.set(i, j, v)
	rd.seen++
	return nil
}

func (rd *reader) coordEntry(line string) error {
	var i, j int
	v := 1.0
	rd.line = fields(rd.line, line)
	if rd.hd.Field == "pattern" {
		if _, e := csvh.Scan(rd.line, &i, &j); e != nil {
			return e
		}
	} else {
		if _, e := csvh.Scan(rd.line, &i, &j, &v); e != nil {
			return e
		}
	}
	if i < 1 || i > rd.m.Rows || j < 1 || j > rd.m.Cols {
		return fmt.Errorf("entry (%v, %v) outside a %v by %v matrix", i, j, rd.m.Rows, rd.m.Cols)
	}
	rd.set(i-1, j-1, v)
	rd.seen++
	return nil
}

// Read parses a MatrixMarket file into a dense matrix. Repeated coordinate
// entries are summed.
func Read(r io.Reader) (*Matrix, error) {
	h := handle("mtx.Read: line %v: %w")
	var rd reader

	s := iter.NewScanner(r)
	lnum := 0
	for s.Scan() {
		if s.Err() != nil {
			return nil, s.Err()
		}
		lnum++
		text := strings.TrimSuffix(s.Text(), "\r")

		if lnum == 1 {
			var e error
			if rd.hd, e = parseHeader(text); e != nil {
				return nil, h(lnum, e)
			}
			continue
		}
		if strings.HasPrefix(text, "%") || strings.TrimSpace(text) == "" {
			continue
		}

		var e error
		switch {
		case rd.m == nil:
			e = rd.size(text)
		case rd.seen >= rd.entries:
			e = fmt.Errorf("more than %v entries", rd.entries)
		case rd.hd.Format == "array":
			e = rd.arrayEntry(text)
		default:
			e = rd.coordEntry(text)
		}
		if e != nil {
			return nil, h(lnum, e)
		}
	}
	if e := s.Err(); e != nil {
		return nil, h(lnum, e)
	}

	if rd.m == nil {
		return nil, h(lnum, fmt.Errorf("missing size line"))
	}
	if rd.seen != rd.entries {
		return nil, h(lnum, fmt.Errorf("found %v entries, header says %v", rd.seen, rd.entries))
	}
	return rd.m, nil
}

// ReadNames reads one name per line from tab-separated field col, falling
// back to the first field on lines that are too short.
func ReadNames(r io.Reader, col int) ([]string, error) {
	var names []string
	var line []string
	tab := lscan.ByByte('\t')
	s := iter.NewScanner(r)
	for s.Scan() {
		if s.Err() != nil {
			return nil, s.Err()
		}
		line = lscan.SplitByFunc(line, strings.TrimSuffix(s.Text(), "\r"), tab)
		if col < len(line) {
			names = append(names, line[col])
		} else {
			names = append(names, line[0])
		}
	}
	return names, s.Err()
}

// nameFormatter swaps out characters that downstream deconvolution tools
// (EcoTyper) reject in gene and cell names.
var nameFormatter = strings.NewReplacer("-", "_", " ", ".")

func FormatName(name string) string {
	return nameFormatter.Replace(name)
}

func FormatNames(names []string) {
	for i, n := range names {
		names[i] = FormatName(n)
	}
}

// NamePaths gives the row and column name files that sit beside a matrix:
// counts.mtx has counts.mtx_rows and counts.mtx_cols.
func NamePaths(path string) (rows, cols string) {
	p := strings.TrimSuffix(path, ".gz")
	return p + "_rows", p + "_cols"
}

func label(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return strconv.Itoa(i)
}

func fmtVal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write prints m as a tab-separated table with an empty corner cell, column
// names on the first line and a row name at the start of every other line.
// Missing names become 0-based indices.
func Write(w io.Writer, m *Matrix, rowNames, colNames []string) error {
	h := handle("mtx.Write: %w")

	line := make([]string, 0, m.Cols+1)
	line = append(line, "")
	for j := 0; j < m.Cols; j++ {
		line = append(line, label(colNames, j))
	}
	if _, e := fmt.Fprintln(w, strings.Join(line, "\t")); e != nil {
		return h(e)
	}

	for i, row := range m.Values {
		line = append(line[:0], label(rowNames, i))
		for _, v := range row {
			line = append(line, fmtVal(v))
		}
		if _, e := fmt.Fprintln(w, strings.Join(line, "\t")); e != nil {
			return h(e)
		}
	}
	return nil
}
