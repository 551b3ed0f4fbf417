package tpm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/fasttsv"
)

type LengthEntry struct {
	ID string
	Name string
	Length float64
}

// LengthTable maps feature ids to a display name and an effective length.
type LengthTable struct {
	Header []string
	Entries []LengthEntry
	Index map[string]int
}

func (l *LengthTable) Get(id string) (LengthEntry, bool) {
	i, ok := l.Index[id]
	if !ok {
		return LengthEntry{}, false
	}
	return l.Entries[i], true
}

func (l *LengthTable) Append(ent LengthEntry) error {
	if l.Index == nil {
		l.Index = map[string]int{}
	}
	if _, ok := l.Index[ent.ID]; ok {
		return dataErr(ErrDuplicateID, "feature %q appears more than once in the length table", ent.ID)
	}
	l.Index[ent.ID] = len(l.Entries)
	l.Entries = append(l.Entries, ent)
	return nil
}

// LengthOptions selects the columns of a length file. A selector is either a
// header name or a 0-based column index. Empty selectors mean: first column
// for ids, second column for names (only if the file has at least three
// columns), last column for lengths.
type LengthOptions struct {
	IDCol string
	NameCol string
	LengthCol string
	NoHeader bool
}

type lengthCols struct {
	id int
	name int
	length int
}

func resolveColumn(header []string, sel string, def int) (int, error) {
	if sel == "" {
		return def, nil
	}
	for i, name := range header {
		if name == sel {
			return i, nil
		}
	}
	if i, e := strconv.Atoi(sel); e == nil && i >= 0 && i < len(header) {
		return i, nil
	}
	return -1, dataErr(ErrInvalidColumn, "column %q is not in the length file; available columns: %v", sel, strings.Join(header, ", "))
}

func resolveLengthCols(header []string, o LengthOptions) (lengthCols, error) {
	var c lengthCols
	var e error

	if c.id, e = resolveColumn(header, o.IDCol, 0); e != nil {
		return c, e
	}
	if c.length, e = resolveColumn(header, o.LengthCol, len(header)-1); e != nil {
		return c, e
	}

	defName := -1
	if len(header) >= 3 {
		defName = 1
	}
	if c.name, e = resolveColumn(header, o.NameCol, defName); e != nil {
		return c, e
	}
	return c, nil
}

func indexHeader(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func parseLengthLine(line []string, c lengthCols, lnum int) (LengthEntry, error) {
	var ent LengthEntry
	need := c.id
	if c.length > need {
		need = c.length
	}
	if c.name > need {
		need = c.name
	}
	if len(line) <= need {
		return ent, dataErr(ErrShapeMismatch, "line %v has %v fields, need at least %v", lnum, len(line), need+1)
	}

	ent.ID = line[c.id]
	ent.Name = ent.ID
	if c.name >= 0 {
		ent.Name = line[c.name]
	}

	var e error
	ent.Length, e = strconv.ParseFloat(strings.TrimSpace(line[c.length]), 64)
	if e != nil {
		return ent, dataErr(ErrInvalidLength, "line %v, feature %q: %v", lnum, ent.ID, e)
	}
	return ent, nil
}

// ReadLengthTable reads a tab-separated length file. Lines starting with '#'
// are comments. Lengths that are not positive are kept here and rejected by
// Align.
func ReadLengthTable(r io.Reader, o LengthOptions) (*LengthTable, error) {
	h := handle("ReadLengthTable: %w")

	l := &LengthTable{Index: map[string]int{}}
	var cols lengthCols
	started := false

	s := fasttsv.NewScanner(r)
	lnum := 0
	for s.Scan() {
		lnum++
		line := s.Line()
		trimCR(line)
		if skipLine(line) {
			continue
		}

		if !started {
			started = true
			if o.NoHeader {
				l.Header = indexHeader(len(line))
			} else {
				l.Header = copyStrings(line)
			}
			var e error
			if cols, e = resolveLengthCols(l.Header, o); e != nil {
				return nil, h(e)
			}
			if !o.NoHeader {
				continue
			}
		}

		ent, e := parseLengthLine(line, cols, lnum)
		if e != nil {
			return nil, h(e)
		}
		if e = l.Append(ent); e != nil {
			return nil, h(e)
		}
	}

	if e := s.InScanner.Err(); e != nil {
		return nil, h(e)
	}
	if !started {
		return nil, h(fmt.Errorf("length file is empty"))
	}
	return l, nil
}

func ReadLengthTablePath(path string, o LengthOptions) (*LengthTable, error) {
	r, e := csvh.OpenMaybeGz(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()

	l, e := ReadLengthTable(r, o)
	if e != nil {
		return nil, fmt.Errorf("%v: %w", path, e)
	}
	return l, nil
}
