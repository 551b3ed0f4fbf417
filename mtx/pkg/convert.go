package mtx

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/sirupsen/logrus"
)

type Flags struct {
	In string
	Out string
	Names bool
}

// DefaultOutput turns counts.mtx into counts.tsv, or appends ".tsv" when the
// path has no ".mtx".
func DefaultOutput(path string) string {
	out := strings.ReplaceAll(path, ".mtx", ".tsv")
	if out == path {
		return path + ".tsv"
	}
	return out
}

func ReadPath(path string) (*Matrix, error) {
	r, e := csvh.OpenMaybeGz(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()
	return Read(r)
}

// Row name files hold the original id and the display name; column name files
// hold just the name.
const (
	RowNameCol = 1
	ColNameCol = 0
)

// ReadNamesPath returns nil names, not an error, when the file does not exist.
func ReadNamesPath(path string, col int) ([]string, error) {
	if _, e := os.Stat(path); errors.Is(e, fs.ErrNotExist) {
		return nil, nil
	}
	r, e := csvh.OpenMaybeGz(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()
	return ReadNames(r, col)
}

// Convert writes the matrix at f.In as a TSV table. With f.Names, row and
// column names are read from the files given by NamePaths and passed through
// FormatName.
func Convert(f Flags, log logrus.FieldLogger) (err error) {
	h := handle("Convert: %w")

	m, e := ReadPath(f.In)
	if e != nil {
		return h(e)
	}

	var rowNames, colNames []string
	if f.Names {
		rpath, cpath := NamePaths(f.In)
		if rowNames, e = ReadNamesPath(rpath, RowNameCol); e != nil {
			return h(e)
		}
		if colNames, e = ReadNamesPath(cpath, ColNameCol); e != nil {
			return h(e)
		}
		FormatNames(rowNames)
		FormatNames(colNames)
		if log != nil && (rowNames == nil || colNames == nil) {
			log.WithFields(logrus.Fields{"rows": rpath, "cols": cpath}).Warn("name file missing; using indices")
		}
	}

	w, e := csvh.CreateMaybeGz(f.Out)
	if e != nil {
		return h(e)
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	if e := Write(w, m, rowNames, colNames); e != nil {
		return h(e)
	}
	if log != nil {
		log.WithFields(logrus.Fields{"rows": m.Rows, "cols": m.Cols, "output": f.Out}).Info("converted matrix")
	}
	return nil
}
