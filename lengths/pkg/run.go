package lengths

import (
	"io"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/sirupsen/logrus"
)

type Flags struct {
	In string
	Out string
	Fasta bool
	Names bool
}

// DefaultOutput turns annot.gtf into annot.lengths. Paths without ".gtf" get
// ".lengths" appended so the input is never overwritten.
func DefaultOutput(path string) string {
	out := strings.ReplaceAll(path, ".gtf", ".lengths")
	if out == path {
		return path + ".lengths"
	}
	return out
}

func compute(r io.Reader, w io.Writer, f Flags, log logrus.FieldLogger) error {
	if f.Fasta {
		rs, e := FastaLengths(r)
		if e != nil {
			return e
		}
		log.WithField("records", len(rs)).Info("measured FASTA records")
		return WriteRecordLengths(w, rs, f.Names)
	}

	a, e := ParseGtf(r)
	if e != nil {
		return e
	}
	gls, e := GeneLengths(a)
	if e != nil {
		return e
	}
	log.WithField("genes", len(gls)).Info("measured genes")
	return WriteGeneLengths(w, gls, f.Names)
}

// Compute reads a GTF (or FASTA) file and writes a length table. Either path
// may end in .gz.
func Compute(f Flags, log logrus.FieldLogger) (err error) {
	h := handle("Compute: %w")
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	r, e := csvh.OpenMaybeGz(f.In)
	if e != nil {
		return h(e)
	}
	defer r.Close()

	w, e := csvh.CreateMaybeGz(f.Out)
	if e != nil {
		return h(e)
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	if e := compute(r, w, f, log.WithField("input", f.In)); e != nil {
		return h(e)
	}
	return nil
}
