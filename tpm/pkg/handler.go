package tpm

import (
	"context"
	"errors"
	"io"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/sirupsen/logrus"
)

var ErrNotNormalised = errors.New("the table has not been normalised")

// Handler carries one count table through length attachment, normalisation
// and saving. The raw table is never modified.
type Handler struct {
	src string
	raw *CountTable
	lengths *LengthTable
	pair *AlignedPair
	result *Result
	log logrus.FieldLogger
}

func NewHandler(counts *CountTable, log logrus.FieldLogger) *Handler {
	return &Handler{raw: counts, log: orDiscard(log)}
}

func OpenHandler(path string, log logrus.FieldLogger) (*Handler, error) {
	t, e := ReadCountTablePath(path)
	if e != nil {
		return nil, e
	}
	hd := NewHandler(t, log)
	hd.src = path
	return hd, nil
}

// SetLengths attaches a length table and aligns it to the counts.
func (hd *Handler) SetLengths(l *LengthTable) *Handler {
	hd.lengths = l
	hd.pair = Align(hd.raw, l)
	hd.result = nil

	hd.log.WithFields(logrus.Fields{
		"kept": hd.pair.NRow(),
		"missing": hd.pair.Missing,
	}).Info("aligned counts to lengths")
	if hd.pair.Unusable > 0 {
		hd.log.WithField("features", hd.pair.Unusable).Warn("dropped features with non-positive lengths")
	}
	if hd.pair.NRow() == 0 {
		hd.log.Warn("no features in common between counts and lengths")
	}
	return hd
}

func (hd *Handler) SetLengthsPath(path string, o LengthOptions) error {
	l, e := ReadLengthTablePath(path, o)
	if e != nil {
		return e
	}
	hd.SetLengths(l)
	return nil
}

func (hd *Handler) HasLengths() bool {
	return hd.lengths != nil
}

func (hd *Handler) Normalise(ctx context.Context, o Options) (*Result, error) {
	if !hd.HasLengths() {
		return nil, ErrMissingLengths
	}
	if o.Log == nil {
		o.Log = hd.log
	}
	res, e := Normalize(ctx, hd.pair, o)
	if e != nil {
		return nil, e
	}
	hd.result = res
	return res, nil
}

// RawCounts returns the unfiltered table as read.
func (hd *Handler) RawCounts() *CountTable {
	return hd.raw
}

// Lengths returns the aligned pair, or nil before SetLengths.
func (hd *Handler) Lengths() *AlignedPair {
	return hd.pair
}

func (hd *Handler) Result() *Result {
	return hd.result
}

func (hd *Handler) Save(w io.Writer, useNames bool) error {
	if hd.result == nil {
		return ErrNotNormalised
	}
	return WriteResult(w, hd.result, useNames)
}

func (hd *Handler) SavePath(path string, useNames bool) (err error) {
	if hd.result == nil {
		return ErrNotNormalised
	}
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	if e := hd.Save(w, useNames); e != nil {
		return e
	}
	hd.log.WithField("path", path).Info("saved TPM table")
	return nil
}

func (hd *Handler) String() string {
	return "Handler(file='" + hd.src + "')"
}
