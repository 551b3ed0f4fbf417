package tpm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Job is one normalisation run, as read from a JSON job stream.
type Job struct {
	Counts string
	Lengths string
	Output string
	Round *int
	UseNames bool
	IDCol string
	NameCol string
	LengthCol string
	NoHeader bool
}

// DefaultOutput replaces everything after the first dot of the file name
// with ".tpm": "dir/sample.counts.tsv" gives "dir/sample.tpm".
func DefaultOutput(path string) string {
	dir, base := filepath.Split(path)
	stem, _, _ := strings.Cut(base, ".")
	return dir + stem + ".tpm"
}

func (j Job) digits() int {
	if j.Round == nil {
		return DefaultDigits
	}
	return *j.Round
}

func (j Job) output() string {
	if j.Output != "" {
		return j.Output
	}
	return DefaultOutput(j.Counts)
}

func (j Job) lengthOptions() LengthOptions {
	return LengthOptions{
		IDCol: j.IDCol,
		NameCol: j.NameCol,
		LengthCol: j.LengthCol,
		NoHeader: j.NoHeader,
	}
}

func ReadJobs(r io.Reader) ([]Job, error) {
	h := handle("ReadJobs: %w")

	dec := json.NewDecoder(r)
	var jobs []Job
	for {
		var j Job
		e := dec.Decode(&j)
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, h(e)
		}
		if j.Counts == "" || j.Lengths == "" {
			return nil, h(fmt.Errorf("job %v: Counts and Lengths are required", len(jobs)))
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// RunJob normalises one count table and writes it out. Columns are processed
// one at a time; parallelism comes from running jobs side by side.
func RunJob(ctx context.Context, j Job, log logrus.FieldLogger) error {
	log = orDiscard(log).WithField("counts", j.Counts)

	hd, e := OpenHandler(j.Counts, log)
	if e != nil {
		return e
	}
	if e := hd.SetLengthsPath(j.Lengths, j.lengthOptions()); e != nil {
		return e
	}
	if _, e := hd.Normalise(ctx, Options{Digits: j.digits(), Threads: 1, Log: log}); e != nil {
		return fmt.Errorf("%v: %w", j.Counts, e)
	}
	return hd.SavePath(j.output(), j.UseNames)
}

func RunMulti(ctx context.Context, threads int, log logrus.FieldLogger, jobs ...Job) error {
	g, ctx2 := errgroup.WithContext(ctx)
	if threads > 0 {
		g.SetLimit(threads)
	}
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if e := ctx2.Err(); e != nil {
				return e
			}
			return RunJob(ctx2, job, log)
		})
	}
	return g.Wait()
}
