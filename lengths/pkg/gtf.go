package lengths

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/iter"
	"github.com/jgbaldwinbrown/lscan/pkg"
)

func handle(format string) func(...any) error {
	return func(args ...any) error {
		return fmt.Errorf(format, args...)
	}
}

// GtfRecord is one feature line of a GTF file. Start and End are 1-based and
// inclusive.
type GtfRecord struct {
	Chr string
	Source string
	Feature string
	Start int64
	End int64
	Strand string
	Attributes map[string]string
}

// ParseAttributes reads `key "value"; key "value";` pairs.
func ParseAttributes(s string) map[string]string {
	out := map[string]string{}
	for _, field := range strings.Split(s, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, val, found := strings.Cut(field, " ")
		if !found {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		if _, ok := out[key]; !ok {
			out[key] = val
		}
	}
	return out
}

var gtfSplit = lscan.ByByte('\t')

func ParseGtfLine(line []string) (GtfRecord, error) {
	var g GtfRecord
	if len(line) < 9 {
		return g, fmt.Errorf("GTF line has %v fields, need 9", len(line))
	}
	g.Chr = line[0]
	g.Source = line[1]
	g.Feature = line[2]
	g.Strand = line[6]

	var e error
	if g.Start, e = strconv.ParseInt(line[3], 10, 64); e != nil {
		return g, e
	}
	if g.End, e = strconv.ParseInt(line[4], 10, 64); e != nil {
		return g, e
	}
	if g.End < g.Start {
		return g, fmt.Errorf("feature end %v before start %v", g.End, g.Start)
	}
	g.Attributes = ParseAttributes(line[8])
	return g, nil
}

// GtfRecords iterates over the feature lines of r, skipping '#' comments.
func GtfRecords(r io.Reader) *iter.Iterator[GtfRecord] {
	return &iter.Iterator[GtfRecord]{Iteratef: func(yield func(GtfRecord) error) error {
		h := handle("GtfRecords: line %v: %w")
		s := iter.NewScanner(r)
		var line []string
		lnum := 0
		for s.Scan() {
			if s.Err() != nil {
				return s.Err()
			}
			lnum++
			text := strings.TrimSuffix(s.Text(), "\r")
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			line = lscan.SplitByFunc(line, text, gtfSplit)
			g, e := ParseGtfLine(line)
			if e != nil {
				return h(lnum, e)
			}
			if e := yield(g); e != nil {
				return e
			}
		}
		return s.Err()
	}}
}

type Exon struct {
	Start int64
	End int64
}

func (x Exon) Len() int64 {
	return x.End - x.Start + 1
}

type Transcript struct {
	ID string
	Exons []Exon
}

type Gene struct {
	ID string
	Name string
	Transcripts []*Transcript
	tindex map[string]int
}

func (g *Gene) transcript(id string) *Transcript {
	if i, ok := g.tindex[id]; ok {
		return g.Transcripts[i]
	}
	t := &Transcript{ID: id}
	g.tindex[id] = len(g.Transcripts)
	g.Transcripts = append(g.Transcripts, t)
	return t
}

// Annotation holds the exons of every gene, in the order genes first appear.
type Annotation struct {
	Genes []*Gene
	Index map[string]int
}

func (a *Annotation) gene(id string) *Gene {
	if i, ok := a.Index[id]; ok {
		return a.Genes[i]
	}
	g := &Gene{ID: id, tindex: map[string]int{}}
	a.Index[id] = len(a.Genes)
	a.Genes = append(a.Genes, g)
	return g
}

// ParseGtf collects exons by gene_id and transcript_id. Exons without a
// transcript_id are treated as one transcript named after the gene. Gene
// names come from the first gene_name attribute seen on any line of the
// gene.
func ParseGtf(r io.Reader) (*Annotation, error) {
	a := &Annotation{Index: map[string]int{}}
	e := GtfRecords(r).Iterate(func(rec GtfRecord) error {
		gid, ok := rec.Attributes["gene_id"]
		if !ok {
			return nil
		}
		isExon := rec.Feature == "exon"
		name, hasName := rec.Attributes["gene_name"]
		if !isExon && !hasName {
			return nil
		}

		g := a.gene(gid)
		if hasName && g.Name == "" {
			g.Name = name
		}
		if !isExon {
			return nil
		}

		tid, ok := rec.Attributes["transcript_id"]
		if !ok {
			tid = gid
		}
		t := g.transcript(tid)
		t.Exons = append(t.Exons, Exon{rec.Start, rec.End})
		return nil
	})
	if e != nil {
		return nil, fmt.Errorf("ParseGtf: %w", e)
	}
	return a, nil
}
