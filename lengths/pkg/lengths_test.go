package lengths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gtfInput = `#!genome-build test
chr1	src	gene	1	500	.	+	.	gene_id "g1"; gene_name "Alpha";
chr1	src	exon	1	100	.	+	.	gene_id "g1"; transcript_id "t1"; gene_name "Alpha";
chr1	src	exon	201	300	.	+	.	gene_id "g1"; transcript_id "t1"; gene_name "Alpha";
chr1	src	exon	51	150	.	+	.	gene_id "g1"; transcript_id "t2"; gene_name "Alpha";
chr1	src	exon	401	500	.	+	.	gene_id "g1"; transcript_id "t3";
chr1	src	exon	401	450	.	+	.	gene_id "g1"; transcript_id "t3";
chr2	src	exon	10	19	.	-	.	gene_id "g2"; transcript_id "t4";
chr2	src	CDS	10	19	.	-	0	gene_id "g2"; transcript_id "t4";
`

func TestMergedLength(t *testing.T) {
	exons := []Exon{{201, 300}, {1, 100}, {51, 150}, {301, 310}}
	if l := MergedLength(exons); l != 260 {
		t.Errorf("merged %v != 260", l)
	}
	if l := MergedLength(nil); l != 0 {
		t.Errorf("merged of nothing %v != 0", l)
	}
}

func TestParseGtf(t *testing.T) {
	a, e := ParseGtf(strings.NewReader(gtfInput))
	if e != nil {
		t.Fatal(e)
	}
	if len(a.Genes) != 2 {
		t.Fatalf("len(a.Genes) %v != 2", len(a.Genes))
	}
	g1 := a.Genes[0]
	if g1.ID != "g1" || g1.Name != "Alpha" || len(g1.Transcripts) != 3 {
		t.Errorf("g1 %v %v %v", g1.ID, g1.Name, len(g1.Transcripts))
	}
	if len(a.Genes[1].Transcripts[0].Exons) != 1 {
		t.Errorf("CDS lines counted as exons")
	}
}

func TestGeneLengths(t *testing.T) {
	a, e := ParseGtf(strings.NewReader(gtfInput))
	if e != nil {
		t.Fatal(e)
	}
	gls, e := GeneLengths(a)
	if e != nil {
		t.Fatal(e)
	}
	if len(gls) != 2 {
		t.Fatalf("len(gls) %v != 2", len(gls))
	}

	// isoforms: t1 200, t2 100, t3 100; union 1-150, 201-300, 401-500
	g1 := gls[0]
	expect := GeneLength{ID: "g1", Name: "Alpha", Isoforms: 3, Mean: 400.0 / 3.0, Median: 100, Longest: 200, Merged: 350}
	if g1 != expect {
		t.Errorf("g1 %+v != %+v", g1, expect)
	}
	if gls[1].Name != "g2" || gls[1].Merged != 10 {
		t.Errorf("g2 %+v", gls[1])
	}

	var b strings.Builder
	if e := WriteGeneLengths(&b, gls, true); e != nil {
		t.Fatal(e)
	}
	lines := strings.Split(b.String(), "\n")
	if lines[0] != "gene\tname\tmean\tmedian\tlongest_isoform\tmerged" {
		t.Errorf("header %q", lines[0])
	}
	if lines[2] != "g2\tg2\t10\t10\t10\t10" {
		t.Errorf("g2 line %q", lines[2])
	}
}

func TestBadGtf(t *testing.T) {
	_, e := ParseGtf(strings.NewReader("chr1\tsrc\texon\t100\t1\t.\t+\t.\tgene_id \"g\";\n"))
	if e == nil {
		t.Errorf("no error for an exon that ends before it starts")
	}
	_, e = ParseGtf(strings.NewReader("chr1\tsrc\texon\t1\n"))
	if e == nil {
		t.Errorf("no error for a short line")
	}
}

const fastaInput = `>ENST01|ENSG01|x|y|TR-201|GENE|12|protein_coding|
ACGTACGTACGT
>plain description here
ACG
TT
`

func TestFastaLengths(t *testing.T) {
	rs, e := FastaLengths(strings.NewReader(fastaInput))
	if e != nil {
		t.Fatal(e)
	}
	if len(rs) != 2 {
		t.Fatalf("len(rs) %v != 2", len(rs))
	}
	if rs[0] != (RecordLength{"ENST01", "TR-201", 12}) {
		t.Errorf("record 0 %+v", rs[0])
	}
	if rs[1] != (RecordLength{"plain", "plain", 5}) {
		t.Errorf("record 1 %+v", rs[1])
	}
}

func TestCompute(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "annot.gtf")
	if e := os.WriteFile(in, []byte(gtfInput), 0644); e != nil {
		t.Fatal(e)
	}
	out := filepath.Join(dir, "annot.lengths")
	if e := Compute(Flags{In: in, Out: out}, nil); e != nil {
		t.Fatal(e)
	}
	got, e := os.ReadFile(out)
	if e != nil {
		t.Fatal(e)
	}
	if !strings.HasPrefix(string(got), "gene\tmean\tmedian\tlongest_isoform\tmerged\ng1\t") {
		t.Errorf("output %q", got)
	}
}

func TestDefaultOutput(t *testing.T) {
	if o := DefaultOutput("ref/gencode.v22.gtf"); o != "ref/gencode.v22.lengths" {
		t.Errorf("%v != ref/gencode.v22.lengths", o)
	}
	if o := DefaultOutput("ref/transcripts.fa"); o != "ref/transcripts.fa.lengths" {
		t.Errorf("%v != ref/transcripts.fa.lengths", o)
	}
}
