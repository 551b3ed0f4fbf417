package tpm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/montanaflynn/stats"
)

func GetAbsBig(x, y float64) (big, small float64) {
	if math.Abs(x) > math.Abs(y) {
		return x, y
	}
	return y, x
}

func AeqOrBothNan(x, y float64) bool {
	if math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	if x == y {
		return true
	}

	big, small := GetAbsBig(x, y)
	thresh := math.Abs(big) / 1e10
	return math.Abs(big-small) < thresh
}

func mustPair(t *testing.T, counts, lengths string) *AlignedPair {
	t.Helper()
	c, e := ReadCountTable(strings.NewReader(counts))
	if e != nil {
		t.Fatal(e)
	}
	l, e := ReadLengthTable(strings.NewReader(lengths), LengthOptions{})
	if e != nil {
		t.Fatal(e)
	}
	return Align(c, l)
}

const scenarioCounts = `gene	s1	s2
geneA	100	0
geneB	300	400
`

const scenarioLengths = `gene	name	length
geneA	A	1000
geneB	B	2000
`

func TestScenario(t *testing.T) {
	p := mustPair(t, scenarioCounts, scenarioLengths)
	res, e := Normalize(context.Background(), p, Options{Digits: 0})
	if e != nil {
		t.Fatal(e)
	}

	expect := [][]float64{
		{400000, 0},
		{600000, 1000000},
	}
	for i, row := range expect {
		for j, v := range row {
			if res.Values[i][j] != v {
				t.Errorf("res[%v][%v] %v != %v", i, j, res.Values[i][j], v)
			}
		}
	}

	var b strings.Builder
	if e := WriteResult(&b, res, false); e != nil {
		t.Fatal(e)
	}
	out := "gene\ts1\ts2\ngeneA\t400000\t0\ngeneB\t600000\t1000000\n"
	if b.String() != out {
		t.Errorf("output %q != %q", b.String(), out)
	}
}

type ColumnArgs struct {
	Name string
	Counts []float64
	Lengths []float64
	Tpm []float64
}

func logs(fs []float64) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = math.Log(f)
	}
	return out
}

func TestColumnTpm(t *testing.T) {
	tests := []ColumnArgs{
		ColumnArgs{"good", []float64{100, 300}, []float64{1000, 2000}, []float64{400000, 600000}},
		ColumnArgs{"zerocount", []float64{0, 400}, []float64{1000, 2000}, []float64{0, 1000000}},
		ColumnArgs{"allzero", []float64{0, 0, 0}, []float64{10, 20, 30}, []float64{0, 0, 0}},
		ColumnArgs{"single", []float64{7}, []float64{3}, []float64{1000000}},
		ColumnArgs{"empty", []float64{}, []float64{}, []float64{}},
		ColumnArgs{"huge", []float64{1e300, 1e300}, []float64{1, 1}, []float64{500000, 500000}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			tpm := ColumnTpm(test.Counts, logs(test.Lengths))
			if len(tpm) != len(test.Tpm) {
				t.Fatalf("len(tpm) %v != %v", len(tpm), len(test.Tpm))
			}
			for i := range tpm {
				if math.IsNaN(tpm[i]) {
					t.Errorf("tpm[%v] is NaN", i)
				}
				if test.Tpm[i] == 0 && tpm[i] != 0 {
					t.Errorf("tpm[%v] %v != exactly 0", i, tpm[i])
				}
				if math.Abs(tpm[i]-test.Tpm[i]) > 1e-6 {
					t.Errorf("tpm[%v] %v != %v", i, tpm[i], test.Tpm[i])
				}
			}
		})
	}
}

const sumCounts = `id	a	b	c
f1	12	0	0
f2	0	0	3
f3	4711	0	0
f4	3	0	99999999
f5	0.5	0	12
`

const sumLengths = `id	name	len
f1	n1	150.5
f2	n2	3000
f3	n3	12
f4	n4	999
f5	n5	1
`

func TestColumnSums(t *testing.T) {
	p := mustPair(t, sumCounts, sumLengths)
	for j := 0; j < p.Counts.NCol(); j++ {
		col := p.Counts.Column(j)
		tpm := ColumnTpm(col, logs(p.Lengths))

		sum, e := stats.Sum(tpm)
		if e != nil {
			t.Fatal(e)
		}

		positive := false
		for i, c := range col {
			if c > 0 {
				positive = true
			}
			if c == 0 && tpm[i] != 0 {
				t.Errorf("column %v row %v: zero count gave %v", j, i, tpm[i])
			}
		}
		if positive && math.Abs(sum-1e6)/1e6 > 1e-6 {
			t.Errorf("column %v sums to %v", j, sum)
		}
		if !positive && sum != 0 {
			t.Errorf("all-zero column %v sums to %v", j, sum)
		}
	}
}

func decimals(s string) int {
	_, frac, found := strings.Cut(s, ".")
	if !found {
		return 0
	}
	return len(frac)
}

func TestRounding(t *testing.T) {
	p := mustPair(t, sumCounts, sumLengths)
	ctx := context.Background()

	raw, e := Normalize(ctx, p, Options{Digits: 15})
	if e != nil {
		t.Fatal(e)
	}

	for _, digits := range []int{0, 2, 5} {
		res, e := Normalize(ctx, p, Options{Digits: digits})
		if e != nil {
			t.Fatal(e)
		}
		for i, row := range res.Values {
			for j, v := range row {
				s := FormatValue(v, digits)
				if decimals(s) > digits {
					t.Errorf("digits %v: %v has too many decimals", digits, s)
				}
				if digits == 0 && v != math.Trunc(v) {
					t.Errorf("digits 0: %v is not an integer", v)
				}
				if digits == 5 && math.Abs(v-raw.Values[i][j]) > 1e-5 {
					t.Errorf("digits 5: %v too far from %v", v, raw.Values[i][j])
				}
			}
		}

		for _, row := range res.Values {
			again := append([]float64{}, row...)
			if e := RoundAll(again, digits); e != nil {
				t.Fatal(e)
			}
			for j := range row {
				if again[j] != row[j] {
					t.Errorf("digits %v: rounding %v again gave %v", digits, row[j], again[j])
				}
			}
		}
	}
}

type DigitsCase struct {
	Name string
	Digits int
	Check func(v, raw float64) bool
}

func TestExtremeDigits(t *testing.T) {
	p := mustPair(t, sumCounts, sumLengths)
	ctx := context.Background()
	raw, e := Normalize(ctx, p, Options{Digits: 15})
	if e != nil {
		t.Fatal(e)
	}

	cases := []DigitsCase{
		DigitsCase{"huge", 400, func(v, raw float64) bool { return math.Abs(v-raw) < 1e-9 }},
		DigitsCase{"tens", -1, func(v, raw float64) bool { return math.Abs(v-10*math.Round(v/10)) < 1e-6 && math.Abs(v-raw) <= 5+1e-6 }},
		DigitsCase{"very_negative", -400, func(v, raw float64) bool { return v == 0 }},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			res, e := Normalize(ctx, p, Options{Digits: c.Digits})
			if e != nil {
				t.Fatal(e)
			}
			for i, row := range res.Values {
				for j, v := range row {
					if math.IsNaN(v) || !c.Check(v, raw.Values[i][j]) {
						t.Errorf("digits %v: %v from %v", c.Digits, v, raw.Values[i][j])
					}
				}
			}
		})
	}
}

func TestThreadsDoNotChangeResult(t *testing.T) {
	p := mustPair(t, sumCounts, sumLengths)
	ctx := context.Background()

	one, e := Normalize(ctx, p, Options{Digits: 5, Threads: 1})
	if e != nil {
		t.Fatal(e)
	}
	all, e := Normalize(ctx, p, Options{Digits: 5, Threads: 0})
	if e != nil {
		t.Fatal(e)
	}
	for i := range one.Values {
		for j := range one.Values[i] {
			if !AeqOrBothNan(one.Values[i][j], all.Values[i][j]) {
				t.Errorf("[%v][%v] %v != %v", i, j, one.Values[i][j], all.Values[i][j])
			}
		}
	}
}

func TestNegativeCount(t *testing.T) {
	p := mustPair(t, "id\ts1\nf1\t-3\nf2\t4\n", "id\tlen\nf1\t10\nf2\t10\n")
	_, e := Normalize(context.Background(), p, Options{})
	if !errors.Is(e, ErrInvalidCount) {
		t.Errorf("error %v is not ErrInvalidCount", e)
	}
}

func TestEmptyPair(t *testing.T) {
	p := mustPair(t, scenarioCounts, "gene\tname\tlength\ngeneZ\tZ\t10\n")
	if p.NRow() != 0 {
		t.Fatalf("p.NRow() %v != 0", p.NRow())
	}
	res, e := Normalize(context.Background(), p, Options{Digits: 2})
	if e != nil {
		t.Fatal(e)
	}
	if len(res.Values) != 0 {
		t.Errorf("len(res.Values) %v != 0", len(res.Values))
	}

	var b strings.Builder
	if e := WriteResult(&b, res, true); e != nil {
		t.Fatal(e)
	}
	if b.String() != "gene\ts1\ts2\n" {
		t.Errorf("output %q is not a bare header", b.String())
	}
}

func TestCancelled(t *testing.T) {
	p := mustPair(t, scenarioCounts, scenarioLengths)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, e := Normalize(ctx, p, Options{})
	if !errors.Is(e, context.Canceled) {
		t.Errorf("error %v is not context.Canceled", e)
	}
}
