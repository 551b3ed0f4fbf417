package tpm

import (
	"encoding/json"
	"io"
	"math"
)

// Float encodes NaN and the infinities as JSON strings so that undefined
// fits survive a round trip.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return []byte(`"NaN"`), nil
	case math.IsInf(x, 1):
		return []byte(`"Inf"`), nil
	case math.IsInf(x, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(x)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"NaN"`:
		*f = Float(math.NaN())
	case `"Inf"`:
		*f = Float(math.Inf(1))
	case `"-Inf"`:
		*f = Float(math.Inf(-1))
	default:
		var x float64
		if e := json.Unmarshal(b, &x); e != nil {
			return e
		}
		*f = Float(x)
	}
	return nil
}

type comparisonJSON struct {
	Sample string
	N int
	Pearson Float
	Slope Float
	Intercept Float
	R2 Float
	MaxAbsDiff Float
}

// WriteComparisonsJSON writes one JSON object per comparison.
func WriteComparisonsJSON(w io.Writer, cs []Comparison) error {
	enc := json.NewEncoder(w)
	for _, c := range cs {
		e := enc.Encode(comparisonJSON{
			c.Sample, c.N, Float(c.Pearson), Float(c.Slope),
			Float(c.Intercept), Float(c.R2), Float(c.MaxAbsDiff),
		})
		if e != nil {
			return handle("WriteComparisonsJSON: %w")(e)
		}
	}
	return nil
}
