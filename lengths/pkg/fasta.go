package lengths

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/fastats/pkg"
)

type RecordLength struct {
	ID string
	Name string
	Length int64
}

// HeaderID splits a FASTA header into an id and a display name. GENCODE
// transcript headers ("ENST|ENSG|...|TranscriptName|GeneName|len|type|")
// use the first field as the id and the fifth as the name.
func HeaderID(header string) (id, name string) {
	fields := strings.Fields(header)
	if len(fields) < 1 {
		return "", ""
	}
	word := fields[0]
	parts := strings.Split(word, "|")
	id = parts[0]
	name = id
	if len(parts) >= 5 && parts[4] != "" {
		name = parts[4]
	}
	return id, name
}

func FastaLengths(r io.Reader) ([]RecordLength, error) {
	var out []RecordLength
	e := fastats.ParseFasta(r).Iterate(func(f fastats.FaEntry) error {
		id, name := HeaderID(f.Header)
		out = append(out, RecordLength{ID: id, Name: name, Length: int64(len(f.Seq))})
		return nil
	})
	if e != nil {
		return nil, handle("FastaLengths: %w")(e)
	}
	return out, nil
}

func WriteRecordLengths(w io.Writer, rs []RecordLength, withNames bool) error {
	h := handle("WriteRecordLengths: %w")
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{"transcript", "length"}
	if withNames {
		header = []string{"transcript", "name", "length"}
	}
	if e := cw.Write(header); e != nil {
		return h(e)
	}
	for _, rl := range rs {
		line := []string{rl.ID, strconv.FormatInt(rl.Length, 10)}
		if withNames {
			line = []string{rl.ID, rl.Name, strconv.FormatInt(rl.Length, 10)}
		}
		if e := cw.Write(line); e != nil {
			return h(e)
		}
	}
	cw.Flush()
	if e := cw.Error(); e != nil {
		return h(e)
	}
	return nil
}
