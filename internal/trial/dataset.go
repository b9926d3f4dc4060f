package trial

import (
	"encoding/csv"
	"os"
	"strings"

	"blockinstruct.ai/internal/protocol"
)

// Type categorizes a trial by how much the instruction leaves unsaid.
type Type string

const (
	TypeFullySpec   Type = "fully_spec"
	TypeColorUnder  Type = "color_under"
	TypeNumberUnder Type = "number_under"
	TypeOther       Type = "other"
)

func parseType(s string) Type {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "fully_spec":
		return TypeFullySpec
	case "color_under":
		return TypeColorUnder
	case "number_under":
		return TypeNumberUnder
	default:
		return TypeOther
	}
}

// Record is one immutable trial row. Identity is TrialID; a base trial
// number may carry an "a"/"b" version suffix.
type Record struct {
	TrialID         string
	Type            Type
	StartStructure  string
	Instruction     string
	TargetStructure string
	ListID          int
}

// BaseID strips a trailing "a"/"b" version suffix, if present.
func BaseID(trialID string) string {
	if n := len(trialID); n > 1 && (trialID[n-1] == 'a' || trialID[n-1] == 'b') {
		return trialID[:n-1]
	}
	return trialID
}

// Dataset is one loaded stimuli list, indexed by trial id.
type Dataset struct {
	listID  int
	records []Record
	byID    map[string]int
}

var requiredColumns = []string{"trialNumber", "trialType", "startStructure", "sentenceW", "targetStructure"}

// LoadDataset reads one CSV stimuli list. A missing file, missing column, or
// malformed row is a configuration error; nothing is generated from a
// partially loaded list.
func LoadDataset(path string, listID int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, protocol.E(protocol.ErrConfig, "open dataset: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, protocol.E(protocol.ErrConfig, "read dataset %s: %v", path, err)
	}
	if len(rows) == 0 {
		return nil, protocol.E(protocol.ErrConfig, "dataset %s: empty file", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, protocol.E(protocol.ErrConfig, "dataset %s: missing column %q", path, name)
		}
	}

	width := 0
	for _, name := range requiredColumns {
		if col[name] >= width {
			width = col[name] + 1
		}
	}

	ds := &Dataset{listID: listID, byID: make(map[string]int)}
	for n, row := range rows[1:] {
		if len(row) < width {
			return nil, protocol.E(protocol.ErrConfig, "dataset %s: row %d has %d fields", path, n+2, len(row))
		}
		id := strings.TrimSpace(row[col["trialNumber"]])
		if id == "" {
			return nil, protocol.E(protocol.ErrConfig, "dataset %s: row %d has empty trialNumber", path, n+2)
		}
		rec := Record{
			TrialID:         id,
			Type:            parseType(row[col["trialType"]]),
			StartStructure:  row[col["startStructure"]],
			Instruction:     row[col["sentenceW"]],
			TargetStructure: row[col["targetStructure"]],
			ListID:          listID,
		}
		if _, dup := ds.byID[id]; !dup {
			ds.byID[id] = len(ds.records)
		}
		ds.records = append(ds.records, rec)
	}
	return ds, nil
}

func (d *Dataset) ListID() int { return d.listID }

func (d *Dataset) Len() int { return len(d.records) }

// Lookup returns the record for an exact trial id (including any version
// suffix).
func (d *Dataset) Lookup(trialID string) (Record, bool) {
	i, ok := d.byID[trialID]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// Categorize maps each trial type to its distinct base trial numbers in
// first-occurrence order.
func (d *Dataset) Categorize() map[Type][]string {
	out := make(map[Type][]string)
	seen := make(map[Type]map[string]bool)
	for _, rec := range d.records {
		base := BaseID(rec.TrialID)
		if seen[rec.Type] == nil {
			seen[rec.Type] = make(map[string]bool)
		}
		if seen[rec.Type][base] {
			continue
		}
		seen[rec.Type][base] = true
		out[rec.Type] = append(out[rec.Type], base)
	}
	return out
}
