package pipeline

import (
	"strings"

	"ortkod/internal"
)

// Groups holds valid records per selected Ort, in selection order.
type Groups struct {
	Orts    []string
	Records map[string][]internal.OutputRecord
}

func NewGroups(selectedOrts []string) Groups {
	g := Groups{Records: make(map[string][]internal.OutputRecord, len(selectedOrts))}
	for _, ort := range selectedOrts {
		if _, ok := g.Records[ort]; ok {
			continue
		}
		g.Orts = append(g.Orts, ort)
		g.Records[ort] = []internal.OutputRecord{}
	}
	return g
}

// All returns every record, group by group.
func (g Groups) All() []internal.OutputRecord {
	var out []internal.OutputRecord
	for _, ort := range g.Orts {
		out = append(out, g.Records[ort]...)
	}
	return out
}

func (g Groups) Codes() []string {
	all := g.All()
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.Kod)
	}
	return out
}

func (g Groups) Len() int {
	n := 0
	for _, records := range g.Records {
		n += len(records)
	}
	return n
}

// Aggregate runs the row processor over rows whose Ort is selected.
func Aggregate(rows []internal.InputRow, selectedOrts []string, proc *RowProcessor) (Groups, []internal.InvalidRowReport) {
	groups := NewGroups(selectedOrts)
	invalid := []internal.InvalidRowReport{}

	for _, row := range rows {
		if strings.TrimSpace(row.Ort) == "" {
			continue
		}
		if _, ok := groups.Records[row.Ort]; !ok {
			continue
		}

		result := proc.Process(row)
		switch result.Outcome {
		case OutcomeValid:
			groups.Records[row.Ort] = append(groups.Records[row.Ort], result.Record)
		case OutcomeInvalid:
			invalid = append(invalid, result.Invalid)
		}
	}

	return groups, invalid
}
