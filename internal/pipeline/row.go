package pipeline

import (
	"strings"

	"ortkod/internal"
	"ortkod/internal/util"
)

type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeValid
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "dropped"
	}
}

type RowResult struct {
	Outcome Outcome
	Record  internal.OutputRecord
	Invalid internal.InvalidRowReport
}

// RowProcessor turns one input row into an output record using a fixed rule set
// and override snapshot.
type RowProcessor struct {
	Rules     RuleSet
	Overrides *Resolver
}

func NewRowProcessor(rules RuleSet, overrides *Resolver) *RowProcessor {
	if overrides == nil {
		overrides = NewResolver(nil, nil, nil)
	}
	return &RowProcessor{Rules: rules, Overrides: overrides}
}

func (p *RowProcessor) Process(row internal.InputRow) RowResult {
	orderNumber := row.BestellNr
	resolution := p.Overrides.Resolve(orderNumber)

	if resolution.Kind == ResolutionManual {
		return RowResult{
			Outcome: OutcomeValid,
			Record: internal.OutputRecord{
				Etiket: etiket(row),
				Kod:    resolution.Abbreviation + "." + p.finalOrderNumber(orderNumber, resolution),
				Adet:   util.ParseQuantity(row.Teilemenge),
				Ort:    row.Ort,
			},
		}
	}

	var missing []string
	if util.IsBlank(row.Hersteller) {
		missing = append(missing, internal.ColHersteller)
	}
	if util.IsBlank(orderNumber) {
		missing = append(missing, internal.ColBestellNr)
	}
	if len(missing) > 0 {
		return RowResult{
			Outcome: OutcomeInvalid,
			Invalid: internal.InvalidRowReport{
				RowNumber:     row.RowNumber,
				Anlage:        row.Anlage,
				Funktion:      row.Funktion,
				Ort:           row.Ort,
				BMK:           row.BMK,
				Hersteller:    row.Hersteller,
				BestellNr:     row.BestellNr,
				Teilemenge:    row.Teilemenge,
				MissingFields: strings.Join(missing, ", "),
			},
		}
	}

	if p.Overrides.IsExcluded(orderNumber) {
		return RowResult{Outcome: OutcomeDropped}
	}

	final := p.finalOrderNumber(orderNumber, resolution)
	kod := final
	if abbr := AbbreviationFor(row.Hersteller); abbr != "" {
		kod = abbr + "." + final
	}

	return RowResult{
		Outcome: OutcomeValid,
		Record: internal.OutputRecord{
			Etiket: etiket(row),
			Kod:    kod,
			Adet:   util.ParseQuantity(row.Teilemenge),
			Ort:    row.Ort,
		},
	}
}

// finalOrderNumber passes a replacement through untouched and rule-rewrites everything else.
func (p *RowProcessor) finalOrderNumber(orderNumber string, resolution Resolution) string {
	if resolution.Replaced {
		return p.Rules.Apply(resolution.Replacement, true)
	}
	return p.Rules.Apply(orderNumber, false)
}

func etiket(row internal.InputRow) string {
	return strings.TrimSpace(row.Anlage + row.Funktion + row.Ort + row.BMK)
}
