package refsheet

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

var ErrUnknownImportType = errors.Base("unknown import type")

const importLeadingBlanks = 6

// importLayouts maps an import type to the source header feeding each of the
// five columns after the leading blanks. Empty names stay blank.
var importLayouts = map[string][5]string{
	"abbreviations": {"Ürün Numarası", "Tip Numarası", "Sipariş Numarası", "Üretici", "Üretici Adı"},
	"replacements":  {"Orijinal", "Yeni", "", "", ""},
	"exclusions":    {"Sipariş Numarası", "", "", "", ""},
}

func ImportTypes() []string {
	return []string{"abbreviations", "replacements", "exclusions"}
}

// BuildImportRows lays header-keyed records out in the import sheet's fixed columns.
func BuildImportRows(kind string, records []map[string]string) ([][]string, error) {
	layout, ok := importLayouts[kind]
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrUnknownImportType, kind)
	}

	out := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, importLeadingBlanks, importLeadingBlanks+len(layout))
		for _, name := range layout {
			if name == "" {
				row = append(row, "")
				continue
			}
			row = append(row, rec[name])
		}
		out = append(out, row)
	}
	return out, nil
}

type Appender interface {
	AppendRows(ctx context.Context, rows [][]string) (string, error)
}

type ImportResult struct {
	Count        int    `json:"count"`
	UpdatedRange string `json:"updatedRange,omitempty"`
}

// Importer pushes operator spreadsheets into the shared import sheet.
type Importer struct {
	appender Appender
}

func NewImporter(appender Appender) *Importer {
	return &Importer{appender: appender}
}

func (i *Importer) Import(ctx context.Context, kind string, records []map[string]string) (ImportResult, error) {
	rows, err := BuildImportRows(kind, records)
	if err != nil {
		return ImportResult{}, err
	}
	if i.appender == nil {
		return ImportResult{}, errors.WithStack(ErrCredentialsMissing)
	}
	if len(rows) == 0 {
		return ImportResult{Count: 0}, nil
	}
	updated, err := i.appender.AppendRows(ctx, rows)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Count: len(records), UpdatedRange: updated}, nil
}
