package pipeline

import "strings"

type manufacturerCode struct {
	fragment string
	code     string
}

// Tested in order against the lowercased manufacturer name; first hit wins.
var manufacturerCodes = []manufacturerCode{
	{"rittal", "RIT"},
	{"siemens", "SIE"},
	{"wöhner", "WOE"},
	{"lenze", "LEN"},
	{"eta", "ETA"},
	{"lütze", "LUE"},
	{"harting", "HAR"},
	{"festo", "FES"},
	{"lapp", "LAPP"},
	{"phoenix", "PXC"},
	{"schmersal", "SCHM"},
	{"helukabel", "HELU"},
	{"weidmüller", "WEI"},
	{"murrelektr", "MURR"},
	{"jumo", "JUMO"},
	{"pepperl&fu", "P+F"},
	{"neutrik", "NEU"},
	{"block", "BLO"},
	{"eaton", "ETN"},
	{"siba", "SIBA"},
}

// AbbreviationFor returns the short manufacturer code, or "" when none applies.
func AbbreviationFor(manufacturer string) string {
	lower := strings.ToLower(manufacturer)
	if strings.TrimSpace(lower) == "" {
		return ""
	}
	for _, m := range manufacturerCodes {
		if strings.Contains(lower, m.fragment) {
			return m.code
		}
	}
	return ""
}
