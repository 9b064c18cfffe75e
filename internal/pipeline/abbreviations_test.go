package pipeline

import "testing"

func TestAbbreviationFor(t *testing.T) {
	cases := map[string]string{
		"Rittal GmbH":            "RIT",
		"SIEMENS AG":             "SIE",
		"Wöhner":                 "WOE",
		"WÖHNER GmbH":            "WOE",
		"Phoenix Contact":        "PXC",
		"Pepperl&Fuchs":          "P+F",
		"Murrelektronik":         "MURR",
		"Weidmüller Interface":   "WEI",
		"Eaton Electric":         "ETN",
		"ETA Elektrotechnische":  "ETA",
		"Unknown Supplier":       "",
		"":                       "",
		"   ":                    "",
		"Lapp Kabel":             "LAPP",
		"Block Transformatoren":  "BLO",
		"SIBA Sicherungen":       "SIBA",
		"Helukabel":              "HELU",
	}

	for name, want := range cases {
		if got := AbbreviationFor(name); got != want {
			t.Fatalf("AbbreviationFor(%q)=%q want %q", name, got, want)
		}
	}
}

func TestAbbreviationForEarliestWins(t *testing.T) {
	// contains both "siemens" and "eta"; siemens is listed first
	if got := AbbreviationFor("Siemens Metall"); got != "SIE" {
		t.Fatalf("got %q", got)
	}
}
