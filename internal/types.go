package internal

// Column names of the uploaded bill-of-materials sheet.
const (
	ColAnlage     = "Anlage"
	ColFunktion   = "Funktion"
	ColOrt        = "Ort"
	ColBMK        = "BMK"
	ColHersteller = "Hersteller"
	ColBestellNr  = "Bestell_Nr_"
	ColTeilemenge = "Teilemenge"
)

var RequiredColumns = []string{ColAnlage, ColFunktion, ColOrt, ColBMK, ColHersteller, ColBestellNr, ColTeilemenge}

type Rule struct {
	ID           int64  `json:"id"`
	RegexPattern string `json:"regexPattern"`
	OutputFormat string `json:"outputFormat"`
	Priority     int    `json:"priority"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

type ManualAbbreviation struct {
	OrderNumber  string `json:"orderNumber"`
	Abbreviation string `json:"abbreviation"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

type OrderReplacement struct {
	OriginalOrderNumber    string `json:"originalOrderNumber"`
	ReplacementOrderNumber string `json:"replacementOrderNumber"`
	CreatedAt              string `json:"createdAt,omitempty"`
	UpdatedAt              string `json:"updatedAt,omitempty"`
}

type Exclusion struct {
	OrderNumber string `json:"orderNumber"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// InputRow is one data row of the uploaded sheet. All values are trimmed cell text.
type InputRow struct {
	RowNumber  int
	Anlage     string
	Funktion   string
	Ort        string
	BMK        string
	Hersteller string
	BestellNr  string
	Teilemenge string
}

type OutputRecord struct {
	Etiket string `json:"Etiket"`
	Kod    string `json:"Kod"`
	Adet   int    `json:"Adet"`
	Ort    string `json:"Ort"`
}

type InvalidRowReport struct {
	RowNumber     int    `json:"rowNumber"`
	Anlage        string `json:"Anlage"`
	Funktion      string `json:"Funktion"`
	Ort           string `json:"Ort"`
	BMK           string `json:"BMK"`
	Hersteller    string `json:"Hersteller"`
	BestellNr     string `json:"Bestell_Nr_"`
	Teilemenge    string `json:"Teilemenge"`
	MissingFields string `json:"missingFields"`
}

type CodeCheckResult struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error,omitempty"`
	CredentialsError bool     `json:"credentialsError,omitempty"`
	MissingCodes     []string `json:"missingCodes"`
	UnapprovedCodes  []string `json:"unapprovedCodes"`
	TotalChecked     int      `json:"totalChecked"`
	ExistingCount    int      `json:"existingCount"`
	MissingCount     int      `json:"missingCount"`
	UnapprovedCount  int      `json:"unapprovedCount"`
}

type RunRow struct {
	ID        int64
	TraceID   string
	Timings   map[string]float64
	Counts    map[string]int
	CreatedAt string
}
