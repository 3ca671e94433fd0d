package trade

import (
	"errors"
	"fmt"
	"strings"
)

// Flow is the trade direction of a record
type Flow string

const (
	FlowExport Flow = "export"
	FlowImport Flow = "import"
)

// Flows lists every valid flow in display order
var Flows = []Flow{FlowExport, FlowImport}

// ErrInvalidRecord is wrapped by every Record.Validate failure
var ErrInvalidRecord = errors.New("invalid trade record")

// ParseFlow accepts English and Portuguese spellings ("exportação", "IMP", ...)
func ParseFlow(s string) (Flow, error) {
	switch CleanColumnName(s) {
	case "export", "exports", "exp", "exportacao", "exportacoes", "x":
		return FlowExport, nil
	case "import", "imports", "imp", "importacao", "importacoes", "m":
		return FlowImport, nil
	}
	return "", fmt.Errorf("unknown trade flow %q", s)
}

// Valid reports whether f is one of the known flows
func (f Flow) Valid() bool {
	return f == FlowExport || f == FlowImport
}

// Label returns the Portuguese display name
func (f Flow) Label() string {
	switch f {
	case FlowExport:
		return "Exportações"
	case FlowImport:
		return "Importações"
	}
	return string(f)
}

// Record is one trade line item: the FOB value and net weight declared for an
// NCM product, partner country and state in a given month.
type Record struct {
	Flow      Flow    `json:"flow"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	NCM       string  `json:"ncm"`
	Product   string  `json:"product"`
	Country   string  `json:"country"`
	UF        string  `json:"uf"`
	FOB       float64 `json:"fob_usd"`
	NetWeight float64 `json:"net_weight_kg"`
}

// Normalize trims text fields, upper-cases the UF and pads the NCM code.
// An empty product name falls back to the NCM code.
func (r Record) Normalize() Record {
	r.NCM = NormalizeNCM(r.NCM)
	r.Product = strings.TrimSpace(r.Product)
	r.Country = strings.TrimSpace(r.Country)
	r.UF = strings.ToUpper(strings.TrimSpace(r.UF))
	if r.Product == "" && r.NCM != "" {
		r.Product = "NCM " + r.NCM
	}
	if r.Country == "" {
		r.Country = UnknownCountry
	}
	return r
}

// UnknownCountry labels rows without a declared partner country
const UnknownCountry = "Não declarado"

// Validate checks the record invariants
func (r Record) Validate() error {
	switch {
	case !r.Flow.Valid():
		return fmt.Errorf("%w: unknown flow %q", ErrInvalidRecord, r.Flow)
	case r.Year <= 0:
		return fmt.Errorf("%w: year %d", ErrInvalidRecord, r.Year)
	case r.Month < 1 || r.Month > 12:
		return fmt.Errorf("%w: month %d", ErrInvalidRecord, r.Month)
	case len(r.NCM) != 8:
		return fmt.Errorf("%w: ncm %q is not an 8-digit code", ErrInvalidRecord, r.NCM)
	case r.FOB < 0:
		return fmt.Errorf("%w: negative FOB value %v", ErrInvalidRecord, r.FOB)
	case r.NetWeight < 0:
		return fmt.Errorf("%w: negative net weight %v", ErrInvalidRecord, r.NetWeight)
	}
	return nil
}

// Chapter returns the HS chapter (first two NCM digits)
func (r Record) Chapter() string {
	return Chapter(r.NCM)
}

// Heading returns the HS heading (first four NCM digits)
func (r Record) Heading() string {
	return Heading(r.NCM)
}

// NormalizeNCM strips non-digits and left-pads the code to 8 digits.
// Codes longer than 8 digits are returned as-is so Validate rejects them.
func NormalizeNCM(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) < 8 {
		digits = strings.Repeat("0", 8-len(digits)) + digits
	}
	return digits
}

// Chapter returns the first two digits of an NCM code
func Chapter(ncm string) string {
	if len(ncm) < 2 {
		return ncm
	}
	return ncm[:2]
}

// Heading returns the first four digits of an NCM code
func Heading(ncm string) string {
	if len(ncm) < 4 {
		return ncm
	}
	return ncm[:4]
}
