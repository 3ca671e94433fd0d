package trade

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical column names used by Table and every loader
const (
	ColFlow      = "flow"
	ColYear      = "year"
	ColMonth     = "month"
	ColNCM       = "ncm"
	ColProduct   = "product"
	ColCountry   = "country"
	ColUF        = "uf"
	ColFOB       = "fob_usd"
	ColNetWeight = "net_weight_kg"
)

// Columns is the canonical column order
var Columns = []string{ColFlow, ColYear, ColMonth, ColNCM, ColProduct, ColCountry, ColUF, ColFOB, ColNetWeight}

// RequiredColumns must be present in any input file
var RequiredColumns = []string{ColYear, ColMonth, ColNCM, ColFOB, ColNetWeight}

// columnAliases maps cleaned header names to canonical columns. It covers the
// raw ComexStat layout (CO_ANO, VL_FOB, ...), the joined layout with names
// (NO_NCM_POR, NO_PAIS) and the Portuguese names used in curated extracts.
var columnAliases = map[string]string{
	"flow":    ColFlow,
	"fluxo":   ColFlow,
	"tipo":    ColFlow,
	"sentido": ColFlow,

	"year":   ColYear,
	"ano":    ColYear,
	"co_ano": ColYear,

	"month":  ColMonth,
	"mes":    ColMonth,
	"co_mes": ColMonth,

	"ncm":        ColNCM,
	"co_ncm":     ColNCM,
	"codigo_ncm": ColNCM,
	"cod_ncm":    ColNCM,

	"product":       ColProduct,
	"produto":       ColProduct,
	"no_ncm_por":    ColProduct,
	"descricao_ncm": ColProduct,
	"descricao":     ColProduct,
	"ncm_descricao": ColProduct,

	"country":      ColCountry,
	"pais":         ColCountry,
	"no_pais":      ColCountry,
	"pais_destino": ColCountry,
	"pais_origem":  ColCountry,

	"uf":        ColUF,
	"sg_uf":     ColUF,
	"sg_uf_ncm": ColUF,
	"estado":    ColUF,
	"state":     ColUF,

	"fob_usd":       ColFOB,
	"fob":           ColFOB,
	"vl_fob":        ColFOB,
	"valor_fob":     ColFOB,
	"valor_fob_us":  ColFOB,
	"valor_fob_usd": ColFOB,
	"value_usd":     ColFOB,

	"net_weight_kg":   ColNetWeight,
	"net_weight":      ColNetWeight,
	"kg_liquido":      ColNetWeight,
	"peso_liquido":    ColNetWeight,
	"peso_liquido_kg": ColNetWeight,
	"peso_kg":         ColNetWeight,
	"kg":              ColNetWeight,
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// CleanColumnName normalizes a header cell: BOM and surrounding space are
// removed, diacritics are dropped, letters are lower-cased and every run of
// other characters becomes a single underscore.
//
//	"CO_ANO"              -> "co_ano"
//	"Valor FOB (US$)"     -> "valor_fob_us"
//	"País de Destino"     -> "pais_de_destino"
func CleanColumnName(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.TrimSpace(s)

	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	pendingSep := false
	for _, ch := range s {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(ch)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// CanonicalColumn cleans raw and maps it to a canonical column name.
// The second result is false for columns the dashboard does not use.
func CanonicalColumn(raw string) (string, bool) {
	col, ok := columnAliases[CleanColumnName(raw)]
	return col, ok
}

// MapHeader resolves a header row to canonical column positions. When two
// headers map to the same column the first one wins.
func MapHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		col, ok := CanonicalColumn(h)
		if !ok {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	return idx
}

// MissingColumns returns the required columns absent from a mapped header
func MissingColumns(idx map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
