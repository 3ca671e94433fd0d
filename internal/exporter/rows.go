package exporter

import (
	"strconv"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// RecordHeaders use column names the loader accepts, so an exported
// records.csv can be ingested again.
var RecordHeaders = []string{
	"fluxo", "ano", "mes", "ncm", "produto", "pais", "uf", "valor_fob_usd", "peso_liquido_kg",
}

// GroupHeaders label the columns of GroupRows
var GroupHeaders = []string{
	"posicao", "chave", "descricao", "valor_fob_usd", "peso_liquido_kg",
	"preco_medio_usd_kg", "participacao_pct", "registros",
}

// RecordRow converts one record into a CSV row
func RecordRow(r trade.Record) []string {
	return []string{
		string(r.Flow),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		r.NCM,
		r.Product,
		r.Country,
		r.UF,
		formatFloat(r.FOB),
		formatFloat(r.NetWeight),
	}
}

// WriteRecords streams every row of t
func WriteRecords(sw *StreamWriter, t *trade.Table) error {
	v := t.View()
	for i := 0; i < v.Len(); i++ {
		if err := sw.WriteRecord(RecordRow(v.Record(i))); err != nil {
			return err
		}
	}
	return nil
}

// GroupRows converts ranked groups into CSV rows, numbering them from 1
func GroupRows(groups []analytics.Group) [][]string {
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{
			formatInt(i + 1),
			g.Key,
			g.Label,
			formatFloat(g.FOB),
			formatFloat(g.NetWeight),
			formatOptional(g.AvgPrice),
			formatFloat(g.Share),
			formatInt(g.Records),
		}
	}
	return rows
}

// YoYHeaders returns the comparison headers for a pair of years
func YoYHeaders(base, compare int) []string {
	b, c := strconv.Itoa(base), strconv.Itoa(compare)
	return []string{
		"chave", "descricao",
		"fob_usd_" + b, "fob_usd_" + c, "var_fob_pct",
		"peso_kg_" + b, "peso_kg_" + c, "var_peso_pct",
		"preco_medio_" + b, "preco_medio_" + c, "var_preco_pct",
	}
}

// YoYRows converts a comparison into CSV rows followed by the totals row
func YoYRows(res analytics.YoYResult) [][]string {
	rows := make([][]string, 0, len(res.Rows)+1)
	for _, r := range append(append([]analytics.YoYRow(nil), res.Rows...), res.Total) {
		rows = append(rows, []string{
			r.Key, r.Label,
			formatFloat(r.BaseFOB), formatFloat(r.CompareFOB), formatOptional(r.FOBChange),
			formatFloat(r.BaseWeight), formatFloat(r.CompareWeight), formatOptional(r.WeightChange),
			formatOptional(r.BasePrice), formatOptional(r.ComparePrice), formatOptional(r.PriceChange),
		})
	}
	return rows
}
