package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/format"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// excelize built-in number formats
const (
	numFmtThousands = 3 // #,##0
	numFmtDecimal   = 4 // #,##0.00
)

const maxSheetName = 31

// ReportMeta describes how a workbook's data was selected
type ReportMeta struct {
	Title       string
	Flow        trade.Flow
	Filter      string
	Source      string
	GeneratedAt time.Time
}

// Workbook builds an XLSX report sheet by sheet
type Workbook struct {
	f       *excelize.File
	started bool

	titleStyle, headerStyle, moneyStyle, intStyle int
}

// NewWorkbook creates an empty report
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	w := &Workbook{f: f}

	var err error
	if w.titleStyle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return nil, apierrors.NewExportError("create title style", err)
	}
	if w.headerStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}); err != nil {
		return nil, apierrors.NewExportError("create header style", err)
	}
	if w.moneyStyle, err = f.NewStyle(&excelize.Style{NumFmt: numFmtDecimal}); err != nil {
		return nil, apierrors.NewExportError("create number style", err)
	}
	if w.intStyle, err = f.NewStyle(&excelize.Style{NumFmt: numFmtThousands}); err != nil {
		return nil, apierrors.NewExportError("create integer style", err)
	}
	return w, nil
}

// Close releases the workbook
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Write serializes the workbook to out
func (w *Workbook) Write(out io.Writer) error {
	if err := w.f.Write(out); err != nil {
		return apierrors.NewExportError("write workbook", err)
	}
	return nil
}

// Sheets returns the sheet names in order
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// sheet creates a sheet, reusing the default one for the first call
func (w *Workbook) sheet(name string) (string, error) {
	name = sheetName(name)
	if !w.started {
		w.started = true
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return "", apierrors.NewExportError("rename sheet", err)
		}
		return name, nil
	}
	if idx, _ := w.f.GetSheetIndex(name); idx >= 0 {
		return "", apierrors.NewExportError(fmt.Sprintf("sheet %q already exists", name), nil)
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return "", apierrors.NewExportError("create sheet", err)
	}
	return name, nil
}

func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Dados"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// optional renders a nullable ratio as a number or "n/d"
func optional(v *float64) interface{} {
	if v == nil {
		return format.NotAvailable
	}
	return *v
}

// table writes a header row at row and the values below it, styling
// columns by the kinds given ('t' text, 'm' money, 'i' integer).
func (w *Workbook) table(sheet string, row int, headers []string, kinds string, values [][]interface{}) error {
	if err := w.f.SetSheetRow(sheet, cell(1, row), &headers); err != nil {
		return apierrors.NewExportError("write headers", err)
	}
	if err := w.f.SetCellStyle(sheet, cell(1, row), cell(len(headers), row), w.headerStyle); err != nil {
		return apierrors.NewExportError("style headers", err)
	}
	if err := w.f.SetRowHeight(sheet, row, 30); err != nil {
		return apierrors.NewExportError("set header height", err)
	}

	for i, v := range values {
		v := v
		if err := w.f.SetSheetRow(sheet, cell(1, row+1+i), &v); err != nil {
			return apierrors.NewExportError(fmt.Sprintf("write row %d", i+1), err)
		}
	}

	last := row + len(values)
	for c, kind := range kinds {
		col, _ := excelize.ColumnNumberToName(c + 1)
		width := 16.0
		var style int
		switch kind {
		case 'm':
			style = w.moneyStyle
		case 'i':
			style, width = w.intStyle, 10
		default:
			width = 14
		}
		if c == 1 && kind == 't' {
			width = 42
		}
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			return apierrors.NewExportError("set column width", err)
		}
		if style != 0 && len(values) > 0 {
			if err := w.f.SetCellStyle(sheet, cell(c+1, row+1), cell(c+1, last), style); err != nil {
				return apierrors.NewExportError("style column", err)
			}
		}
	}

	return w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      row,
		TopLeftCell: cell(1, row+1),
		ActivePane:  "bottomLeft",
	})
}

// AddSummary adds a sheet with the headline numbers and report metadata
func (w *Workbook) AddSummary(meta ReportMeta, s analytics.Summary) error {
	sheet, err := w.sheet("Resumo")
	if err != nil {
		return err
	}

	title := meta.Title
	if title == "" {
		title = "Balança Comercial de Santa Catarina"
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	period := format.NotAvailable
	if s.FirstPeriod != nil && s.LastPeriod != nil {
		period = fmt.Sprintf("%02d/%d a %02d/%d", s.FirstPeriod.Month, s.FirstPeriod.Year, s.LastPeriod.Month, s.LastPeriod.Year)
	}
	flow := "Exportações e importações"
	if meta.Flow != "" {
		flow = meta.Flow.Label()
	}

	rows := [][]interface{}{
		{"Fluxo", flow},
		{"Filtro", meta.Filter},
		{"Fonte", meta.Source},
		{"Período", period},
		{"Registros", s.Records, format.Number(float64(s.Records), 0)},
		{"Valor FOB (US$)", s.FOB, format.USD(s.FOB)},
		{"Peso líquido (kg)", s.NetWeight, format.Tonnes(s.NetWeight)},
		{"Preço médio (US$/kg)", optional(s.AvgPrice), format.PricePerKg(s.AvgPrice)},
		{"Produtos (NCM)", s.Products},
		{"Países", s.Countries},
		{"Gerado em", meta.GeneratedAt.Format("02/01/2006 15:04")},
	}

	if err := w.f.SetCellValue(sheet, "A1", title); err != nil {
		return apierrors.NewExportError("write title", err)
	}
	if err := w.f.SetCellStyle(sheet, "A1", "A1", w.titleStyle); err != nil {
		return apierrors.NewExportError("style title", err)
	}
	for i, r := range rows {
		r := r
		if err := w.f.SetSheetRow(sheet, cell(1, i+3), &r); err != nil {
			return apierrors.NewExportError("write summary", err)
		}
	}
	if err := w.f.SetCellStyle(sheet, "B8", "B10", w.moneyStyle); err != nil {
		return apierrors.NewExportError("style summary", err)
	}
	if err := w.f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return apierrors.NewExportError("set column width", err)
	}
	return w.f.SetColWidth(sheet, "B", "C", 28)
}

// AddTop adds a ranking sheet
func (w *Workbook) AddTop(name string, groups []analytics.Group) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}

	headers := []string{"Chave", "Descrição", "Valor FOB (US$)", "Peso líquido (kg)", "Preço médio (US$/kg)", "Participação (%)", "Registros"}
	values := make([][]interface{}, len(groups))
	for i, g := range groups {
		values[i] = []interface{}{g.Key, g.Label, g.FOB, g.NetWeight, optional(g.AvgPrice), g.Share, g.Records}
	}
	return w.table(sheet, 1, headers, "ttmmmmi", values)
}

// AddYoY adds the year-over-year comparison with its totals row last
func (w *Workbook) AddYoY(res analytics.YoYResult) error {
	sheet, err := w.sheet(fmt.Sprintf("Comparativo %d x %d", res.BaseYear, res.CompareYear))
	if err != nil {
		return err
	}

	b, c := res.BaseYear, res.CompareYear
	headers := []string{
		"Chave", "Descrição",
		fmt.Sprintf("FOB %d (US$)", b), fmt.Sprintf("FOB %d (US$)", c), "Var. FOB (%)",
		fmt.Sprintf("Peso %d (kg)", b), fmt.Sprintf("Peso %d (kg)", c), "Var. peso (%)",
		fmt.Sprintf("Preço %d (US$/kg)", b), fmt.Sprintf("Preço %d (US$/kg)", c), "Var. preço (%)",
	}

	all := append(append([]analytics.YoYRow(nil), res.Rows...), res.Total)
	values := make([][]interface{}, len(all))
	for i, r := range all {
		values[i] = []interface{}{
			r.Key, r.Label,
			r.BaseFOB, r.CompareFOB, optional(r.FOBChange),
			r.BaseWeight, r.CompareWeight, optional(r.WeightChange),
			optional(r.BasePrice), optional(r.ComparePrice), optional(r.PriceChange),
		}
	}

	if err := w.table(sheet, 1, headers, "ttmmmmmmmmm", values); err != nil {
		return err
	}

	totalRow := len(all) + 1
	return w.f.SetCellStyle(sheet, cell(1, totalRow), cell(2, totalRow), w.titleStyle)
}

// AddBalance adds the yearly export/import balance
func (w *Workbook) AddBalance(points []analytics.BalancePoint) error {
	sheet, err := w.sheet("Balança")
	if err != nil {
		return err
	}

	headers := []string{"Ano", "Exportações (US$)", "Importações (US$)", "Saldo (US$)", "Cobertura"}
	values := make([][]interface{}, len(points))
	for i, p := range points {
		values[i] = []interface{}{p.Year, p.ExportFOB, p.ImportFOB, p.Balance, optional(p.Coverage)}
	}
	return w.table(sheet, 1, headers, "tmmmm", values)
}
