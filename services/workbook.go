package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"estimatetracker/estimate"
)

// tagColumn is the hidden column that persists each row's kind.
const tagColumn = "K"

// Row tags written to tagColumn.
const (
	tagSection = "section"
	tagItem    = "item"
	tagExample = "example"
	tagTotal   = "total"
)

// layoutKeywordPrefix prefixes the layout version in the workbook keywords.
const layoutKeywordPrefix = "estimate-layout:v"

// columnWidths are the sheet widths of columns A–J in Excel units.
var columnWidths = [estimate.ColumnCount]float64{5, 40, 10, 10, 15, 15, 12, 12, 15, 15}

const numberFormat = "#,##0.00_-"

// workbookStyles holds the style IDs registered on one file.
type workbookStyles struct {
	title   int
	label   int
	info    int
	header  int
	section int
	item    int
	example int
	number  int
	exNum   int
	total   int
	totNum  int
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	numFmt := numberFormat
	defs := []struct {
		dst   *int
		style *excelize.Style
		name  string
	}{
		{&s.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}, "title"},
		{&s.label, &excelize.Style{Font: &excelize.Font{Bold: true}}, "label"},
		{&s.info, &excelize.Style{Font: &excelize.Font{Italic: true}}, "info"},
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    headerBorders(),
		}, "header"},
		{&s.section, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F5F5F5"}, Pattern: 1},
			Border: thinBorders(),
		}, "section"},
		{&s.item, &excelize.Style{Border: thinBorders()}, "item"},
		{&s.example, &excelize.Style{
			Font:   &excelize.Font{Italic: true, Color: "#808080"},
			Border: thinBorders(),
		}, "example"},
		{&s.number, &excelize.Style{Border: thinBorders(), CustomNumFmt: &numFmt}, "number"},
		{&s.exNum, &excelize.Style{
			Font:         &excelize.Font{Italic: true, Color: "#808080"},
			Border:       thinBorders(),
			CustomNumFmt: &numFmt,
		}, "example number"},
		{&s.total, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F0F0F0"}, Pattern: 1},
			Border: thinBorders(),
		}, "total"},
		{&s.totNum, &excelize.Style{
			Font:         &excelize.Font{Bold: true},
			Fill:         excelize.Fill{Type: "pattern", Color: []string{"#F0F0F0"}, Pattern: 1},
			Border:       thinBorders(),
			CustomNumFmt: &numFmt,
		}, "total number"},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return s, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*d.dst = id
	}
	return s, nil
}

// EncodeWorkbook renders a document as an .xlsx file. Derived cells and the
// totals are written as formulas so the file stays live when opened in a
// spreadsheet program.
func EncodeWorkbook(doc *estimate.Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	layout := doc.Layout
	if layout.Version == 0 {
		layout = estimate.LayoutCurrent
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(doc)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	for i, w := range columnWidths {
		col := estimate.ColumnLetters[i]
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}
	if err := f.SetColVisible(sheet, tagColumn, false); err != nil {
		return nil, fmt.Errorf("hide tag column: %w", err)
	}

	st, err := newWorkbookStyles(f)
	if err != nil {
		return nil, err
	}

	// ── Info block (rows 1-4) ───────────────────────────────────────────
	if err := f.MergeCell(sheet, "A1", "J1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(doc.Title))
	f.SetCellStyle(sheet, "A1", "J1", st.title)
	info := []struct{ label, value string }{
		{"Объект:", doc.Object},
		{"Заказчик:", doc.Client},
		{"Дата составления:", doc.Date},
	}
	for i, line := range info {
		r := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+r, line.label)
		f.SetCellValue(sheet, "B"+r, sanitizeExcelCell(line.value))
		f.SetCellStyle(sheet, "A"+r, "A"+r, st.label)
		f.SetCellStyle(sheet, "B"+r, "B"+r, st.info)
	}

	// ── Captions ────────────────────────────────────────────────────────
	hr := strconv.Itoa(layout.HeaderRow)
	for i, caption := range estimate.Captions(doc.NameCaption) {
		f.SetCellValue(sheet, estimate.ColumnLetters[i]+hr, caption)
	}
	f.SetCellStyle(sheet, "A"+hr, "J"+hr, st.header)
	if err := f.SetRowHeight(sheet, layout.HeaderRow, 30); err != nil {
		return nil, fmt.Errorf("set header height: %w", err)
	}

	// ── Data rows ───────────────────────────────────────────────────────
	first := layout.DataStartRow
	last := first - 1
	for pos := 1; pos < doc.TotalIndex(); pos++ {
		row := layout.SheetRow(pos)
		if err := writeDataRow(f, sheet, row, doc.Rows[pos], st); err != nil {
			return nil, err
		}
		last = row
	}

	// ── Totals ──────────────────────────────────────────────────────────
	tr := last + 1
	t := strconv.Itoa(tr)
	f.SetCellValue(sheet, "B"+t, estimate.TotalLabel)
	if err := f.SetCellFormula(sheet, "F"+t, estimate.SumFormula(estimate.ColCost, first, last)); err != nil {
		return nil, fmt.Errorf("set total formula: %w", err)
	}
	if err := f.SetCellFormula(sheet, "J"+t, estimate.SumFormula(estimate.ColClientCost, first, last)); err != nil {
		return nil, fmt.Errorf("set total formula: %w", err)
	}
	f.SetCellValue(sheet, tagColumn+t, tagTotal)
	f.SetCellStyle(sheet, "A"+t, "J"+t, st.total)
	f.SetCellStyle(sheet, "F"+t, "F"+t, st.totNum)
	f.SetCellStyle(sheet, "J"+t, "J"+t, st.totNum)

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    doc.Title,
		Subject:  string(doc.Type),
		Keywords: layoutKeywordPrefix + strconv.Itoa(layout.Version),
		Creator:  "estimatetracker",
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDataRow(f *excelize.File, sheet string, row int, r estimate.Row, st workbookStyles) error {
	n := strconv.Itoa(row)
	f.SetCellValue(sheet, "A"+n, r.Index)
	f.SetCellValue(sheet, "B"+n, sanitizeExcelCell(r.Name))

	if r.Kind == estimate.RowSection {
		f.SetCellValue(sheet, tagColumn+n, tagSection)
		f.SetCellStyle(sheet, "A"+n, "J"+n, st.section)
		return nil
	}

	f.SetCellValue(sheet, "C"+n, sanitizeExcelCell(r.Unit))
	f.SetCellValue(sheet, "D"+n, r.Quantity)
	f.SetCellValue(sheet, "E"+n, r.UnitPrice)
	f.SetCellValue(sheet, "G"+n, r.MarkupPct)
	f.SetCellValue(sheet, "H"+n, r.DiscountPct)
	// Unnamed items stay out of the totals, so their derived cells are left
	// empty for the column SUMs to skip. The next save re-applies formulas.
	if strings.TrimSpace(r.Name) != "" {
		formulas := []struct{ col, formula string }{
			{"F", estimate.CostFormula(row)},
			{"I", estimate.ClientUnitPriceFormula(row)},
			{"J", estimate.ClientCostFormula(row)},
		}
		for _, fm := range formulas {
			if err := f.SetCellFormula(sheet, fm.col+n, fm.formula); err != nil {
				return fmt.Errorf("set formula %s%s: %w", fm.col, n, err)
			}
		}
	}

	tag, text, num := tagItem, st.item, st.number
	if r.Example {
		tag, text, num = tagExample, st.example, st.exNum
	}
	f.SetCellValue(sheet, tagColumn+n, tag)
	f.SetCellStyle(sheet, "A"+n, "C"+n, text)
	f.SetCellStyle(sheet, "D"+n, "J"+n, num)
	return nil
}

// sheetName returns the worksheet title, cut to Excel's 31-character limit.
func sheetName(doc *estimate.Document) string {
	name := strings.TrimSpace(doc.SheetTitle)
	if name == "" {
		name = "Смета"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

// WorkbookStructure describes the table to browser grids.
type WorkbookStructure struct {
	ColumnCount     int       `json:"columnCount"`
	ReadOnlyColumns []int     `json:"readOnlyColumns"`
	HasHeaders      bool      `json:"hasHeaders"`
	ColumnWidths    []float64 `json:"columnWidths"`
}

// excelUnitToPixels approximates the on-screen width of one Excel width unit.
const excelUnitToPixels = 7.5

// StructureFor returns the grid structure shared by all estimate types.
func StructureFor(estimate.Type) WorkbookStructure {
	widths := make([]float64, estimate.ColumnCount)
	for i, w := range columnWidths {
		widths[i] = w * excelUnitToPixels
	}
	return WorkbookStructure{
		ColumnCount:     estimate.ColumnCount,
		ReadOnlyColumns: estimate.ReadOnlyColumns(),
		HasHeaders:      true,
		ColumnWidths:    widths,
	}
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// unsanitizeExcelCell strips the quote added by sanitizeExcelCell.
func unsanitizeExcelCell(s string) string {
	if len(s) > 1 && s[0] == '\'' {
		switch s[1] {
		case '=', '+', '-', '@', '\t', '\r', '|':
			return s[1:]
		}
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#CCCCCC",
			Style: 1, // thin
		}
	}
	return borders
}

// headerBorders is thinBorders with a medium black bottom edge.
func headerBorders() []excelize.Border {
	borders := thinBorders()
	for i := range borders {
		if borders[i].Type == "bottom" {
			borders[i].Color = "#000000"
			borders[i].Style = 2 // medium
		}
	}
	return borders
}
