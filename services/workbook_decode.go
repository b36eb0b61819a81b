package services

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"estimatetracker/estimate"
)

// ErrNotWorkbook is returned when bytes are not a readable spreadsheet.
var ErrNotWorkbook = errors.New("services: data is not an xlsx workbook")

var zipSignature = []byte("PK\x03\x04")

// IsXLSX reports whether data starts with the zip signature shared by all
// .xlsx files.
func IsXLSX(data []byte) bool {
	return bytes.HasPrefix(data, zipSignature)
}

// gridMeta carries what a decoder knows about a sheet besides its cells.
type gridMeta struct {
	Type      estimate.Type
	HasType   bool
	Layout    estimate.Layout
	HasLayout bool
	Sheet     string
}

// DecodeWorkbook parses an .xlsx file back into a document. Derived values
// are read as stored; callers bring the document back to a consistent state
// with estimate.Refresh.
func DecodeWorkbook(data []byte) (*estimate.Document, error) {
	if !IsXLSX(data) {
		return nil, ErrNotWorkbook
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: no worksheet found", ErrNotWorkbook)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}

	meta := gridMeta{Sheet: sheet}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		if v, ok := parseLayoutKeyword(props.Keywords); ok {
			if l, ok := estimate.LayoutByVersion(v); ok {
				meta.Layout, meta.HasLayout = l, true
			}
		}
		if s := strings.TrimSpace(props.Subject); s != "" {
			meta.Type, meta.HasType = estimate.ParseType(s), true
		}
	}
	return decodeGrid(rows, meta), nil
}

func parseLayoutKeyword(keywords string) (int, bool) {
	for _, kw := range strings.FieldsFunc(keywords, func(r rune) bool { return r == ',' || r == ';' || unicode.IsSpace(r) }) {
		if v, ok := strings.CutPrefix(kw, layoutKeywordPrefix); ok {
			n, err := strconv.Atoi(v)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// cellAt returns the trimmed cell of a ragged grid, "" when absent.
func cellAt(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) || c < 0 || c >= len(rows[r]) {
		return ""
	}
	return strings.TrimSpace(rows[r][c])
}

// detectLayout tells the two layouts apart for files that do not record
// their version: the current layout leaves the row under the captions empty.
func detectLayout(rows [][]string) estimate.Layout {
	r := estimate.LayoutCurrent.DataStartRow - 2 // zero-based row 6
	for c := 0; c < estimate.ColumnCount; c++ {
		if cellAt(rows, r, c) != "" {
			return estimate.LayoutLegacy
		}
	}
	return estimate.LayoutCurrent
}

// typeFromSheet guesses the estimate type from the worksheet title.
func typeFromSheet(sheet, caption string) estimate.Type {
	for _, t := range estimate.Types {
		if estimate.NewDocument(t).SheetTitle == sheet {
			return t
		}
	}
	if strings.Contains(strings.ToLower(caption), "материал") {
		return estimate.TypeMaterials
	}
	return estimate.TypeMain
}

var sectionIndexPattern = regexp.MustCompile(`^\d+\.$`)

// decodeGrid turns raw sheet cells (zero-based, row-major) into a document.
func decodeGrid(rows [][]string, meta gridMeta) *estimate.Document {
	layout := meta.Layout
	if !meta.HasLayout {
		layout = detectLayout(rows)
	}
	caption := cellAt(rows, layout.HeaderRow-1, int(estimate.ColName))
	t := meta.Type
	if !meta.HasType {
		t = typeFromSheet(meta.Sheet, caption)
	}

	doc := estimate.NewDocument(t)
	doc.Layout = layout
	if title := unsanitizeExcelCell(cellAt(rows, 0, 0)); title != "" {
		doc.Title = title
	}
	if meta.Sheet != "" {
		doc.SheetTitle = meta.Sheet
	}
	if caption != "" {
		doc.NameCaption = caption
	}
	doc.Object = unsanitizeExcelCell(cellAt(rows, 1, 1))
	doc.Client = unsanitizeExcelCell(cellAt(rows, 2, 1))
	doc.Date = cellAt(rows, 3, 1)

	tagCol := estimate.ColumnCount
	data := make([]estimate.Row, 0, len(rows))
	totals := estimate.Row{Kind: estimate.RowTotal, Name: estimate.TotalLabel}
	for r := layout.DataStartRow - 1; r < len(rows); r++ {
		cell := func(c estimate.Column) string { return cellAt(rows, r, int(c)) }
		tag := strings.ToLower(cellAt(rows, r, tagCol))

		if tag == tagTotal || (tag == "" && isTotalsMarker(cell(estimate.ColIndex), cell(estimate.ColName))) {
			totals.Cost = estimate.ParseNumber(cell(estimate.ColCost))
			totals.ClientCost = estimate.ParseNumber(cell(estimate.ColClientCost))
			break
		}

		blank := true
		for c := estimate.ColIndex; c <= estimate.ColClientCost; c++ {
			if !estimate.IsBlank(cell(c)) {
				blank = false
				break
			}
		}
		if blank && tag == "" {
			continue
		}

		row := estimate.Row{
			Index: cell(estimate.ColIndex),
			Name:  unsanitizeExcelCell(cell(estimate.ColName)),
		}
		switch tag {
		case tagSection:
			row.Kind = estimate.RowSection
		case tagItem, tagExample:
			row.Kind = estimate.RowItem
			row.Example = tag == tagExample
		default:
			row.Kind = guessKind(row.Index, row.Name, rows[r])
		}
		if row.Kind == estimate.RowItem {
			row.Unit = unsanitizeExcelCell(cell(estimate.ColUnit))
			row.Quantity = estimate.ParseNumber(cell(estimate.ColQuantity))
			row.UnitPrice = estimate.ParseNumber(cell(estimate.ColUnitPrice))
			row.Cost = estimate.ParseNumber(cell(estimate.ColCost))
			row.MarkupPct = estimate.ParseNumber(cell(estimate.ColMarkup))
			row.DiscountPct = estimate.ParseNumber(cell(estimate.ColDiscount))
			row.ClientUnitPrice = estimate.ParseNumber(cell(estimate.ColClientUnitPrice))
			row.ClientCost = estimate.ParseNumber(cell(estimate.ColClientCost))
		}
		data = append(data, row)
	}

	doc.Rows = make([]estimate.Row, 0, len(data)+2)
	doc.Rows = append(doc.Rows, estimate.Row{Kind: estimate.RowHeader})
	doc.Rows = append(doc.Rows, data...)
	doc.Rows = append(doc.Rows, totals)
	return doc
}

func isTotalsMarker(index, name string) bool {
	for _, s := range []string{index, name} {
		u := strings.ToUpper(s)
		if strings.Contains(u, "ИТОГО") || strings.Contains(u, "TOTAL") {
			return true
		}
	}
	return false
}

// guessKind classifies an untagged row. A row is a section when its index
// looks like "N.", when it has a name but no unit or numeric input, or when
// its name is an upper-case heading longer than three letters.
func guessKind(index, name string, cells []string) estimate.RowKind {
	if sectionIndexPattern.MatchString(index) {
		return estimate.RowSection
	}
	at := func(c estimate.Column) string {
		if int(c) < len(cells) {
			return strings.TrimSpace(cells[c])
		}
		return ""
	}
	inputs := at(estimate.ColUnit) + at(estimate.ColQuantity) + at(estimate.ColUnitPrice) +
		at(estimate.ColMarkup) + at(estimate.ColDiscount)
	if name != "" && inputs == "" {
		return estimate.RowSection
	}
	if isUpperHeading(name) {
		return estimate.RowSection
	}
	return estimate.RowItem
}

func isUpperHeading(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 3
}
