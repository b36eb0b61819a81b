// Package estimate holds the estimate document model together with the
// formula/totals engine and the template builder. Every code path that
// creates, edits, saves or exports an estimate goes through this package.
package estimate

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies which template an estimate was generated from.
type Type string

const (
	TypeMain       Type = "main"
	TypeAdditional Type = "additional"
	TypeMaterials  Type = "materials"
)

// Types lists the supported estimate types in display order.
var Types = []Type{TypeMain, TypeAdditional, TypeMaterials}

// ParseType maps a stored or submitted value to a Type. Unknown values fall
// back to TypeMain.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeAdditional:
		return TypeAdditional
	case TypeMaterials:
		return TypeMaterials
	default:
		return TypeMain
	}
}

// Label returns the Russian display name of the type.
func (t Type) Label() string {
	switch t {
	case TypeAdditional:
		return "Дополнительная смета"
	case TypeMaterials:
		return "Смета на материалы"
	default:
		return "Основная смета"
	}
}

// FileName returns the download name of a workbook of this type.
func (t Type) FileName(id string) string {
	switch t {
	case TypeMain:
		return "Работы_Смета_производства_работ_2025.xlsx"
	case TypeAdditional:
		return "Дополнительная_смета_" + id + ".xlsx"
	case TypeMaterials:
		return "Материалы_Черновые_материалы_2025.xlsx"
	}
	return "Смета_" + id + ".xlsx"
}

// RowKind tags a row. The tag is persisted with the workbook so that row
// types never have to be guessed from cell contents.
type RowKind int

const (
	RowHeader RowKind = iota
	RowSection
	RowItem
	RowTotal
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowSection:
		return "section"
	case RowItem:
		return "item"
	case RowTotal:
		return "total"
	}
	return fmt.Sprintf("RowKind(%d)", int(k))
}

// Column is a zero-based position in the fixed 10-column schema.
type Column int

const (
	ColIndex Column = iota
	ColName
	ColUnit
	ColQuantity
	ColUnitPrice
	ColCost
	ColMarkup
	ColDiscount
	ColClientUnitPrice
	ColClientCost
)

// ColumnCount is the width of the estimate table.
const ColumnCount = 10

// ColumnLetters are the sheet columns A–J in schema order.
var ColumnLetters = [ColumnCount]string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

// Letter returns the sheet column letter for c.
func (c Column) Letter() string {
	if c < 0 || int(c) >= ColumnCount {
		return ""
	}
	return ColumnLetters[c]
}

// Derived reports whether the column is computed by the engine.
func (c Column) Derived() bool {
	return c == ColCost || c == ColClientUnitPrice || c == ColClientCost
}

// Editable reports whether a user may type into the column.
func (c Column) Editable() bool {
	return c > ColIndex && int(c) < ColumnCount && !c.Derived()
}

// ReadOnlyColumns lists the derived column positions, zero-based, as expected
// by browser grids.
func ReadOnlyColumns() []int {
	return []int{int(ColCost), int(ColClientUnitPrice), int(ColClientCost)}
}

// Captions returns the row-5 captions. nameCaption replaces the second column.
func Captions(nameCaption string) [ColumnCount]string {
	return [ColumnCount]string{
		"№",
		nameCaption,
		"Ед. изм.",
		"Кол-во",
		"Цена, руб.",
		"Стоимость, руб.",
		"Наценка, %",
		"Скидка, %",
		"Цена для заказчика",
		"Стоимость для заказчика",
	}
}

// TotalLabel is written to the name column of the totals row.
const TotalLabel = "ИТОГО:"

// Row is one table row. Numeric fields are only meaningful for items; the
// totals row uses Cost and ClientCost.
type Row struct {
	Kind            RowKind
	Index           string
	Name            string
	Unit            string
	Quantity        float64
	UnitPrice       float64
	Cost            float64
	MarkupPct       float64
	DiscountPct     float64
	ClientUnitPrice float64
	ClientCost      float64

	// Example marks generated placeholder items that the user has not
	// touched yet.
	Example bool
}

// Layout fixes where the table sits on the sheet.
type Layout struct {
	Version      int
	HeaderRow    int
	DataStartRow int
}

var (
	// LayoutLegacy is the first template generation: data right below the
	// captions.
	LayoutLegacy = Layout{Version: 1, HeaderRow: 5, DataStartRow: 6}
	// LayoutCurrent leaves row 6 blank and starts data on row 7.
	LayoutCurrent = Layout{Version: 2, HeaderRow: 5, DataStartRow: 7}
)

// LayoutByVersion returns the layout for a stored version number.
func LayoutByVersion(v int) (Layout, bool) {
	switch v {
	case LayoutLegacy.Version:
		return LayoutLegacy, true
	case LayoutCurrent.Version:
		return LayoutCurrent, true
	}
	return Layout{}, false
}

// SheetRow converts a document row position (0 = header) to a 1-based sheet
// row number.
func (l Layout) SheetRow(pos int) int {
	if pos <= 0 {
		return l.HeaderRow
	}
	return l.DataStartRow + pos - 1
}

// Document is one estimate workbook held in memory.
type Document struct {
	Type        Type
	Title       string
	SheetTitle  string
	NameCaption string
	Object      string
	Client      string
	Date        string
	Layout      Layout
	Rows        []Row
}

var (
	ErrRowOutOfRange  = errors.New("estimate: row out of range")
	ErrProtectedRow   = errors.New("estimate: header and totals rows cannot be changed")
	ErrReadOnlyColumn = errors.New("estimate: column is computed and cannot be edited")
	ErrInvalidLayout  = errors.New("estimate: document must start with a header row and end with a totals row")
)

// NewDocument returns an empty document (header + totals) for the given type.
func NewDocument(t Type) *Document {
	doc := &Document{
		Type:   t,
		Layout: LayoutCurrent,
		Rows:   []Row{{Kind: RowHeader}, {Kind: RowTotal, Name: TotalLabel}},
	}
	switch t {
	case TypeMaterials:
		doc.Title = "СМЕТА НА МАТЕРИАЛЫ"
		doc.SheetTitle = "Материалы"
		doc.NameCaption = "Наименование материала"
	case TypeAdditional:
		doc.Title = "ДОПОЛНИТЕЛЬНАЯ СМЕТА"
		doc.SheetTitle = "Дополнительные работы"
		doc.NameCaption = "Наименование работ"
	default:
		doc.Type = TypeMain
		doc.Title = "СМЕТА НА ПРОВЕДЕНИЕ РАБОТ"
		doc.SheetTitle = "Работы"
		doc.NameCaption = "Наименование работ"
	}
	return doc
}

// TotalIndex is the position of the totals row, always the last row.
func (d *Document) TotalIndex() int {
	return len(d.Rows) - 1
}

// Totals returns the totals row.
func (d *Document) Totals() Row {
	if len(d.Rows) == 0 {
		return Row{Kind: RowTotal}
	}
	return d.Rows[d.TotalIndex()]
}

// DataRows returns the section and item rows between header and totals.
func (d *Document) DataRows() []Row {
	if len(d.Rows) < 2 {
		return nil
	}
	return d.Rows[1:d.TotalIndex()]
}

// Items returns copies of the item rows in order.
func (d *Document) Items() []Row {
	var items []Row
	for _, r := range d.DataRows() {
		if r.Kind == RowItem {
			items = append(items, r)
		}
	}
	return items
}

// Validate checks the header/totals invariants.
func (d *Document) Validate() error {
	if len(d.Rows) < 2 {
		return ErrInvalidLayout
	}
	if d.Rows[0].Kind != RowHeader || d.Rows[d.TotalIndex()].Kind != RowTotal {
		return ErrInvalidLayout
	}
	for i, r := range d.DataRows() {
		if r.Kind != RowSection && r.Kind != RowItem {
			return fmt.Errorf("%w: row %d is %s", ErrInvalidLayout, i+1, r.Kind)
		}
	}
	return nil
}

// isDataRow reports whether position i holds a section or item.
func (d *Document) isDataRow(i int) bool {
	return i > 0 && i < d.TotalIndex()
}
