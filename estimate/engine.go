package estimate

import (
	"fmt"
	"strconv"
	"strings"
)

// RecalculateRow recomputes the derived fields of the item at position i.
// Header, section and totals rows are left untouched.
func RecalculateRow(doc *Document, i int) {
	if !doc.isDataRow(i) || doc.Rows[i].Kind != RowItem {
		return
	}
	r := &doc.Rows[i]
	r.Cost = CalcCost(r.Quantity, r.UnitPrice)
	r.ClientUnitPrice = CalcClientUnitPrice(r.UnitPrice, r.MarkupPct, r.DiscountPct)
	r.ClientCost = CalcClientCost(r.Quantity, r.ClientUnitPrice)
}

// RecalculateAll recomputes every item and then the totals row. A data row
// counts towards the totals when it has a name; section rows contribute
// nothing because their numeric fields are blank.
func RecalculateAll(doc *Document) {
	if len(doc.Rows) < 2 {
		return
	}
	var cost, clientCost float64
	for i := 1; i < doc.TotalIndex(); i++ {
		RecalculateRow(doc, i)
		r := doc.Rows[i]
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		cost += r.Cost
		clientCost += r.ClientCost
	}
	doc.Rows[doc.TotalIndex()] = Row{
		Kind:       RowTotal,
		Name:       TotalLabel,
		Cost:       cost,
		ClientCost: clientCost,
	}
}

// Renumber assigns hierarchical indices: "N." for the N-th section and
// "N.M" for the M-th item inside it. Items before the first section are
// numbered "M".
func Renumber(doc *Document) {
	section, item := 0, 0
	for i := 1; i < doc.TotalIndex(); i++ {
		r := &doc.Rows[i]
		switch r.Kind {
		case RowSection:
			section++
			item = 0
			r.Index = strconv.Itoa(section) + "."
		case RowItem:
			item++
			if section == 0 {
				r.Index = strconv.Itoa(item)
			} else {
				r.Index = strconv.Itoa(section) + "." + strconv.Itoa(item)
			}
		}
	}
	if len(doc.Rows) > 0 {
		doc.Rows[0].Index = ""
		doc.Rows[doc.TotalIndex()].Index = ""
	}
}

// Refresh runs Renumber followed by RecalculateAll.
func Refresh(doc *Document) {
	Renumber(doc)
	RecalculateAll(doc)
}

// ItemInit carries the optional starting values of a new item. Nil fields
// default to zero, an empty unit to DefaultUnit.
type ItemInit struct {
	Name        string
	Unit        string
	Quantity    *float64
	UnitPrice   *float64
	MarkupPct   *float64
	DiscountPct *float64
}

// DefaultUnit is used for new items that do not specify one.
const DefaultUnit = "раб"

// insertPosition clamps the slot after row `after` to lie between the header
// and the totals row. A negative value appends before the totals row.
func (d *Document) insertPosition(after int) int {
	total := d.TotalIndex()
	if after < 0 || after >= total {
		return total
	}
	return after + 1
}

func (d *Document) insert(pos int, r Row) {
	d.Rows = append(d.Rows, Row{})
	copy(d.Rows[pos+1:], d.Rows[pos:])
	d.Rows[pos] = r
}

// InsertRow inserts a new item after position `after` and returns its
// position.
func InsertRow(doc *Document, after int, init ItemInit) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	r := Row{Kind: RowItem, Name: init.Name, Unit: init.Unit}
	if r.Unit == "" {
		r.Unit = DefaultUnit
	}
	if init.Quantity != nil {
		r.Quantity = *init.Quantity
	}
	if init.UnitPrice != nil {
		r.UnitPrice = *init.UnitPrice
	}
	if init.MarkupPct != nil {
		r.MarkupPct = *init.MarkupPct
	}
	if init.DiscountPct != nil {
		r.DiscountPct = *init.DiscountPct
	}
	pos := doc.insertPosition(after)
	doc.insert(pos, r)
	Refresh(doc)
	return pos, nil
}

// InsertSection inserts a section header after position `after` and returns
// its position. Titles are stored upper-case, as the templates print them.
func InsertSection(doc *Document, after int, title string) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Новый раздел"
	}
	pos := doc.insertPosition(after)
	doc.insert(pos, Row{Kind: RowSection, Name: strings.ToUpper(title)})
	Refresh(doc)
	return pos, nil
}

// DeleteRow removes the section or item at position i.
func DeleteRow(doc *Document, i int) error {
	if i < 0 || i >= len(doc.Rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}
	if !doc.isDataRow(i) {
		return ErrProtectedRow
	}
	doc.Rows = append(doc.Rows[:i], doc.Rows[i+1:]...)
	Refresh(doc)
	return nil
}

// ApplyEdit stores user input into one cell and brings the document back to
// a consistent state. Numeric input is coerced with ParseNumber.
func ApplyEdit(doc *Document, i int, col Column, raw any) error {
	if i < 0 || i >= len(doc.Rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}
	if !doc.isDataRow(i) {
		return ErrProtectedRow
	}
	if !col.Editable() {
		return fmt.Errorf("%w: %s", ErrReadOnlyColumn, col.Letter())
	}
	r := &doc.Rows[i]
	if r.Kind == RowSection {
		if col != ColName {
			return fmt.Errorf("%w: section rows only carry a title", ErrReadOnlyColumn)
		}
		r.Name = strings.ToUpper(strings.TrimSpace(fmt.Sprint(valueOrEmpty(raw))))
		Refresh(doc)
		return nil
	}

	switch col {
	case ColName:
		r.Name = strings.TrimSpace(fmt.Sprint(valueOrEmpty(raw)))
	case ColUnit:
		r.Unit = strings.TrimSpace(fmt.Sprint(valueOrEmpty(raw)))
	case ColQuantity:
		r.Quantity = ParseNumber(raw)
	case ColUnitPrice:
		r.UnitPrice = ParseNumber(raw)
	case ColMarkup:
		r.MarkupPct = ParseNumber(raw)
	case ColDiscount:
		r.DiscountPct = ParseNumber(raw)
	}
	r.Example = false
	RecalculateRow(doc, i)
	RecalculateAll(doc)
	return nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
