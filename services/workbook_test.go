package services

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"estimatetracker/estimate"
)

func ptr(v float64) *float64 { return &v }

// sampleDoc builds two sections with items, one of them a placeholder.
func sampleDoc(t *testing.T) *estimate.Document {
	t.Helper()
	doc := estimate.NewDocument(estimate.TypeMain)
	doc.Object = "ул. Ленина, 1"
	doc.Client = "Иванов И.И."
	doc.Date = "07.03.2025"

	steps := []func() (int, error){
		func() (int, error) { return estimate.InsertSection(doc, -1, "Демонтаж") },
		func() (int, error) {
			return estimate.InsertRow(doc, -1, estimate.ItemInit{Name: "Демонтаж плитки", Unit: "м²", Quantity: ptr(12.5), UnitPrice: ptr(350), MarkupPct: ptr(15)})
		},
		func() (int, error) {
			return estimate.InsertRow(doc, -1, estimate.ItemInit{Name: "=cmd|' /C calc'!A0", Unit: "шт", Quantity: ptr(2), UnitPrice: ptr(100)})
		},
		func() (int, error) { return estimate.InsertSection(doc, -1, "Покраска") },
		func() (int, error) {
			return estimate.InsertRow(doc, -1, estimate.ItemInit{Name: "Покраска стен", Quantity: ptr(5), UnitPrice: ptr(100), MarkupPct: ptr(20), DiscountPct: ptr(10)})
		},
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("building sample: %v", err)
		}
	}
	doc.Rows[2].Example = true
	return doc
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestEncodeWorkbook_Layout(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatalf("EncodeWorkbook() error = %v", err)
	}
	f := openWorkbook(t, data)

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Работы" {
		t.Fatalf("sheets = %v", sheets)
	}
	sheet := sheets[0]

	cells := map[string]string{
		"A1": "СМЕТА НА ПРОВЕДЕНИЕ РАБОТ",
		"A2": "Объект:",
		"B2": "ул. Ленина, 1",
		"A3": "Заказчик:",
		"B3": "Иванов И.И.",
		"A4": "Дата составления:",
		"B4": "07.03.2025",
		"A5": "№",
		"B5": "Наименование работ",
		"J5": "Стоимость для заказчика",
		"A6": "",
		"A7": "1.",
		"B7": "ДЕМОНТАЖ",
		"K7": "section",
		"A8": "1.1",
		"K8": "example",
		"B9": "'=cmd|' /C calc'!A0",
		"K9": "item",
		"A10": "2.",
		"A11": "2.1",
		"B12": "ИТОГО:",
		"K12": "total",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}

	formulas := map[string]string{
		"F8":  "D8*E8",
		"I8":  "E8*(1+G8/100)*(1-H8/100)",
		"J8":  "D8*I8",
		"F12": "SUM(F7:F11)",
		"J12": "SUM(J7:J11)",
	}
	for cell, want := range formulas {
		got, err := f.GetCellFormula(sheet, cell)
		if err != nil {
			t.Fatalf("GetCellFormula(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("formula %s = %q, want %q", cell, got, want)
		}
	}

	visible, err := f.GetColVisible(sheet, tagColumn)
	if err != nil {
		t.Fatal(err)
	}
	if visible {
		t.Error("tag column should be hidden")
	}

	props, err := f.GetDocProps()
	if err != nil {
		t.Fatal(err)
	}
	if props.Keywords != "estimate-layout:v2" || props.Subject != "main" {
		t.Errorf("doc props = %+v", props)
	}
}

func TestEncodeWorkbook_FormulasAgreeWithEngine(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatalf("EncodeWorkbook() error = %v", err)
	}
	f := openWorkbook(t, data)
	sheet := f.GetSheetName(0)

	calc := func(cell string) float64 {
		t.Helper()
		v, err := f.CalcCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("CalcCellValue(%s) error = %v", cell, err)
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			t.Fatalf("CalcCellValue(%s) = %q, not a number", cell, v)
		}
		return n
	}
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

	for pos, r := range doc.Rows {
		if r.Kind != estimate.RowItem {
			continue
		}
		n := strconv.Itoa(doc.Layout.SheetRow(pos))
		if got := calc("F" + n); !near(got, r.Cost) {
			t.Errorf("F%s = %v, engine cost %v", n, got, r.Cost)
		}
		if got := calc("I" + n); !near(got, r.ClientUnitPrice) {
			t.Errorf("I%s = %v, engine client price %v", n, got, r.ClientUnitPrice)
		}
		if got := calc("J" + n); !near(got, r.ClientCost) {
			t.Errorf("J%s = %v, engine client cost %v", n, got, r.ClientCost)
		}
	}
	tn := strconv.Itoa(doc.Layout.SheetRow(doc.TotalIndex()))
	if got := calc("F" + tn); !near(got, doc.Totals().Cost) {
		t.Errorf("total cost = %v, engine %v", got, doc.Totals().Cost)
	}
	if got := calc("J" + tn); !near(got, doc.Totals().ClientCost) {
		t.Errorf("total client cost = %v, engine %v", got, doc.Totals().ClientCost)
	}
}

func TestEncodeWorkbook_UnnamedItemOutsideTotals(t *testing.T) {
	doc := estimate.NewDocument(estimate.TypeAdditional)
	if _, err := estimate.InsertRow(doc, -1, estimate.ItemInit{Name: "Грунтовка", Quantity: ptr(2), UnitPrice: ptr(50)}); err != nil {
		t.Fatal(err)
	}
	if _, err := estimate.InsertRow(doc, -1, estimate.ItemInit{Quantity: ptr(3), UnitPrice: ptr(1000)}); err != nil {
		t.Fatal(err)
	}
	data, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatalf("EncodeWorkbook() error = %v", err)
	}
	f := openWorkbook(t, data)
	sheet := f.GetSheetName(0)

	if formula, _ := f.GetCellFormula(sheet, "F8"); formula != "" {
		t.Errorf("unnamed item F8 formula = %q, want none", formula)
	}
	v, err := f.CalcCellValue(sheet, "F9", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("CalcCellValue(F9) error = %v", err)
	}
	if got, _ := strconv.ParseFloat(v, 64); got != doc.Totals().Cost || got != 100 {
		t.Errorf("total cost = %s, engine %v", v, doc.Totals().Cost)
	}
}

func TestEncodeWorkbook_EmptyEstimate(t *testing.T) {
	doc := estimate.NewDocument(estimate.TypeAdditional)
	data, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatalf("EncodeWorkbook() error = %v", err)
	}
	f := openWorkbook(t, data)
	sheet := f.GetSheetName(0)
	if sheet != "Дополнительные работы" {
		t.Errorf("sheet = %q", sheet)
	}
	label, _ := f.GetCellValue(sheet, "B7")
	if label != estimate.TotalLabel {
		t.Errorf("B7 = %q, want totals label", label)
	}
	formula, _ := f.GetCellFormula(sheet, "F7")
	if formula != "SUM(F6:F6)" {
		t.Errorf("F7 formula = %q", formula)
	}
}

func TestEncodeWorkbook_LegacyLayout(t *testing.T) {
	doc := estimate.NewDocument(estimate.TypeMaterials)
	doc.Layout = estimate.LayoutLegacy
	formula := func() string {
		data, err := EncodeWorkbook(doc)
		if err != nil {
			t.Fatalf("EncodeWorkbook() error = %v", err)
		}
		f := openWorkbook(t, data)
		v, _ := f.GetCellFormula(f.GetSheetName(0), "F6")
		return v
	}
	if got := formula(); got != "SUM(F5:F5)" {
		t.Errorf("empty legacy totals formula = %q, want SUM(F5:F5)", got)
	}
}

func TestEncodeWorkbook_RejectsInvalidDocument(t *testing.T) {
	doc := estimate.NewDocument(estimate.TypeMain)
	doc.Rows = doc.Rows[:1]
	if _, err := EncodeWorkbook(doc); !errors.Is(err, estimate.ErrInvalidLayout) {
		t.Errorf("err = %v, want ErrInvalidLayout", err)
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatalf("EncodeWorkbook() error = %v", err)
	}
	got, err := DecodeWorkbook(data)
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	estimate.Refresh(got)

	if got.Type != doc.Type || got.Layout != doc.Layout {
		t.Errorf("type/layout = %s/%+v, want %s/%+v", got.Type, got.Layout, doc.Type, doc.Layout)
	}
	if got.Title != doc.Title || got.Object != doc.Object || got.Client != doc.Client || got.Date != doc.Date {
		t.Errorf("info block = %q %q %q %q", got.Title, got.Object, got.Client, got.Date)
	}
	if len(got.Rows) != len(doc.Rows) {
		t.Fatalf("got %d rows, want %d", len(got.Rows), len(doc.Rows))
	}
	for i := range doc.Rows {
		w, g := doc.Rows[i], got.Rows[i]
		if g.Kind != w.Kind || g.Index != w.Index || g.Name != w.Name || g.Unit != w.Unit || g.Example != w.Example {
			t.Errorf("row %d = %+v, want %+v", i, g, w)
			continue
		}
		if g.Quantity != w.Quantity || g.UnitPrice != w.UnitPrice || g.MarkupPct != w.MarkupPct || g.DiscountPct != w.DiscountPct {
			t.Errorf("row %d inputs = %+v, want %+v", i, g, w)
		}
		if g.Cost != w.Cost || g.ClientUnitPrice != w.ClientUnitPrice || g.ClientCost != w.ClientCost {
			t.Errorf("row %d derived = %+v, want %+v", i, g, w)
		}
	}
}

func TestDecodeWorkbook_NotAWorkbook(t *testing.T) {
	inputs := map[string][]byte{
		"empty":       nil,
		"text":        []byte("hello, world"),
		"zip garbage": append([]byte("PK\x03\x04"), make([]byte, 200)...),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeWorkbook(data); !errors.Is(err, ErrNotWorkbook) {
				t.Errorf("err = %v, want ErrNotWorkbook", err)
			}
		})
	}
}

// untaggedWorkbook writes a sheet the way older templates did: no tag
// column and no layout keyword.
func untaggedWorkbook(t *testing.T, rows map[int][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "СМЕТА НА ПРОВЕДЕНИЕ РАБОТ")
	f.SetCellValue(sheet, "A2", "Объект:")
	f.SetCellValue(sheet, "B2", "Москва")
	for i, caption := range estimate.Captions("Наименование работ") {
		f.SetCellValue(sheet, estimate.ColumnLetters[i]+"5", caption)
	}
	for r, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeWorkbook_LegacyHeuristics(t *testing.T) {
	data := untaggedWorkbook(t, map[int][]any{
		6:  {"1.", "Демонтажные работы"},
		7:  {"1.1", "Демонтаж плитки", "м²", 10, 300, nil, 10, 0},
		8:  {"", "ЭЛЕКТРИКА"},
		9:  {"", "Установка розетки", "шт", 4, "250,5", nil, "", ""},
		10: {"", "Заметка без чисел"},
		11: {"", "ИТОГО:", "", "", "", 999},
	})

	doc, err := DecodeWorkbook(data)
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	if doc.Layout != estimate.LayoutLegacy {
		t.Errorf("layout = %+v, want legacy", doc.Layout)
	}
	if doc.Object != "Москва" {
		t.Errorf("object = %q", doc.Object)
	}
	estimate.Refresh(doc)

	want := []struct {
		kind  estimate.RowKind
		index string
	}{
		{estimate.RowSection, "1."},
		{estimate.RowItem, "1.1"},
		{estimate.RowSection, "2."},
		{estimate.RowItem, "2.1"},
		{estimate.RowSection, "3."},
	}
	rows := doc.DataRows()
	if len(rows) != len(want) {
		t.Fatalf("got %d data rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i, w := range want {
		if rows[i].Kind != w.kind || rows[i].Index != w.index {
			t.Errorf("row %d = %s %q, want %s %q", i+1, rows[i].Kind, rows[i].Index, w.kind, w.index)
		}
	}
	if rows[3].UnitPrice != 250.5 {
		t.Errorf("comma decimal price = %v", rows[3].UnitPrice)
	}
	if got := doc.Totals().Cost; math.Abs(got-(3000+1002)) > 1e-9 {
		t.Errorf("recalculated total = %v, want 4002", got)
	}
}

func TestDecodeWorkbook_DetectsCurrentLayout(t *testing.T) {
	data := untaggedWorkbook(t, map[int][]any{
		7: {"1", "Грунтовка", "л", 3, 150, nil, 15},
		8: {"", "ИТОГО:"},
	})
	doc, err := DecodeWorkbook(data)
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	if doc.Layout != estimate.LayoutCurrent {
		t.Errorf("layout = %+v, want current", doc.Layout)
	}
	items := doc.Items()
	if len(items) != 1 || items[0].Name != "Грунтовка" {
		t.Errorf("items = %+v", items)
	}
}

func TestDecodeWorkbook_SkipsBlankRows(t *testing.T) {
	data := untaggedWorkbook(t, map[int][]any{
		7:  {"1", "Грунтовка", "л", 3, 150, nil, 15},
		8:  {" ", "  ", "\t"},
		9:  {"2", "Покраска", "м²", 10, 200, nil, 20},
		10: {"", "ИТОГО:"},
	})
	doc, err := DecodeWorkbook(data)
	if err != nil {
		t.Fatalf("DecodeWorkbook() error = %v", err)
	}
	rows := doc.DataRows()
	if len(rows) != 2 || rows[0].Name != "Грунтовка" || rows[1].Name != "Покраска" {
		t.Errorf("data rows = %+v", rows)
	}
}

func TestDecodeAny(t *testing.T) {
	data, err := EncodeWorkbook(sampleDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeAny(data); err != nil {
		t.Errorf("xlsx: %v", err)
	}
	if _, err := DecodeAny([]byte("plain text, not a spreadsheet")); !errors.Is(err, ErrNotWorkbook) {
		t.Errorf("text: err = %v, want ErrNotWorkbook", err)
	}
	if !IsLegacyXLS(append(append([]byte(nil), oleSignature...), 0, 0)) {
		t.Error("OLE signature not recognised as xls")
	}
}

func TestStructureFor(t *testing.T) {
	s := StructureFor(estimate.TypeMain)
	if s.ColumnCount != 10 || !s.HasHeaders {
		t.Errorf("structure = %+v", s)
	}
	if len(s.ReadOnlyColumns) != 3 || s.ReadOnlyColumns[0] != 5 || s.ReadOnlyColumns[1] != 8 || s.ReadOnlyColumns[2] != 9 {
		t.Errorf("read-only columns = %v, want [5 8 9]", s.ReadOnlyColumns)
	}
	if len(s.ColumnWidths) != 10 || s.ColumnWidths[1] != 300 {
		t.Errorf("column widths = %v", s.ColumnWidths)
	}
}

func TestSanitizeExcelCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"normal text", "Штукатурка", "Штукатурка"},
		{"starts with equals", "=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"starts with plus", "+1234", "'+1234"},
		{"starts with minus", "-100", "'-100"},
		{"starts with at", "@import", "'@import"},
		{"starts with tab", "\tdata", "'\tdata"},
		{"starts with pipe", "|command", "'|command"},
		{"starts with carriage return", "\rdata", "'\rdata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeExcelCell(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeExcelCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if back := unsanitizeExcelCell(got); back != tt.input {
				t.Errorf("unsanitizeExcelCell(%q) = %q, want %q", got, back, tt.input)
			}
		})
	}
}

func TestThinBorders(t *testing.T) {
	borders := thinBorders()
	if len(borders) != 4 {
		t.Errorf("thinBorders() returned %d borders, want 4", len(borders))
	}

	sides := map[string]bool{"left": false, "top": false, "bottom": false, "right": false}
	for _, b := range borders {
		sides[b.Type] = true
		if b.Style != 1 {
			t.Errorf("border %s style = %d, want 1 (thin)", b.Type, b.Style)
		}
	}
	for side, found := range sides {
		if !found {
			t.Errorf("missing border side: %s", side)
		}
	}
}
