package estimate

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps*math.Max(1, math.Abs(b))
}

func ptr(f float64) *float64 { return &f }

// twoSectionDoc builds sections with 3 and 2 items.
func twoSectionDoc(t *testing.T) *Document {
	t.Helper()
	doc := NewDocument(TypeMain)
	rows := []Row{
		{Kind: RowSection, Name: "ДЕМОНТАЖ"},
		{Kind: RowItem, Name: "a", Quantity: 1, UnitPrice: 10},
		{Kind: RowItem, Name: "b", Quantity: 2, UnitPrice: 10},
		{Kind: RowItem, Name: "c", Quantity: 3, UnitPrice: 10},
		{Kind: RowSection, Name: "ПОЛЫ"},
		{Kind: RowItem, Name: "d", Quantity: 4, UnitPrice: 10},
		{Kind: RowItem, Name: "e", Quantity: 5, UnitPrice: 10},
	}
	doc.Rows = append([]Row{doc.Rows[0]}, append(rows, doc.Rows[1])...)
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return doc
}

func TestCalcFunctions(t *testing.T) {
	tests := []struct {
		name                           string
		qty, price, markup, discount   float64
		wantCost, wantClient, wantCCst float64
	}{
		{"basic", 5, 100, 20, 10, 500, 108, 540},
		{"zero everything", 0, 0, 0, 0, 0, 0, 0},
		{"zero quantity", 0, 250, 15, 0, 0, 287.5, 0},
		{"negative discount raises price", 2, 100, 0, -10, 200, 110, 220},
		{"negative markup lowers price", 1, 100, -50, 0, 100, 50, 50},
		{"full discount", 3, 100, 20, 100, 300, 0, 0},
		{"fractions", 2.5, 100.5, 0, 0, 251.25, 100.5, 251.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := CalcCost(tt.qty, tt.price)
			client := CalcClientUnitPrice(tt.price, tt.markup, tt.discount)
			clientCost := CalcClientCost(tt.qty, client)
			if !almostEqual(cost, tt.wantCost) {
				t.Errorf("cost = %v, want %v", cost, tt.wantCost)
			}
			if !almostEqual(client, tt.wantClient) {
				t.Errorf("client unit price = %v, want %v", client, tt.wantClient)
			}
			if !almostEqual(clientCost, tt.wantCCst) {
				t.Errorf("client cost = %v, want %v", clientCost, tt.wantCCst)
			}
		})
	}
}

func TestRecalculateRow_ItemInvariants(t *testing.T) {
	inputs := []Row{
		{Quantity: 5, UnitPrice: 100, MarkupPct: 20, DiscountPct: 10},
		{Quantity: 0, UnitPrice: 100, MarkupPct: 20, DiscountPct: 10},
		{Quantity: 7, UnitPrice: 0, MarkupPct: 0, DiscountPct: 0},
		{Quantity: 3, UnitPrice: 19.99, MarkupPct: -5, DiscountPct: -5},
		{Quantity: 1e6, UnitPrice: 1e-3, MarkupPct: 250, DiscountPct: 99.5},
	}
	for _, in := range inputs {
		doc := NewDocument(TypeAdditional)
		in.Kind = RowItem
		in.Name = "x"
		in.Cost, in.ClientUnitPrice, in.ClientCost = -1, -1, -1
		doc.insert(1, in)

		RecalculateRow(doc, 1)

		r := doc.Rows[1]
		if r.Cost != r.Quantity*r.UnitPrice {
			t.Errorf("cost = %v, want %v", r.Cost, r.Quantity*r.UnitPrice)
		}
		wantClient := r.UnitPrice * (1 + r.MarkupPct/100) * (1 - r.DiscountPct/100)
		if r.ClientUnitPrice != wantClient {
			t.Errorf("client unit price = %v, want %v", r.ClientUnitPrice, wantClient)
		}
		if r.ClientCost != r.Quantity*r.ClientUnitPrice {
			t.Errorf("client cost = %v, want %v", r.ClientCost, r.Quantity*r.ClientUnitPrice)
		}
	}
}

func TestRecalculateRow_SkipsNonItems(t *testing.T) {
	doc := twoSectionDoc(t)
	doc.Rows[1].Cost = 42 // section row, must not be touched
	doc.Rows[doc.TotalIndex()].Cost = 99

	RecalculateRow(doc, 0)
	RecalculateRow(doc, 1)
	RecalculateRow(doc, doc.TotalIndex())
	RecalculateRow(doc, -3)
	RecalculateRow(doc, 100)

	if doc.Rows[1].Cost != 42 {
		t.Errorf("section row changed: cost = %v", doc.Rows[1].Cost)
	}
	if doc.Rows[doc.TotalIndex()].Cost != 99 {
		t.Errorf("totals row changed: cost = %v", doc.Rows[doc.TotalIndex()].Cost)
	}
}

func TestRecalculateAll_Totals(t *testing.T) {
	doc := twoSectionDoc(t)
	// blank-name item is excluded even though it has numbers
	doc.insert(3, Row{Kind: RowItem, Name: "  ", Quantity: 100, UnitPrice: 100})

	RecalculateAll(doc)

	total := doc.Totals()
	if !almostEqual(total.Cost, 150) {
		t.Errorf("total cost = %v, want 150", total.Cost)
	}
	if !almostEqual(total.ClientCost, 150) {
		t.Errorf("total client cost = %v, want 150", total.ClientCost)
	}
	if total.Quantity != 0 || total.UnitPrice != 0 || total.ClientUnitPrice != 0 {
		t.Errorf("totals row must only carry cost columns, got %+v", total)
	}
	if total.Name != TotalLabel {
		t.Errorf("totals label = %q, want %q", total.Name, TotalLabel)
	}
}

func TestRecalculateAll_MatchesSumOfNamedItems(t *testing.T) {
	doc := twoSectionDoc(t)
	for i := 1; i < doc.TotalIndex(); i++ {
		doc.Rows[i].MarkupPct = float64(i * 3)
		doc.Rows[i].DiscountPct = float64(i)
	}
	RecalculateAll(doc)

	var cost, clientCost float64
	for _, r := range doc.Items() {
		cost += r.Cost
		clientCost += r.ClientCost
	}
	if !almostEqual(doc.Totals().Cost, cost) || !almostEqual(doc.Totals().ClientCost, clientCost) {
		t.Errorf("totals = %v/%v, want %v/%v", doc.Totals().Cost, doc.Totals().ClientCost, cost, clientCost)
	}
}

func TestRenumber_TwoSections(t *testing.T) {
	doc := twoSectionDoc(t)
	Renumber(doc)

	want := []string{"1.", "1.1", "1.2", "1.3", "2.", "2.1", "2.2"}
	for i, w := range want {
		if got := doc.Rows[i+1].Index; got != w {
			t.Errorf("row %d index = %q, want %q", i+1, got, w)
		}
	}
}

func TestRenumber_Idempotent(t *testing.T) {
	doc := twoSectionDoc(t)
	Renumber(doc)
	first := make([]string, len(doc.Rows))
	for i, r := range doc.Rows {
		first[i] = r.Index
	}
	Renumber(doc)
	for i, r := range doc.Rows {
		if r.Index != first[i] {
			t.Errorf("row %d index changed from %q to %q", i, first[i], r.Index)
		}
	}
}

func TestRenumber_ItemsBeforeFirstSection(t *testing.T) {
	doc := NewDocument(TypeMaterials)
	for i := 0; i < 3; i++ {
		if _, err := InsertRow(doc, -1, ItemInit{Name: "m"}); err != nil {
			t.Fatalf("InsertRow() error = %v", err)
		}
	}
	for i, w := range []string{"1", "2", "3"} {
		if got := doc.Rows[i+1].Index; got != w {
			t.Errorf("row %d index = %q, want %q", i+1, got, w)
		}
	}
}

func TestInsertRow_ScenarioB(t *testing.T) {
	doc := NewDocument(TypeAdditional)
	pos, err := InsertRow(doc, 0, ItemInit{
		Name:        "Покраска стен",
		Quantity:    ptr(5),
		UnitPrice:   ptr(100),
		MarkupPct:   ptr(20),
		DiscountPct: ptr(10),
	})
	if err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}
	if pos != 1 {
		t.Fatalf("position = %d, want 1", pos)
	}
	r := doc.Rows[pos]
	if !almostEqual(r.Cost, 500) {
		t.Errorf("cost = %v, want 500", r.Cost)
	}
	if !almostEqual(r.ClientUnitPrice, 108) {
		t.Errorf("client unit price = %v, want 108", r.ClientUnitPrice)
	}
	if !almostEqual(r.ClientCost, 540) {
		t.Errorf("client cost = %v, want 540", r.ClientCost)
	}
	if !almostEqual(doc.Totals().ClientCost, 540) {
		t.Errorf("total client cost = %v, want 540", doc.Totals().ClientCost)
	}
	if r.Unit != DefaultUnit {
		t.Errorf("unit = %q, want %q", r.Unit, DefaultUnit)
	}
}

func TestInsertRow_Defaults(t *testing.T) {
	doc := NewDocument(TypeAdditional)
	pos, err := InsertRow(doc, 0, ItemInit{})
	if err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}
	r := doc.Rows[pos]
	if r.Quantity != 0 || r.UnitPrice != 0 || r.MarkupPct != 0 || r.DiscountPct != 0 {
		t.Errorf("expected zero defaults, got %+v", r)
	}
}

func TestInsertRow_Positions(t *testing.T) {
	tests := []struct {
		name  string
		after int
		want  int
	}{
		{"after header", 0, 1},
		{"in the middle", 2, 3},
		{"after totals clamps", 100, 8},
		{"negative appends", -1, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := twoSectionDoc(t)
			pos, err := InsertRow(doc, tt.after, ItemInit{Name: "new"})
			if err != nil {
				t.Fatalf("InsertRow() error = %v", err)
			}
			if pos != tt.want {
				t.Errorf("position = %d, want %d", pos, tt.want)
			}
			if doc.Rows[doc.TotalIndex()].Kind != RowTotal {
				t.Error("totals row is no longer last")
			}
			if err := doc.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestInsertSection(t *testing.T) {
	doc := twoSectionDoc(t)
	pos, err := InsertSection(doc, 4, "Отделка")
	if err != nil {
		t.Fatalf("InsertSection() error = %v", err)
	}
	r := doc.Rows[pos]
	if r.Kind != RowSection || r.Name != "ОТДЕЛКА" {
		t.Errorf("inserted row = %+v", r)
	}
	want := []string{"1.", "1.1", "1.2", "1.3", "2.", "3.", "3.1", "3.2"}
	for i, w := range want {
		if got := doc.Rows[i+1].Index; got != w {
			t.Errorf("row %d index = %q, want %q", i+1, got, w)
		}
	}
}

func TestDeleteRow(t *testing.T) {
	doc := twoSectionDoc(t)
	Refresh(doc)
	if err := DeleteRow(doc, 2); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if doc.Rows[2].Index != "1.1" || doc.Rows[2].Name != "b" {
		t.Errorf("row 2 = %+v", doc.Rows[2])
	}
	if !almostEqual(doc.Totals().Cost, 140) {
		t.Errorf("total cost = %v, want 140", doc.Totals().Cost)
	}

	if err := DeleteRow(doc, 0); !errors.Is(err, ErrProtectedRow) {
		t.Errorf("deleting header: err = %v, want ErrProtectedRow", err)
	}
	if err := DeleteRow(doc, doc.TotalIndex()); !errors.Is(err, ErrProtectedRow) {
		t.Errorf("deleting totals: err = %v, want ErrProtectedRow", err)
	}
	if err := DeleteRow(doc, 99); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("deleting row 99: err = %v, want ErrRowOutOfRange", err)
	}
}

func TestApplyEdit_NonNumericTreatedAsZero(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"empty", ""},
		{"garbage", "abc"},
		{"nil", nil},
		{"spaces", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(TypeAdditional)
			pos, _ := InsertRow(doc, 0, ItemInit{Name: "x", Quantity: ptr(3), UnitPrice: ptr(50), MarkupPct: ptr(10)})

			if err := ApplyEdit(doc, pos, ColQuantity, tt.raw); err != nil {
				t.Fatalf("ApplyEdit() error = %v", err)
			}
			r := doc.Rows[pos]
			if r.Quantity != 0 || r.Cost != 0 || r.ClientCost != 0 {
				t.Errorf("row = %+v, want zero quantity and costs", r)
			}
			if !almostEqual(r.ClientUnitPrice, 55) {
				t.Errorf("client unit price = %v, want 55", r.ClientUnitPrice)
			}
			if doc.Totals().Cost != 0 {
				t.Errorf("total cost = %v, want 0", doc.Totals().Cost)
			}
		})
	}
}

func TestApplyEdit_UpdatesTotalsAndClearsExample(t *testing.T) {
	doc := NewDocument(TypeAdditional)
	pos, _ := InsertRow(doc, 0, ItemInit{Name: "x", Quantity: ptr(2)})
	doc.Rows[pos].Example = true

	if err := ApplyEdit(doc, pos, ColUnitPrice, "1 250,50"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	r := doc.Rows[pos]
	if r.UnitPrice != 1250.5 {
		t.Errorf("unit price = %v, want 1250.5", r.UnitPrice)
	}
	if r.Example {
		t.Error("edited row still flagged as example")
	}
	if !almostEqual(doc.Totals().Cost, 2501) {
		t.Errorf("total cost = %v, want 2501", doc.Totals().Cost)
	}
}

func TestApplyEdit_Rejections(t *testing.T) {
	doc := twoSectionDoc(t)
	tests := []struct {
		name string
		row  int
		col  Column
		want error
	}{
		{"derived cost", 2, ColCost, ErrReadOnlyColumn},
		{"derived client price", 2, ColClientUnitPrice, ErrReadOnlyColumn},
		{"derived client cost", 2, ColClientCost, ErrReadOnlyColumn},
		{"index column", 2, ColIndex, ErrReadOnlyColumn},
		{"section quantity", 1, ColQuantity, ErrReadOnlyColumn},
		{"header row", 0, ColName, ErrProtectedRow},
		{"totals row", 8, ColName, ErrProtectedRow},
		{"out of range", 42, ColName, ErrRowOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyEdit(doc, tt.row, tt.col, "1"); !errors.Is(err, tt.want) {
				t.Errorf("ApplyEdit() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyEdit_SectionTitle(t *testing.T) {
	doc := twoSectionDoc(t)
	if err := ApplyEdit(doc, 1, ColName, "Новый раздел"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if doc.Rows[1].Name != "НОВЫЙ РАЗДЕЛ" {
		t.Errorf("section title = %q", doc.Rows[1].Name)
	}
}

func TestSumFormula(t *testing.T) {
	tests := []struct {
		first, last int
		want        string
	}{
		{7, 12, "SUM(F7:F12)"},
		{7, 6, "SUM(F6:F6)"},
		{6, 5, "SUM(F5:F5)"},
	}
	for _, tt := range tests {
		if got := SumFormula(ColCost, tt.first, tt.last); got != tt.want {
			t.Errorf("SumFormula(%d, %d) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	doc := NewDocument(TypeMain)
	if err := doc.Validate(); err != nil {
		t.Errorf("fresh document: %v", err)
	}
	doc.Rows = doc.Rows[:1]
	if err := doc.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("missing totals: err = %v", err)
	}
	doc = NewDocument(TypeMain)
	doc.insert(1, Row{Kind: RowTotal})
	if err := doc.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("two totals rows: err = %v", err)
	}
}
