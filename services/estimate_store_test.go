package services

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"

	"estimatetracker/estimate"
	"estimatetracker/testhelpers"
)

func TestDecodeWorkbookPayload(t *testing.T) {
	workbook, err := EncodeWorkbook(estimate.NewDocument(estimate.TypeMain))
	if err != nil {
		t.Fatal(err)
	}
	valid := base64.StdEncoding.EncodeToString(workbook)

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"empty", "", ErrMalformedPayload},
		{"whitespace", "   ", ErrMalformedPayload},
		{"not base64", "this is not base64!!", ErrMalformedPayload},
		{"too small", base64.StdEncoding.EncodeToString(make([]byte, 99)), ErrPayloadTooSmall},
		{"minimum size", base64.StdEncoding.EncodeToString(make([]byte, 100)), nil},
		{"workbook", valid, nil},
		{"data url", "data:application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;base64," + valid, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWorkbookPayload(tt.payload)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeWorkbookPayload_Oversized(t *testing.T) {
	payload := strings.Repeat("A", (MaxWorkbookSize/3+2)*4)
	if _, err := DecodeWorkbookPayload(payload); !errors.Is(err, ErrOversizedPayload) {
		t.Errorf("err = %v, want ErrOversizedPayload", err)
	}
}

func newTestService(t *testing.T) (*pocketbase.PocketBase, *EstimateService, *MemoryStore) {
	t.Helper()
	app := testhelpers.NewTestApp(t)
	store := NewMemoryStore()
	builder := estimate.NewBuilder("", "", estimate.ZeroExamples{})
	return app, &EstimateService{App: app, Store: store, Builder: builder}, store
}

func TestEstimateFileKey(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная", "main")

	if got, want := EstimateFileKey(rec), "estimates/"+proj.Id+"/"+rec.Id+".xlsx"; got != want {
		t.Errorf("EstimateFileKey() = %q, want %q", got, want)
	}
	rec.Set("project", "")
	if got, want := EstimateFileKey(rec), "estimates/no_project/"+rec.Id+".xlsx"; got != want {
		t.Errorf("EstimateFileKey() = %q, want %q", got, want)
	}
}

func TestEstimateService_LoadDocumentRegeneratesMissingFile(t *testing.T) {
	app, svc, store := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная", "main")

	doc, err := svc.LoadDocument(rec)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if doc.Type != estimate.TypeMain || len(doc.Items()) == 0 {
		t.Errorf("regenerated doc = %s with %d items", doc.Type, len(doc.Items()))
	}
	if doc.Object != "г. Казань, ул. Баумана, 1" || doc.Client != "Иванов Иван" {
		t.Errorf("info block = %q / %q", doc.Object, doc.Client)
	}

	wantKey := "estimates/" + proj.Id + "/" + rec.Id + ".xlsx"
	if rec.GetString("file_path") != wantKey {
		t.Errorf("file_path = %q, want %q", rec.GetString("file_path"), wantKey)
	}
	if ok, _ := store.Exists(wantKey); !ok {
		t.Error("regenerated workbook was not stored")
	}
	if rec.GetString("file_name") != "Работы_Смета_производства_работ_2025.xlsx" {
		t.Errorf("file_name = %q", rec.GetString("file_name"))
	}
	if rec.GetInt("file_size") <= 0 {
		t.Errorf("file_size = %d", rec.GetInt("file_size"))
	}
	if rec.GetDateTime("file_updated_at").IsZero() {
		t.Error("file_updated_at not set")
	}
}

func TestEstimateService_LoadDocumentRegeneratesCorruptFile(t *testing.T) {
	app, svc, store := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Доп", "additional")

	key := EstimateFileKey(rec)
	if err := store.Write(key, []byte("definitely not a workbook")); err != nil {
		t.Fatal(err)
	}
	rec.Set("file_path", key)

	doc, err := svc.LoadDocument(rec)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if doc.Type != estimate.TypeAdditional || len(doc.Rows) != 2 {
		t.Errorf("doc = %s with %d rows", doc.Type, len(doc.Rows))
	}
	data, _ := store.Read(key)
	if !IsXLSX(data) {
		t.Error("corrupt file was not replaced")
	}
}

func TestEstimateService_ReadFailureKeepsWorkbook(t *testing.T) {
	app, svc, store := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Доп", "additional")

	doc := estimate.NewDocument(estimate.TypeAdditional)
	if _, err := estimate.InsertRow(doc, -1, estimate.ItemInit{Name: "Шпаклёвка", Quantity: ptr(2), UnitPrice: ptr(300)}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveDocument(rec, doc); err != nil {
		t.Fatal(err)
	}
	before, _ := store.Read(EstimateFileKey(rec))

	outage := errors.New("storage: connection reset")
	flaky := &failingStore{WorkbookStore: store, err: outage}
	svc.Store = flaky

	if _, err := svc.LoadDocument(rec); !errors.Is(err, outage) {
		t.Errorf("LoadDocument() err = %v, want the read error", err)
	}
	if _, err := svc.LoadWorkbook(rec); !errors.Is(err, outage) {
		t.Errorf("LoadWorkbook() err = %v, want the read error", err)
	}

	flaky.err = nil
	after, _ := store.Read(EstimateFileKey(rec))
	if string(before) != string(after) {
		t.Fatal("stored workbook changed during a read failure")
	}
	got, err := svc.LoadDocument(rec)
	if err != nil {
		t.Fatalf("LoadDocument() after recovery error = %v", err)
	}
	if items := got.Items(); len(items) != 1 || got.Totals().Cost != 600 {
		t.Errorf("items = %+v, totals = %v", items, got.Totals().Cost)
	}
}

func TestEstimateService_LoadWorkbookRegeneratesMissingFile(t *testing.T) {
	app, svc, store := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная", "main")
	rec.Set("file_path", EstimateFileKey(rec))

	data, err := svc.LoadWorkbook(rec)
	if err != nil {
		t.Fatalf("LoadWorkbook() error = %v", err)
	}
	if !IsXLSX(data) {
		t.Error("regenerated workbook is not xlsx")
	}
	if ok, _ := store.Exists(EstimateFileKey(rec)); !ok {
		t.Error("regenerated workbook was not stored")
	}
}

func TestEstimateService_SaveAndLoad(t *testing.T) {
	app, svc, _ := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Доп", "additional")

	doc := estimate.NewDocument(estimate.TypeAdditional)
	if _, err := estimate.InsertRow(doc, 0, estimate.ItemInit{
		Name: "Покраска стен", Quantity: ptr(5), UnitPrice: ptr(100), MarkupPct: ptr(20), DiscountPct: ptr(10),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveDocument(rec, doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}

	reloaded, err := app.FindRecordById("estimates", rec.Id)
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.LoadDocument(reloaded)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	items := got.Items()
	if len(items) != 1 || items[0].Name != "Покраска стен" {
		t.Fatalf("items = %+v", items)
	}
	if got.Totals().ClientCost < 539.999 || got.Totals().ClientCost > 540.001 {
		t.Errorf("total client cost = %v, want 540", got.Totals().ClientCost)
	}
}

func TestEstimateService_Normalize(t *testing.T) {
	app, svc, _ := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Материалы", "materials")

	// A client grid may send stale derived values and indices.
	doc := estimate.NewDocument(estimate.TypeMaterials)
	doc.Rows = append([]estimate.Row{doc.Rows[0], {
		Kind: estimate.RowItem, Index: "99", Name: "Цемент", Unit: "мешок",
		Quantity: 3, UnitPrice: 380, MarkupPct: 10, Cost: 1, ClientCost: 1,
	}}, doc.Rows[1])
	raw, err := EncodeWorkbook(doc)
	if err != nil {
		t.Fatal(err)
	}

	normalized, out, err := svc.Normalize(rec, raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !IsXLSX(out) {
		t.Error("normalized output is not xlsx")
	}
	item := normalized.Items()[0]
	if item.Index != "1" || item.Cost != 1140 {
		t.Errorf("normalized item = %+v", item)
	}

	if _, _, err := svc.Normalize(rec, []byte(strings.Repeat("x", 200))); !errors.Is(err, ErrNotWorkbook) {
		t.Errorf("err = %v, want ErrNotWorkbook", err)
	}
}

func TestEstimateService_DeleteWorkbook(t *testing.T) {
	app, svc, store := newTestService(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")
	rec := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная", "main")

	if _, _, err := svc.Regenerate(rec); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteWorkbook(rec); err != nil {
		t.Fatalf("DeleteWorkbook() error = %v", err)
	}
	if ok, _ := store.Exists(EstimateFileKey(rec)); ok {
		t.Error("workbook still stored after delete")
	}
}

func TestFilesystemStore_RoundTrip(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	store := FilesystemStore{App: app}

	if _, err := store.Read("estimates/none.xlsx"); !errors.Is(err, ErrWorkbookMissing) {
		t.Errorf("missing file: err = %v, want ErrWorkbookMissing", err)
	}
	if err := store.Write("estimates/p/e.xlsx", []byte("payload")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := store.Read("estimates/p/e.xlsx")
	if err != nil || string(data) != "payload" {
		t.Fatalf("Read() = %q, %v", data, err)
	}
	if ok, err := store.Exists("estimates/p/e.xlsx"); !ok || err != nil {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := store.Delete("estimates/p/e.xlsx"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete("estimates/p/e.xlsx"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
