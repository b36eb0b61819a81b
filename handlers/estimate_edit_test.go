package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
	"estimatetracker/testhelpers"
)

type handlerFactory func(*pocketbase.PocketBase, *services.EstimateService) func(*core.RequestEvent) error

// callRow invokes a row-level edit handler with an HTMX request.
func callRow(t *testing.T, app *pocketbase.PocketBase, svc *services.EstimateService, h handlerFactory, method, row string, form url.Values, proj, est *core.Record) *httptest.ResponseRecorder {
	t.Helper()
	target := "/projects/" + proj.Id + "/estimates/" + est.Id + "/rows"
	if row != "" {
		target += "/" + row
	}
	req := estimateRequest(method, target, strings.NewReader(form.Encode()), proj, est)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if row != "" {
		req.SetPathValue("row", row)
	}
	rec := httptest.NewRecorder()
	if err := h(app, svc)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func loadDoc(t *testing.T, app *pocketbase.PocketBase, svc *services.EstimateService, id string) *estimate.Document {
	t.Helper()
	doc, err := svc.LoadDocument(reloadEstimate(t, app, id))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	return doc
}

func TestHandleEstimateEdit_RendersGrid(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "main")

	req := estimateRequest(http.MethodGet, "/edit", nil, proj, est)
	rec := httptest.NewRecorder()
	if err := HandleEstimateEdit(app, svc)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		`id="estimate-grid"`,
		"СМЕТА НА ПРОВЕДЕНИЕ РАБОТ",
		"Стоимость для заказчика",
		`data-kind="section"`,
		`data-kind="item"`,
		"hx-patch",
		`id="unit-options"`,
		"г. Казань, ул. Баумана, 1",
	)
}

func TestHandleEstimateEdit_WrongProject(t *testing.T) {
	app, svc, _, est := estimateFixture(t, "main")
	other := testhelpers.CreateTestProject(t, app, "Другой")

	req := estimateRequest(http.MethodGet, "/edit", nil, other, est)
	rec := httptest.NewRecorder()
	if err := HandleEstimateEdit(app, svc)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestEstimateEditing_ScenarioThroughHandlers(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "additional")

	rec := callRow(t, app, svc, HandleEstimateAddSection, http.MethodPost, "", url.Values{"title": {"Покраска"}}, proj, est)
	if rec.Code != http.StatusOK {
		t.Fatalf("add section: %d %s", rec.Code, rec.Body.String())
	}
	rec = callRow(t, app, svc, HandleEstimateAddRow, http.MethodPost, "", url.Values{"name": {"Покраска стен"}, "unit": {"м²"}}, proj, est)
	if rec.Code != http.StatusOK {
		t.Fatalf("add row: %d %s", rec.Code, rec.Body.String())
	}

	// Section at 1, item at 2.
	edits := map[estimate.Column]string{
		estimate.ColQuantity:  "5",
		estimate.ColUnitPrice: "100",
		estimate.ColMarkup:    "20",
		estimate.ColDiscount:  "10",
	}
	for col, value := range edits {
		rec = callRow(t, app, svc, HandleEstimateCellUpdate, http.MethodPatch, "2",
			url.Values{"col": {strconv.Itoa(int(col))}, "value": {value}}, proj, est)
		if rec.Code != http.StatusOK {
			t.Fatalf("edit col %d: %d %s", col, rec.Code, rec.Body.String())
		}
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "540,00", "ПОКРАСКА")

	doc := loadDoc(t, app, svc, est.Id)
	items := doc.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Index != "1.1" || it.Cost != 500 || it.ClientCost < 539.999 || it.ClientCost > 540.001 {
		t.Errorf("item = %+v", it)
	}
	if doc.Rows[1].Kind != estimate.RowSection || doc.Rows[1].Name != "ПОКРАСКА" || doc.Rows[1].Index != "1." {
		t.Errorf("section = %+v", doc.Rows[1])
	}
}

func TestHandleEstimateAddSection_FromPrompt(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "additional")

	req := estimateRequest(http.MethodPost, "/sections?after=0", nil, proj, est)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Prompt", "Электрика")
	rec := httptest.NewRecorder()
	if err := HandleEstimateAddSection(app, svc)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	doc := loadDoc(t, app, svc, est.Id)
	if len(doc.Rows) != 3 || doc.Rows[1].Name != "ЭЛЕКТРИКА" {
		t.Errorf("rows = %+v", doc.Rows)
	}
}

func TestHandleEstimateCellUpdate_Rejections(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "additional")
	callRow(t, app, svc, HandleEstimateAddRow, http.MethodPost, "", url.Values{}, proj, est)

	tests := []struct {
		name string
		row  string
		col  string
		want int
	}{
		{"derived column", "1", strconv.Itoa(int(estimate.ColCost)), http.StatusUnprocessableEntity},
		{"index column", "1", strconv.Itoa(int(estimate.ColIndex)), http.StatusUnprocessableEntity},
		{"header row", "0", strconv.Itoa(int(estimate.ColName)), http.StatusUnprocessableEntity},
		{"totals row", "2", strconv.Itoa(int(estimate.ColName)), http.StatusUnprocessableEntity},
		{"out of range", "99", strconv.Itoa(int(estimate.ColName)), http.StatusNotFound},
		{"bad row", "abc", strconv.Itoa(int(estimate.ColName)), http.StatusNotFound},
		{"bad column", "1", "x", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callRow(t, app, svc, HandleEstimateCellUpdate, http.MethodPatch, tt.row,
				url.Values{"col": {tt.col}, "value": {"1"}}, proj, est)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if rec.Header().Get("HX-Reswap") != "none" {
				t.Error("expected HX-Reswap: none on rejection")
			}
		})
	}
}

func TestHandleEstimateDeleteRow(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "additional")
	callRow(t, app, svc, HandleEstimateAddRow, http.MethodPost, "", url.Values{"name": {"Уборка"}}, proj, est)
	callRow(t, app, svc, HandleEstimateAddRow, http.MethodPost, "", url.Values{"name": {"Вывоз мусора"}}, proj, est)

	rec := callRow(t, app, svc, HandleEstimateDeleteRow, http.MethodDelete, "1", url.Values{}, proj, est)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items := loadDoc(t, app, svc, est.Id).Items()
	if len(items) != 1 || items[0].Name != "Вывоз мусора" || items[0].Index != "1" {
		t.Errorf("items = %+v", items)
	}

	rec = callRow(t, app, svc, HandleEstimateDeleteRow, http.MethodDelete, "0", url.Values{}, proj, est)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("deleting the header: expected 422, got %d", rec.Code)
	}
}

func TestHandleEstimateRecalculateAndRenumber(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "main")
	before := loadDoc(t, app, svc, est.Id)

	for name, h := range map[string]handlerFactory{
		"recalculate": HandleEstimateRecalculate,
		"renumber":    HandleEstimateRenumber,
	} {
		req := estimateRequest(http.MethodPost, "/"+name, nil, proj, est)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		if err := h(app, svc)(newTestRequestEvent(app, req, rec)); err != nil {
			t.Fatalf("%s: handler error: %v", name, err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, rec.Code)
		}
	}

	after := loadDoc(t, app, svc, est.Id)
	if len(after.Rows) != len(before.Rows) {
		t.Fatalf("row count changed: %d → %d", len(before.Rows), len(after.Rows))
	}
	for i := range after.Rows {
		if after.Rows[i].Index != before.Rows[i].Index || after.Rows[i].ClientCost != before.Rows[i].ClientCost {
			t.Errorf("row %d changed: %+v → %+v", i, before.Rows[i], after.Rows[i])
		}
	}
}

// unreadableStore fails every read while keeping writes working.
type unreadableStore struct {
	services.WorkbookStore
}

func (unreadableStore) Read(string) ([]byte, error) {
	return nil, errors.New("storage: timeout")
}

func TestHandleEstimateCellUpdate_StorageFailureKeepsWorkbook(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "additional")
	callRow(t, app, svc, HandleEstimateAddRow, http.MethodPost, "", url.Values{"name": {"Уборка"}}, proj, est)
	key := services.EstimateFileKey(est)
	before, err := svc.Store.Read(key)
	if err != nil {
		t.Fatal(err)
	}

	broken := *svc
	broken.Store = unreadableStore{WorkbookStore: svc.Store}
	rec := callRow(t, app, &broken, HandleEstimateCellUpdate, http.MethodPatch, "1",
		url.Values{"col": {strconv.Itoa(int(estimate.ColQuantity))}, "value": {"3"}}, proj, est)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	after, err := svc.Store.Read(key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("stored workbook changed after a failed read")
	}
	if items := loadDoc(t, app, svc, est.Id).Items(); len(items) != 1 || items[0].Name != "Уборка" {
		t.Errorf("items = %+v", items)
	}
}
