package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"estimatetracker/services"
	"estimatetracker/testhelpers"
)

func TestHandleProjectDelete_RemovesEstimatesAndFiles(t *testing.T) {
	app, svc, proj, est := estimateFixture(t, "main")
	if _, _, err := svc.Regenerate(est); err != nil {
		t.Fatal(err)
	}
	key := services.EstimateFileKey(est)

	req := httptest.NewRequest(http.MethodDelete, "/projects/"+proj.Id, nil)
	req.Header.Set("HX-Request", "true")
	req.SetPathValue("id", proj.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := HandleProjectDelete(app, svc)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/projects")

	if _, err := app.FindRecordById("projects", proj.Id); err == nil {
		t.Error("expected project to be deleted")
	}
	if _, err := app.FindRecordById("estimates", est.Id); err == nil {
		t.Error("expected estimate to be cascade deleted")
	}
	if ok, _ := svc.Store.Exists(key); ok {
		t.Error("expected workbook file to be deleted")
	}
}

func TestHandleProjectDelete_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodDelete, "/projects/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := HandleProjectDelete(app, newTestService(app))(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
