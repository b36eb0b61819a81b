package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"estimatetracker/testhelpers"
)

func TestHandleProjectActivate_Success(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира")

	req := httptest.NewRequest(http.MethodPost, "/projects/"+proj.Id+"/activate", nil)
	req.SetPathValue("id", proj.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := HandleProjectActivate(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/projects/"+proj.Id)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "active_project" && c.Value == proj.Id {
			found = true
		}
	}
	if !found {
		t.Error("expected active_project cookie to be set")
	}
}

func TestHandleProjectActivate_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/projects/missing/activate", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := HandleProjectActivate(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleProjectDeactivate(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/projects/deactivate", nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := HandleProjectDeactivate(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/projects")

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "active_project" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected active_project cookie to be cleared")
	}
}
