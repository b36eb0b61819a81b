package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
	"estimatetracker/testhelpers"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// newTestService wires an EstimateService over the test app's local
// filesystem with deterministic (zero) example values.
func newTestService(app *pocketbase.PocketBase) *services.EstimateService {
	return services.NewEstimateService(app, estimate.NewBuilder("", "", estimate.ZeroExamples{}))
}

// estimateFixture creates a project with one estimate of the given type.
func estimateFixture(t *testing.T, estimateType string) (*pocketbase.PocketBase, *services.EstimateService, *core.Record, *core.Record) {
	t.Helper()
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Квартира на Баумана")
	est := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная смета", estimateType)
	return app, newTestService(app), proj, est
}

// estimateRequest builds a request with the projectId/id path values set.
func estimateRequest(method, target string, body io.Reader, proj, est *core.Record) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.SetPathValue("projectId", proj.Id)
	req.SetPathValue("id", est.Id)
	return req
}

func reloadEstimate(t *testing.T, app *pocketbase.PocketBase, id string) *core.Record {
	t.Helper()
	rec, err := app.FindRecordById("estimates", id)
	if err != nil {
		t.Fatalf("reload estimate %s: %v", id, err)
	}
	return rec
}
