package collections_test

import (
	"testing"

	"estimatetracker/collections"
	"estimatetracker/testhelpers"

	"github.com/pocketbase/pocketbase/core"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"projects",
	"estimates",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	collections.Setup(app)

	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q id changed after second Setup(): %s -> %s", name, ids[name], col.Id)
		}
	}
}

func assertSelectValues(t *testing.T, field core.Field, want []string) {
	t.Helper()
	sf, ok := field.(*core.SelectField)
	if !ok {
		t.Fatalf("field %v is not a SelectField", field)
	}
	expected := make(map[string]bool, len(want))
	for _, v := range want {
		expected[v] = true
	}
	for _, v := range sf.Values {
		if !expected[v] {
			t.Errorf("unexpected select value: %q", v)
		}
		delete(expected, v)
	}
	for v := range expected {
		t.Errorf("missing select value: %q", v)
	}
}

func TestSetup_ProjectsFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("projects")

	for _, f := range []string{"name", "client_name", "address", "status", "created", "updated"} {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("projects: missing field %q", f)
		}
	}
	assertSelectValues(t, col.Fields.GetByName("status"), []string{"active", "completed", "on_hold"})
}

func TestSetup_EstimatesFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("estimates")

	fields := []string{"project", "name", "type", "status", "description",
		"file_path", "file_name", "file_size", "file_updated_at", "created", "updated"}
	for _, f := range fields {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("estimates: missing field %q", f)
		}
	}
	assertSelectValues(t, col.Fields.GetByName("type"), []string{"main", "additional", "materials"})

	rf, ok := col.Fields.GetByName("project").(*core.RelationField)
	if !ok {
		t.Fatal("estimates.project is not a RelationField")
	}
	if !rf.CascadeDelete {
		t.Error("estimates.project: expected CascadeDelete=true")
	}
}

func TestSetup_EstimateCascadeDeleteOnProject(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	proj := testhelpers.CreateTestProject(t, app, "Cascade")
	est := testhelpers.CreateTestEstimate(t, app, proj.Id, "Основная", "main")

	if err := app.Delete(proj); err != nil {
		t.Fatalf("failed to delete project: %v", err)
	}
	if _, err := app.FindRecordById("estimates", est.Id); err == nil {
		t.Error("estimate should have been cascade-deleted with project")
	}
}

func TestSetup_EstimateTypeRequired(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Validation")

	col, _ := app.FindCollectionByNameOrId("estimates")
	r := core.NewRecord(col)
	r.Set("project", proj.Id)
	r.Set("name", "Без типа")
	r.Set("type", "unknown")
	if err := app.Save(r); err == nil {
		t.Error("expected save with an unknown type to fail")
	}
}
