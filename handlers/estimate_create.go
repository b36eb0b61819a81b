package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/collections"
	"estimatetracker/services"
	"estimatetracker/templates"
)

func estimateCreatePage(e *core.RequestEvent, project *core.Record, f estimateForm, errs map[string]string) error {
	data := templates.EstimateCreateData{
		ProjectID:     project.Id,
		ProjectName:   project.GetString("name"),
		Name:          f.Name,
		Type:          f.Type,
		Status:        f.Status,
		Description:   f.Description,
		TypeOptions:   estimateTypeOptions(),
		StatusOptions: statusOptions(collections.EstimateStatuses),
		Errors:        errs,
	}
	component := templates.EstimateCreatePage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
	return component.Render(e.Request.Context(), e.Response)
}

func HandleEstimateCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		project, err := app.FindRecordById("projects", e.Request.PathValue("projectId"))
		if err != nil {
			return e.String(http.StatusNotFound, "Проект не найден")
		}
		form := estimateForm{Type: e.Request.URL.Query().Get("type"), Status: "draft"}
		if form.Type == "" {
			form.Type = "main"
		}
		return estimateCreatePage(e, project, form, map[string]string{})
	}
}

// HandleEstimateSave creates the estimate record and its first workbook,
// built from the catalog with the project's address and client in the
// info block.
func HandleEstimateSave(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		project, err := app.FindRecordById("projects", e.Request.PathValue("projectId"))
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Проект не найден")
		}
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Некорректные данные формы")
		}

		form := parseEstimateForm(e.Request)
		if errs := fieldErrors(form.Validate()); len(errs) > 0 {
			SetToast(e, "warning", "Исправьте ошибки в форме")
			return estimateCreatePage(e, project, form, errs)
		}

		col, err := app.FindCollectionByNameOrId("estimates")
		if err != nil {
			log.Printf("estimate_create: could not find estimates collection: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		rec := core.NewRecord(col)
		rec.Set("project", project.Id)
		rec.Set("name", form.Name)
		rec.Set("type", form.Type)
		rec.Set("status", form.Status)
		rec.Set("description", form.Description)
		if err := app.Save(rec); err != nil {
			log.Printf("estimate_create: could not save estimate: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		if _, _, err := svc.Regenerate(rec); err != nil {
			// The file is rebuilt on first load, so the record stays.
			log.Printf("estimate_create: could not create workbook for %s: %v", rec.Id, err)
		}

		SetToast(e, "success", "Смета создана")
		return redirect(e, "/projects/"+project.Id+"/estimates/"+rec.Id+"/edit")
	}
}
