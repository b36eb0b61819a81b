package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/collections"
	"estimatetracker/templates"
)

func projectCreatePage(e *core.RequestEvent, f projectForm, errs map[string]string) error {
	data := templates.ProjectCreateData{
		Name:          f.Name,
		ClientName:    f.ClientName,
		Address:       f.Address,
		Status:        f.Status,
		StatusOptions: statusOptions(collections.ProjectStatuses),
		Errors:        errs,
	}
	component := templates.ProjectCreatePage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
	return component.Render(e.Request.Context(), e.Response)
}

func HandleProjectCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return projectCreatePage(e, projectForm{Status: "active"}, map[string]string{})
	}
}

func HandleProjectSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Некорректные данные формы")
		}

		form := parseProjectForm(e.Request)
		errs := fieldErrors(form.Validate())

		if form.Name != "" && errs["name"] == "" {
			existing, _ := app.FindRecordsByFilter(
				"projects",
				"name = {:name}",
				"", 1, 0,
				map[string]any{"name": form.Name},
			)
			if len(existing) > 0 {
				errs["name"] = "Проект с таким названием уже существует"
			}
		}

		if len(errs) > 0 {
			SetToast(e, "warning", "Исправьте ошибки в форме")
			return projectCreatePage(e, form, errs)
		}

		projectsCol, err := app.FindCollectionByNameOrId("projects")
		if err != nil {
			log.Printf("project_create: could not find projects collection: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		record := core.NewRecord(projectsCol)
		record.Set("name", form.Name)
		record.Set("client_name", form.ClientName)
		record.Set("address", form.Address)
		record.Set("status", form.Status)

		if err := app.Save(record); err != nil {
			log.Printf("project_create: could not save project: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		SetToast(e, "success", "Проект создан")
		return redirect(e, "/projects/"+record.Id)
	}
}
