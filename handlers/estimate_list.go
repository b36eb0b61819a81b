package handlers

import (
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/templates"
)

// HandleEstimateList renders the estimates of a project. An optional
// ?type= query restricts the list to one estimate type.
func HandleEstimateList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		project, err := app.FindRecordById("projects", projectID)
		if err != nil {
			return e.String(http.StatusNotFound, "Проект не найден")
		}

		typeFilter := e.Request.URL.Query().Get("type")
		if typeFilter != "" && string(estimate.ParseType(typeFilter)) != typeFilter {
			typeFilter = ""
		}

		records, err := listEstimates(app, projectID, typeFilter)
		if err != nil {
			log.Printf("estimate_list: could not query estimates of %s: %v", projectID, err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		items := make([]templates.EstimateListItem, 0, len(records))
		for _, rec := range records {
			items = append(items, estimateListItem(rec))
		}

		data := templates.EstimateListData{
			ProjectID:   projectID,
			ProjectName: project.GetString("name"),
			TypeFilter:  typeFilter,
			Items:       items,
			TypeOptions: estimateTypeOptions(),
		}

		var component templ.Component
		if isHTMX(e) {
			component = templates.EstimateListContent(data)
		} else {
			component = templates.EstimateListPage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}
