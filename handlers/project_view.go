package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/services"
	"estimatetracker/templates"
)

func HandleProjectView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")
		if projectID == "" {
			return e.String(http.StatusBadRequest, "Не указан проект")
		}

		project, err := app.FindRecordById("projects", projectID)
		if err != nil {
			log.Printf("project_view: could not find project %s: %v", projectID, err)
			return e.String(http.StatusNotFound, "Проект не найден")
		}

		records, err := listEstimates(app, projectID, "")
		if err != nil {
			log.Printf("project_view: could not query estimates of %s: %v", projectID, err)
		}
		estimates := make([]templates.EstimateListItem, 0, len(records))
		for _, rec := range records {
			estimates = append(estimates, estimateListItem(rec))
		}

		data := templates.ProjectViewData{
			ID:          project.Id,
			Name:        project.GetString("name"),
			ClientName:  project.GetString("client_name"),
			Address:     project.GetString("address"),
			StatusLabel: services.StatusLabel(project.GetString("status")),
			CreatedDate: formatDate(project, "created"),
			Estimates:   estimates,
		}
		component := templates.ProjectViewPage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
		return component.Render(e.Request.Context(), e.Response)
	}
}
