package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/services"
)

// HandleProjectDelete removes a project. Estimate records go with it through
// the cascading relation; their workbook files are removed here first.
func HandleProjectDelete(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")
		if projectID == "" {
			return e.String(http.StatusBadRequest, "Не указан проект")
		}

		projectRecord, err := app.FindRecordById("projects", projectID)
		if err != nil {
			log.Printf("project_delete: could not find project %s: %v", projectID, err)
			return e.String(http.StatusNotFound, "Проект не найден")
		}

		estimates, err := listEstimates(app, projectID, "")
		if err != nil {
			log.Printf("project_delete: could not list estimates of %s: %v", projectID, err)
		}
		for _, est := range estimates {
			if err := svc.DeleteWorkbook(est); err != nil {
				log.Printf("project_delete: failed to delete workbook of estimate %s: %v", est.Id, err)
			}
		}

		if err := app.Delete(projectRecord); err != nil {
			log.Printf("project_delete: failed to delete project %s: %v", projectID, err)
			return e.String(http.StatusInternalServerError, "Не удалось удалить проект")
		}

		log.Printf("project_delete: deleted project %s (estimate_count=%d)", projectID, len(estimates))

		if GetActiveProject(e.Request) != nil && GetActiveProject(e.Request).ID == projectID {
			clearActiveProject(e)
		}
		SetToast(e, "success", "Проект удалён")
		return redirect(e, "/projects")
	}
}
