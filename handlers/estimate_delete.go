package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/services"
)

// HandleEstimateDelete removes an estimate record and its stored workbook.
func HandleEstimateDelete(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return e.String(http.StatusNotFound, "Смета не найдена")
		}

		if err := svc.DeleteWorkbook(rec); err != nil {
			log.Printf("estimate_delete: failed to delete workbook of %s: %v", rec.Id, err)
		}
		if err := app.Delete(rec); err != nil {
			log.Printf("estimate_delete: failed to delete estimate %s: %v", rec.Id, err)
			return ErrorToast(e, http.StatusInternalServerError, "Не удалось удалить смету")
		}

		SetToast(e, "success", "Смета удалена")
		return redirect(e, "/projects/"+rec.GetString("project")+"/estimates")
	}
}
