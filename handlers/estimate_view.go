package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
	"estimatetracker/templates"
)

func HandleEstimateView(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return e.String(http.StatusNotFound, "Смета не найдена")
		}

		doc, err := svc.LoadDocument(rec)
		if err != nil {
			log.Printf("estimate_view: could not load estimate %s: %v", rec.Id, err)
			return e.String(http.StatusInternalServerError, "Не удалось открыть смету")
		}

		item := estimateListItem(rec)
		data := templates.EstimateViewData{
			ID:          rec.Id,
			ProjectID:   rec.GetString("project"),
			Name:        rec.GetString("name"),
			TypeLabel:   estimate.ParseType(rec.GetString("type")).Label(),
			StatusLabel: item.StatusLabel,
			Description: rec.GetString("description"),
			FileName:    item.FileName,
			FileSize:    item.FileSize,
			UpdatedAt:   item.UpdatedAt,
			Grid:        buildGridData(rec, doc),
			Summary:     summaryView(doc),
		}
		component := templates.EstimateViewPage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
		return component.Render(e.Request.Context(), e.Response)
	}
}
