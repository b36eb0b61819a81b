package handlers

import (
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/services"
	"estimatetracker/templates"
)

func statusBadgeClass(status string) string {
	switch status {
	case "active", "approved":
		return "badge-success"
	case "completed", "sent":
		return "badge-info"
	case "on_hold":
		return "badge-warning"
	default:
		return "badge-ghost"
	}
}

func formatDate(rec *core.Record, field string) string {
	if dt := rec.GetDateTime(field); !dt.IsZero() {
		return dt.Time().Format("02.01.2006")
	}
	return "—"
}

func HandleProjectList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var records []*core.Record
		if err := app.RecordQuery("projects").OrderBy("created DESC").All(&records); err != nil {
			log.Printf("project_list: could not query projects: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Что-то пошло не так. Попробуйте ещё раз.")
		}

		items := make([]templates.ProjectListItem, 0, len(records))
		for _, rec := range records {
			status := rec.GetString("status")
			items = append(items, templates.ProjectListItem{
				ID:               rec.Id,
				Name:             rec.GetString("name"),
				ClientName:       rec.GetString("client_name"),
				Address:          rec.GetString("address"),
				Status:           status,
				StatusLabel:      services.StatusLabel(status),
				StatusBadgeClass: statusBadgeClass(status),
				EstimateCount:    countEstimates(app, rec.Id, ""),
				CreatedDate:      formatDate(rec, "created"),
			})
		}

		data := templates.ProjectListData{Items: items, TotalCount: len(items)}

		var component templ.Component
		if isHTMX(e) {
			component = templates.ProjectListContent(data)
		} else {
			component = templates.ProjectListPage(data, GetHeaderData(e.Request), GetSidebarData(e.Request))
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}
