package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"

	"estimatetracker/estimate"
	"estimatetracker/templates"
)

// BuildSidebarData constructs the SidebarData from the current request
// context: the active project and its estimate counts per type.
func BuildSidebarData(r *http.Request, app *pocketbase.PocketBase) templates.SidebarData {
	data := templates.SidebarData{ActivePath: r.URL.Path}

	activeProj := GetActiveProject(r)
	if activeProj == nil {
		return data
	}
	data.ActiveProject = activeProj
	data.EstimateCount = countEstimates(app, activeProj.ID, "")

	for _, t := range estimate.Types {
		data.EstimateTypes = append(data.EstimateTypes, templates.SidebarEstimateLink{
			Type:  string(t),
			Label: t.Label(),
			Count: countEstimates(app, activeProj.ID, string(t)),
		})
	}
	return data
}
