package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/templates"
)

type contextKey string

const (
	ActiveProjectKey contextKey = "activeProject"
	HeaderDataKey    contextKey = "headerData"
	SidebarDataKey   contextKey = "sidebarData"
)

const activeProjectCookie = "active_project"

// GetActiveProject extracts the active project from the request context.
func GetActiveProject(r *http.Request) *templates.ActiveProject {
	if val, ok := r.Context().Value(ActiveProjectKey).(*templates.ActiveProject); ok {
		return val
	}
	return nil
}

func GetHeaderData(r *http.Request) templates.HeaderData {
	if val, ok := r.Context().Value(HeaderDataKey).(templates.HeaderData); ok {
		return val
	}
	return templates.HeaderData{}
}

func GetSidebarData(r *http.Request) templates.SidebarData {
	if val, ok := r.Context().Value(SidebarDataKey).(templates.SidebarData); ok {
		return val
	}
	return templates.SidebarData{}
}

// ActiveProjectMiddleware resolves the active_project cookie and stores the
// header and sidebar data in the request context.
func ActiveProjectMiddleware(app *pocketbase.PocketBase) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var activeProj *templates.ActiveProject

		if cookie, err := e.Request.Cookie(activeProjectCookie); err == nil && cookie.Value != "" {
			rec, err := app.FindRecordById("projects", cookie.Value)
			if err == nil {
				activeProj = &templates.ActiveProject{ID: rec.Id, Name: rec.GetString("name")}
			} else {
				log.Printf("middleware: active project %s not found, clearing cookie", cookie.Value)
				clearActiveProject(e)
			}
		}

		var selectorItems []templates.ProjectSelectorItem
		var records []*core.Record
		if err := app.RecordQuery("projects").OrderBy("name ASC").All(&records); err != nil {
			log.Printf("middleware: could not list projects: %v", err)
		}
		for _, rec := range records {
			selectorItems = append(selectorItems, templates.ProjectSelectorItem{
				ID:       rec.Id,
				Name:     rec.GetString("name"),
				Client:   rec.GetString("client_name"),
				IsActive: activeProj != nil && rec.Id == activeProj.ID,
			})
		}

		ctx := context.WithValue(e.Request.Context(), ActiveProjectKey, activeProj)
		ctx = context.WithValue(ctx, HeaderDataKey, templates.HeaderData{
			ActiveProject: activeProj,
			Projects:      selectorItems,
		})
		e.Request = e.Request.WithContext(ctx)

		// Sidebar data reads the active project from the context set above.
		ctx = context.WithValue(e.Request.Context(), SidebarDataKey, BuildSidebarData(e.Request, app))
		e.Request = e.Request.WithContext(ctx)

		return e.Next()
	}
}

func clearActiveProject(e *core.RequestEvent) {
	http.SetCookie(e.Response, &http.Cookie{
		Name:   activeProjectCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// countEstimates counts the estimates of a project, optionally of one type.
func countEstimates(app core.App, projectID, estimateType string) int {
	exp := dbx.HashExp{"project": projectID}
	if estimateType != "" {
		exp["type"] = estimateType
	}
	n, err := app.CountRecords("estimates", exp)
	if err != nil {
		log.Printf("middleware: could not count estimates of project %s: %v", projectID, err)
		return 0
	}
	return int(n)
}
