package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// HandleProjectActivate stores the active project cookie and asks HTMX for a
// full page redirect so header and sidebar re-render.
func HandleProjectActivate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("id")

		if _, err := app.FindRecordById("projects", projectID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "Проект не найден")
		}

		http.SetCookie(e.Response, &http.Cookie{
			Name:     activeProjectCookie,
			Value:    projectID,
			Path:     "/",
			MaxAge:   60 * 60 * 24 * 30,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		SetToast(e, "success", "Проект выбран")
		e.Response.Header().Set("HX-Redirect", "/projects/"+projectID)
		return e.String(http.StatusOK, "OK")
	}
}

// HandleProjectDeactivate clears the active project cookie.
func HandleProjectDeactivate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		clearActiveProject(e)
		SetToast(e, "success", "Выбор проекта сброшен")
		e.Response.Header().Set("HX-Redirect", "/projects")
		return e.String(http.StatusOK, "OK")
	}
}
