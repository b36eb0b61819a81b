package main

import (
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/collections"
	"estimatetracker/handlers"
	"estimatetracker/services"
)

func main() {
	app := pocketbase.New()

	cfg := &config{}
	cfg.register(app.RootCmd.PersistentFlags())
	app.RootCmd.AddCommand(newTemplatesCmd(cfg))

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		if err := collections.MigrateEstimateFileNames(app); err != nil {
			log.Printf("Warning: estimate file name migration failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		builder, err := cfg.builder()
		if err != nil {
			return err
		}
		svc := services.NewEstimateService(app, builder)
		svc.PDF = services.PDFOptions{FontPath: cfg.PDFFont}

		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		// Apply active project middleware globally
		se.Router.BindFunc(handlers.ActiveProjectMiddleware(app))

		// ── Project activation ───────────────────────────────────
		se.Router.POST("/projects/{id}/activate", handlers.HandleProjectActivate(app))
		se.Router.POST("/projects/deactivate", handlers.HandleProjectDeactivate(app))

		// ── Project CRUD ─────────────────────────────────────────
		se.Router.GET("/projects", handlers.HandleProjectList(app))
		se.Router.GET("/projects/create", handlers.HandleProjectCreate(app))
		se.Router.POST("/projects", handlers.HandleProjectSave(app))
		se.Router.DELETE("/projects/{id}", handlers.HandleProjectDelete(app, svc))
		se.Router.GET("/projects/{id}", handlers.HandleProjectView(app))

		// ── Estimate CRUD ────────────────────────────────────────
		se.Router.GET("/projects/{projectId}/estimates/create", handlers.HandleEstimateCreate(app))
		se.Router.POST("/projects/{projectId}/estimates", handlers.HandleEstimateSave(app, svc))

		// ── Estimate editing ─────────────────────────────────────
		se.Router.GET("/projects/{projectId}/estimates/{id}/edit", handlers.HandleEstimateEdit(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/rows", handlers.HandleEstimateAddRow(app, svc))
		se.Router.PATCH("/projects/{projectId}/estimates/{id}/rows/{row}", handlers.HandleEstimateCellUpdate(app, svc))
		se.Router.DELETE("/projects/{projectId}/estimates/{id}/rows/{row}", handlers.HandleEstimateDeleteRow(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/sections", handlers.HandleEstimateAddSection(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/recalculate", handlers.HandleEstimateRecalculate(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/renumber", handlers.HandleEstimateRenumber(app, svc))

		// ── Workbook transfer ────────────────────────────────────
		se.Router.GET("/projects/{projectId}/estimates/{id}/data", handlers.HandleEstimateData(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/save", handlers.HandleEstimateSaveData(app, svc))
		se.Router.POST("/projects/{projectId}/estimates/{id}/upload", handlers.HandleEstimateUpload(app, svc))
		se.Router.GET("/projects/{projectId}/estimates/{id}/export/excel", handlers.HandleEstimateExportExcel(app, svc))
		se.Router.GET("/projects/{projectId}/estimates/{id}/export/pdf", handlers.HandleEstimateExportPDF(app, svc))
		se.Router.GET("/templates/sections", handlers.HandleSectionCatalog(svc))
		se.Router.GET("/templates/estimates/{type}", handlers.HandleEstimateTemplateDownload(svc))

		// ── Estimate list, view, delete (after specific /{id}/* routes) ──
		se.Router.GET("/projects/{projectId}/estimates", handlers.HandleEstimateList(app))
		se.Router.GET("/projects/{projectId}/estimates/{id}", handlers.HandleEstimateView(app, svc))
		se.Router.DELETE("/projects/{projectId}/estimates/{id}", handlers.HandleEstimateDelete(app, svc))

		// Redirect home to projects list
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/projects")
		})
		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
