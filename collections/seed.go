package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type estimateDef struct {
	name         string
	estimateType string
	status       string
	description  string
}

type projectDef struct {
	name       string
	clientName string
	address    string
	status     string
	estimates  []estimateDef
}

var seedProjects = []projectDef{
	{
		name:       "Ремонт квартиры на Садовой",
		clientName: "Петров Алексей Иванович",
		address:    "г. Москва, ул. Садовая, д. 12, кв. 45",
		status:     "active",
		estimates: []estimateDef{
			{"Основные работы", "main", "draft", "Черновая и чистовая отделка"},
			{"Материалы", "materials", "draft", "Черновые материалы"},
			{"Доп. работы по санузлу", "additional", "draft", ""},
		},
	},
}

// Seed inserts a demo project with one estimate of each type. Estimate
// records are created without files; the workbook is generated from the
// catalog the first time an estimate is opened. It is safe to call on every
// startup because it returns early if any project records already exist.
func Seed(app *pocketbase.PocketBase) error {
	// ── idempotency: skip if projects already exist ──────────────────
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("seed: could not find projects collection: %w", err)
	}
	existing, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	estimatesCol, err := app.FindCollectionByNameOrId("estimates")
	if err != nil {
		return fmt.Errorf("seed: could not find estimates collection: %w", err)
	}

	log.Println("seed: projects collection is empty – inserting seed data …")

	return app.RunInTransaction(func(txApp core.App) error {
		for _, p := range seedProjects {
			project := core.NewRecord(projectsCol)
			project.Set("name", p.name)
			project.Set("client_name", p.clientName)
			project.Set("address", p.address)
			project.Set("status", p.status)
			if err := txApp.Save(project); err != nil {
				return fmt.Errorf("seed: save project %q: %w", p.name, err)
			}

			for _, e := range p.estimates {
				r := core.NewRecord(estimatesCol)
				r.Set("project", project.Id)
				r.Set("name", e.name)
				r.Set("type", e.estimateType)
				r.Set("status", e.status)
				r.Set("description", e.description)
				if err := txApp.Save(r); err != nil {
					return fmt.Errorf("seed: save estimate %q: %w", e.name, err)
				}
			}
			log.Printf("seed: created project %q with %d estimates", p.name, len(p.estimates))
		}
		return nil
	})
}
