package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
	"estimatetracker/templates"
)

// HandleEstimateEdit renders the editable grid page.
func HandleEstimateEdit(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return e.String(http.StatusNotFound, "Смета не найдена")
		}
		doc, err := svc.LoadDocument(rec)
		if err != nil {
			log.Printf("estimate_edit: could not load estimate %s: %v", rec.Id, err)
			return e.String(http.StatusInternalServerError, "Не удалось открыть смету")
		}
		component := templates.EstimateEditPage(rec.GetString("name"), buildGridData(rec, doc), GetHeaderData(e.Request), GetSidebarData(e.Request))
		return component.Render(e.Request.Context(), e.Response)
	}
}

// editStatus maps engine errors to HTTP status codes.
func editStatus(err error) (int, string) {
	switch {
	case errors.Is(err, estimate.ErrRowOutOfRange):
		return http.StatusNotFound, "Строка не найдена"
	case errors.Is(err, estimate.ErrProtectedRow):
		return http.StatusUnprocessableEntity, "Заголовок и итоговую строку изменить нельзя"
	case errors.Is(err, estimate.ErrReadOnlyColumn):
		return http.StatusUnprocessableEntity, "Столбец рассчитывается автоматически"
	case errors.Is(err, estimate.ErrInvalidLayout):
		return http.StatusUnprocessableEntity, "Структура сметы повреждена"
	}
	return http.StatusBadRequest, "Некорректный запрос"
}

// mutateEstimate loads the stored document, applies fn through the engine,
// saves the result and renders the refreshed grid fragment.
func mutateEstimate(app *pocketbase.PocketBase, svc *services.EstimateService, action string, fn func(e *core.RequestEvent, doc *estimate.Document) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Смета не найдена")
		}
		doc, err := svc.LoadDocument(rec)
		if err != nil {
			log.Printf("%s: could not load estimate %s: %v", action, rec.Id, err)
			return ErrorToast(e, http.StatusInternalServerError, "Не удалось открыть смету")
		}

		if err := fn(e, doc); err != nil {
			code, msg := editStatus(err)
			log.Printf("%s: estimate %s: %v", action, rec.Id, err)
			return ErrorToast(e, code, msg)
		}

		if _, err := svc.SaveDocument(rec, doc); err != nil {
			log.Printf("%s: could not save estimate %s: %v", action, rec.Id, err)
			return ErrorToast(e, http.StatusInternalServerError, "Не удалось сохранить смету")
		}
		return templates.EstimateGrid(buildGridData(rec, doc)).Render(e.Request.Context(), e.Response)
	}
}

func rowParam(e *core.RequestEvent) (int, error) {
	row, err := strconv.Atoi(e.Request.PathValue("row"))
	if err != nil {
		return 0, estimate.ErrRowOutOfRange
	}
	return row, nil
}

// afterParam reads the insertion anchor; a missing value appends before the
// totals row.
func afterParam(e *core.RequestEvent) int {
	after, err := strconv.Atoi(e.Request.FormValue("after"))
	if err != nil {
		return -1
	}
	return after
}

// HandleEstimateCellUpdate applies one cell edit: PATCH rows/{row} with
// form fields col and value.
func HandleEstimateCellUpdate(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_cell", func(e *core.RequestEvent, doc *estimate.Document) error {
		row, err := rowParam(e)
		if err != nil {
			return err
		}
		col, err := strconv.Atoi(e.Request.FormValue("col"))
		if err != nil {
			return estimate.ErrReadOnlyColumn
		}
		return estimate.ApplyEdit(doc, row, estimate.Column(col), e.Request.FormValue("value"))
	})
}

// HandleEstimateAddRow inserts an item after the ?after= row.
func HandleEstimateAddRow(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_add_row", func(e *core.RequestEvent, doc *estimate.Document) error {
		_, err := estimate.InsertRow(doc, afterParam(e), estimate.ItemInit{
			Name: strings.TrimSpace(e.Request.FormValue("name")),
			Unit: strings.TrimSpace(e.Request.FormValue("unit")),
		})
		return err
	})
}

// HandleEstimateAddSection inserts a section. The title comes from the
// HX-Prompt header or the title form field.
func HandleEstimateAddSection(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_add_section", func(e *core.RequestEvent, doc *estimate.Document) error {
		title := e.Request.Header.Get("HX-Prompt")
		if title == "" {
			title = e.Request.FormValue("title")
		}
		_, err := estimate.InsertSection(doc, afterParam(e), title)
		return err
	})
}

func HandleEstimateDeleteRow(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_delete_row", func(e *core.RequestEvent, doc *estimate.Document) error {
		row, err := rowParam(e)
		if err != nil {
			return err
		}
		return estimate.DeleteRow(doc, row)
	})
}

func HandleEstimateRecalculate(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_recalculate", func(e *core.RequestEvent, doc *estimate.Document) error {
		estimate.RecalculateAll(doc)
		return nil
	})
}

func HandleEstimateRenumber(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return mutateEstimate(app, svc, "estimate_renumber", func(e *core.RequestEvent, doc *estimate.Document) error {
		estimate.Renumber(doc)
		return nil
	})
}
