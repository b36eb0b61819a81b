package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
)

func downloadName(rec *core.Record) string {
	if name := rec.GetString("file_name"); name != "" {
		return name
	}
	return estimate.ParseType(rec.GetString("type")).FileName(rec.Id)
}

// HandleEstimateExportExcel downloads the workbook. The stored file is
// decoded and re-encoded, which re-applies formulas and formats.
func HandleEstimateExportExcel(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return e.String(http.StatusNotFound, "Смета не найдена")
		}

		doc, err := svc.LoadDocument(rec)
		if err != nil {
			log.Printf("export_excel: could not load estimate %s: %v", rec.Id, err)
			return e.String(http.StatusInternalServerError, "Не удалось сформировать файл Excel")
		}
		xlsxBytes, err := services.EncodeWorkbook(doc)
		if err != nil {
			log.Printf("export_excel: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Не удалось сформировать файл Excel")
		}

		return sendAttachment(e, xlsxContentType, downloadName(rec), xlsxBytes)
	}
}

func HandleEstimateExportPDF(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return e.String(http.StatusNotFound, "Смета не найдена")
		}

		doc, err := svc.LoadDocument(rec)
		if err != nil {
			log.Printf("export_pdf: could not load estimate %s: %v", rec.Id, err)
			return e.String(http.StatusInternalServerError, "Не удалось сформировать PDF")
		}

		opts := svc.PDF
		opts.GeneratedAt = time.Now().Format("02.01.2006 15:04")
		pdfBytes, err := services.GenerateEstimatePDF(doc, opts)
		if err != nil {
			log.Printf("export_pdf: failed to generate: %v", err)
			return e.String(http.StatusInternalServerError, "Не удалось сформировать PDF")
		}

		filename := strings.TrimSuffix(downloadName(rec), ".xlsx") + ".pdf"
		return sendAttachment(e, "application/pdf", filename, pdfBytes)
	}
}

// HandleEstimateTemplateDownload serves a fresh template workbook of the
// type named in the path, without storing anything.
func HandleEstimateTemplateDownload(svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		raw := e.Request.PathValue("type")
		t := estimate.ParseType(raw)
		if string(t) != raw {
			return e.String(http.StatusNotFound, "Неизвестный тип сметы")
		}

		xlsxBytes, err := services.EncodeWorkbook(svc.Builder.Build(t))
		if err != nil {
			log.Printf("estimate_template: failed to generate %s template: %v", t, err)
			return e.String(http.StatusInternalServerError, "Не удалось сформировать шаблон")
		}
		return sendAttachment(e, xlsxContentType, t.FileName("шаблон"), xlsxBytes)
	}
}

type catalogResponse struct {
	Success   bool                       `json:"success"`
	Sections  []estimate.Section         `json:"sections"`
	Materials []estimate.MaterialExample `json:"materials"`
}

// HandleSectionCatalog serves the work sections and material examples that
// new templates are built from.
func HandleSectionCatalog(svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		resp := catalogResponse{
			Success:   true,
			Sections:  svc.Builder.Sections,
			Materials: svc.Builder.Materials,
		}
		if resp.Sections == nil {
			resp.Sections = []estimate.Section{}
		}
		if resp.Materials == nil {
			resp.Materials = []estimate.MaterialExample{}
		}
		return e.JSON(http.StatusOK, resp)
	}
}
