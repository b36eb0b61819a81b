package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/services"
)

// uploadMimeTypes are the detected types accepted for workbook uploads.
// Plain zip and OLE containers pass too; DecodeAny decides.
var uploadMimeTypes = []string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"application/zip",
	"application/x-ole-storage",
}

var errUnsupportedUpload = errors.New("upload is not an Excel workbook")

func checkUpload(filename string, data []byte) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
	default:
		return errUnsupportedUpload
	}
	mt := mimetype.Detect(data)
	for _, allowed := range uploadMimeTypes {
		if mt.Is(allowed) {
			return nil
		}
	}
	return errUnsupportedUpload
}

// HandleEstimateUpload replaces the workbook of an estimate with an uploaded
// .xlsx or legacy .xls file. The upload is recalculated and stored with
// formulas and row tags re-applied.
func HandleEstimateUpload(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Смета не найдена")
		}

		if err := e.Request.ParseMultipartForm(services.MaxWorkbookSize + 1<<20); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Файл слишком большой или форма повреждена")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Выберите файл для загрузки")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, services.MaxWorkbookSize+1))
		if err != nil {
			log.Printf("estimate_upload: read %s: %v", header.Filename, err)
			return ErrorToast(e, http.StatusBadRequest, "Не удалось прочитать файл")
		}
		if len(data) > services.MaxWorkbookSize {
			return ErrorToast(e, http.StatusRequestEntityTooLarge, "Файл больше 10 МБ")
		}
		if err := checkUpload(header.Filename, data); err != nil {
			return ErrorToast(e, http.StatusUnprocessableEntity, "Поддерживаются только файлы .xlsx и .xls")
		}

		_, out, err := svc.Normalize(rec, data)
		if err != nil {
			log.Printf("estimate_upload: could not decode %s for %s: %v", header.Filename, rec.Id, err)
			return ErrorToast(e, http.StatusUnprocessableEntity, "Не удалось прочитать книгу Excel")
		}
		if err := svc.SaveWorkbook(rec, out); err != nil {
			log.Printf("estimate_upload: could not save workbook for %s: %v", rec.Id, err)
			return ErrorToast(e, http.StatusInternalServerError, "Не удалось сохранить смету")
		}

		log.Printf("estimate_upload: estimate %s replaced from %s (%d bytes)", rec.Id, header.Filename, len(data))
		SetToast(e, "success", "Файл загружен")
		return redirect(e, "/projects/"+rec.GetString("project")+"/estimates/"+rec.Id)
	}
}
