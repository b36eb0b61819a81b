package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
)

type dataResponse struct {
	Success   bool                       `json:"success"`
	Data      string                     `json:"data,omitempty"`
	Structure services.WorkbookStructure `json:"structure"`
	FileName  string                     `json:"filename,omitempty"`
	FileSize  string                     `json:"filesize,omitempty"`
}

type saveRequest struct {
	ExcelData string `json:"excel_data"`
}

type saveResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	UpdatedAt string `json:"updated_at,omitempty"`
	FileSize  int    `json:"filesize,omitempty"`
}

func jsonError(e *core.RequestEvent, status int, message string) error {
	return e.JSON(status, map[string]any{"success": false, "message": message})
}

// HandleEstimateData serves the stored workbook as base64 together with the
// grid structure contract. ?structure returns the structure alone.
func HandleEstimateData(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return jsonError(e, http.StatusNotFound, "Смета не найдена")
		}
		t := estimate.ParseType(rec.GetString("type"))
		structure := services.StructureFor(t)

		if e.Request.URL.Query().Has("structure") {
			return e.JSON(http.StatusOK, dataResponse{Success: true, Structure: structure})
		}

		data, err := svc.LoadWorkbook(rec)
		if errors.Is(err, services.ErrOversizedPayload) {
			log.Printf("estimate_data: workbook of %s exceeds %d bytes", rec.Id, services.MaxWorkbookSize)
			return jsonError(e, http.StatusRequestEntityTooLarge, "Файл сметы слишком большой")
		}
		if err != nil {
			log.Printf("estimate_data: could not load workbook of %s: %v", rec.Id, err)
			return jsonError(e, http.StatusInternalServerError, "Не удалось загрузить смету")
		}

		return e.JSON(http.StatusOK, dataResponse{
			Success:   true,
			Data:      base64.StdEncoding.EncodeToString(data),
			Structure: structure,
			FileName:  t.FileName(rec.Id),
			FileSize:  humanize.Bytes(uint64(len(data))),
		})
	}
}

// HandleEstimateSaveData accepts a base64 workbook from a browser grid,
// normalises it through the engine and stores it.
func HandleEstimateSaveData(app *pocketbase.PocketBase, svc *services.EstimateService) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rec, err := findEstimate(app, e)
		if err != nil {
			return jsonError(e, http.StatusNotFound, "Смета не найдена")
		}

		// base64 inflates the payload by a third; allow for that plus the JSON envelope.
		body := http.MaxBytesReader(e.Response, e.Request.Body, services.MaxWorkbookSize/3*4+64<<10)
		var req saveRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return jsonError(e, http.StatusRequestEntityTooLarge, "Файл сметы слишком большой")
			}
			return jsonError(e, http.StatusUnprocessableEntity, "Некорректный запрос")
		}

		data, err := services.DecodeWorkbookPayload(req.ExcelData)
		switch {
		case errors.Is(err, services.ErrOversizedPayload):
			return jsonError(e, http.StatusRequestEntityTooLarge, "Файл сметы слишком большой")
		case errors.Is(err, services.ErrPayloadTooSmall):
			return jsonError(e, http.StatusUnprocessableEntity, "Файл сметы слишком мал")
		case err != nil:
			return jsonError(e, http.StatusUnprocessableEntity, "Данные сметы не переданы или повреждены")
		}

		_, out, err := svc.Normalize(rec, data)
		if err != nil {
			log.Printf("estimate_save: could not decode workbook for %s: %v", rec.Id, err)
			return jsonError(e, http.StatusUnprocessableEntity, "Файл не является книгой Excel")
		}
		if err := svc.SaveWorkbook(rec, out); err != nil {
			log.Printf("estimate_save: could not save workbook for %s: %v", rec.Id, err)
			return jsonError(e, http.StatusInternalServerError, "Не удалось сохранить смету")
		}

		return e.JSON(http.StatusOK, saveResponse{
			Success:   true,
			Message:   "Смета сохранена",
			UpdatedAt: rec.GetDateTime("file_updated_at").Time().Local().Format("02.01.2006 15:04"),
			FileSize:  len(out),
		})
	}
}
