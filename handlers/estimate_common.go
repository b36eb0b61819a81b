package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"estimatetracker/estimate"
	"estimatetracker/services"
	"estimatetracker/templates"
)

var errEstimateNotFound = errors.New("estimate not found")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// findEstimate loads the estimate named by the {id} path value and checks
// that it belongs to the {projectId} of the route.
func findEstimate(app core.App, e *core.RequestEvent) (*core.Record, error) {
	id := e.Request.PathValue("id")
	if id == "" {
		return nil, errEstimateNotFound
	}
	rec, err := app.FindRecordById("estimates", id)
	if err != nil {
		return nil, errEstimateNotFound
	}
	if projectID := e.Request.PathValue("projectId"); projectID != "" && rec.GetString("project") != projectID {
		return nil, errEstimateNotFound
	}
	return rec, nil
}

// listEstimates returns the estimates of a project, newest first, optionally
// restricted to one type.
func listEstimates(app core.App, projectID, estimateType string) ([]*core.Record, error) {
	q := app.RecordQuery("estimates").
		AndWhere(dbx.HashExp{"project": projectID}).
		OrderBy("created DESC")
	if estimateType != "" {
		q = q.AndWhere(dbx.NewExp("type = {:type}", dbx.Params{"type": estimateType}))
	}
	var records []*core.Record
	if err := q.All(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func fileSizeLabel(rec *core.Record) string {
	size := rec.GetInt("file_size")
	if size <= 0 {
		return "—"
	}
	return humanize.Bytes(uint64(size))
}

func estimateListItem(rec *core.Record) templates.EstimateListItem {
	t := estimate.ParseType(rec.GetString("type"))
	fileName := rec.GetString("file_name")
	if fileName == "" {
		fileName = t.FileName(rec.Id)
	}
	updated := "—"
	if dt := rec.GetDateTime("file_updated_at"); !dt.IsZero() {
		updated = dt.Time().Format("02.01.2006 15:04")
	}
	return templates.EstimateListItem{
		ID:          rec.Id,
		ProjectID:   rec.GetString("project"),
		Name:        rec.GetString("name"),
		Type:        string(t),
		TypeLabel:   t.Label(),
		StatusLabel: services.StatusLabel(rec.GetString("status")),
		FileName:    fileName,
		FileSize:    fileSizeLabel(rec),
		UpdatedAt:   updated,
	}
}

func summaryView(doc *estimate.Document) templates.EstimateSummaryView {
	s := services.SummarizeEstimate(doc)
	return templates.EstimateSummaryView{
		Items:         s.Items,
		Sections:      s.Sections,
		Cost:          services.FormatRUB(s.Cost),
		ClientCost:    services.FormatRUB(s.ClientCost),
		Margin:        services.FormatRUB(s.Margin),
		MarginPercent: services.FormatPercent(s.MarginPercent),
	}
}

// inputNumber renders an editable numeric cell value.
func inputNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func gridRow(pos int, r estimate.Row) templates.GridRow {
	values := [estimate.ColumnCount]string{
		r.Index,
		r.Name,
		r.Unit,
		inputNumber(r.Quantity),
		inputNumber(r.UnitPrice),
		services.FormatAmount(r.Cost),
		inputNumber(r.MarkupPct),
		inputNumber(r.DiscountPct),
		services.FormatAmount(r.ClientUnitPrice),
		services.FormatAmount(r.ClientCost),
	}
	row := templates.GridRow{Pos: pos, Kind: r.Kind.String(), Example: r.Example}
	for c, v := range values {
		col := estimate.Column(c)
		editable := col.Editable()
		if r.Kind == estimate.RowSection {
			editable = col == estimate.ColName
			if col > estimate.ColName {
				v = ""
			}
		}
		row.Cells = append(row.Cells, templates.GridCell{
			Col:      c,
			Value:    v,
			Editable: editable,
			Numeric:  col >= estimate.ColQuantity,
		})
	}
	return row
}

func buildGridData(rec *core.Record, doc *estimate.Document) templates.EstimateGridData {
	captions := estimate.Captions(doc.NameCaption)
	data := templates.EstimateGridData{
		ProjectID:       rec.GetString("project"),
		EstimateID:      rec.Id,
		Title:           doc.Title,
		Object:          doc.Object,
		Client:          doc.Client,
		Date:            doc.Date,
		Captions:        captions[:],
		TotalCost:       services.FormatAmount(doc.Totals().Cost),
		TotalClientCost: services.FormatAmount(doc.Totals().ClientCost),
		Summary:         summaryView(doc),
		Units:           services.UnitOptions,
	}
	for i := 1; i < doc.TotalIndex(); i++ {
		data.Rows = append(data.Rows, gridRow(i, doc.Rows[i]))
	}
	return data
}

// sendAttachment writes a file download. Non-ASCII file names are encoded
// per RFC 2231.
func sendAttachment(e *core.RequestEvent, contentType, filename string, data []byte) error {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	e.Response.Header().Set("Content-Length", strconv.Itoa(len(data)))
	e.Response.WriteHeader(http.StatusOK)
	_, err := e.Response.Write(data)
	return err
}
