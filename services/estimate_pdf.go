package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"estimatetracker/estimate"
)

// PDFOptions tunes the PDF export.
type PDFOptions struct {
	// FontPath points at a UTF-8 TrueType font used for every style. The
	// built-in PDF fonts have no Cyrillic glyphs, so deployments printing
	// Russian text should set it.
	FontPath string
	// GeneratedAt is printed in the footer.
	GeneratedAt string
}

const pdfFontFamily = "estimate-font"

// pdfColumns are the 12-grid widths of the ten estimate columns.
var pdfColumns = [estimate.ColumnCount]int{1, 3, 1, 1, 1, 1, 1, 1, 1, 1}

// GenerateEstimatePDF renders a document as a landscape A4 PDF.
func GenerateEstimatePDF(doc *estimate.Document, opts PDFOptions) ([]byte, error) {
	b := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Стр. {current} из {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		})

	if opts.FontPath != "" {
		fonts, err := repository.New().
			AddUTF8Font(pdfFontFamily, fontstyle.Normal, opts.FontPath).
			AddUTF8Font(pdfFontFamily, fontstyle.Bold, opts.FontPath).
			AddUTF8Font(pdfFontFamily, fontstyle.Italic, opts.FontPath).
			AddUTF8Font(pdfFontFamily, fontstyle.BoldItalic, opts.FontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load pdf font: %w", err)
		}
		b = b.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: pdfFontFamily})
	}

	m := maroto.New(b.Build())

	addEstimateHeader(m, doc)
	addEstimateTableHeader(m, doc)
	for _, r := range doc.DataRows() {
		addEstimateRow(m, r)
	}
	addEstimateSummary(m, SummarizeEstimate(doc))
	if opts.GeneratedAt != "" {
		m.AddRows(row.New(6))
		m.AddRows(row.New(6).Add(col.New(12).Add(
			text.New("Сформировано "+opts.GeneratedAt, props.Text{
				Size:  7,
				Align: align.Left,
				Color: &props.Color{Red: 140, Green: 140, Blue: 140},
			}),
		)))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return out.GetBytes(), nil
}

func addEstimateHeader(m core.Maroto, doc *estimate.Document) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(doc.Title, props.Text{
					Size:  14,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	info := []struct{ label, value string }{
		{"Объект:", doc.Object},
		{"Заказчик:", doc.Client},
		{"Дата составления:", doc.Date},
	}
	for _, line := range info {
		m.AddRows(
			row.New(5).Add(
				col.New(3).Add(text.New(line.label, props.Text{Size: 9, Style: fontstyle.Bold})),
				col.New(9).Add(text.New(line.value, props.Text{Size: 9, Style: fontstyle.Italic, Color: grey})),
			),
		)
	}
	m.AddRows(row.New(4))
}

func addEstimateTableHeader(m core.Maroto, doc *estimate.Document) {
	headerText := props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Center,
	}
	headerCell := props.Cell{BackgroundColor: &props.Color{Red: 224, Green: 224, Blue: 224}}

	cols := make([]core.Col, 0, estimate.ColumnCount)
	for i, caption := range estimate.Captions(doc.NameCaption) {
		cols = append(cols, col.New(pdfColumns[i]).Add(text.New(caption, headerText)).WithStyle(&headerCell))
	}
	m.AddRows(row.New(10).Add(cols...))
}

func addEstimateRow(m core.Maroto, r estimate.Row) {
	if r.Kind == estimate.RowSection {
		sectionCell := &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 245, Blue: 245}}
		bold := props.Text{Size: 8, Style: fontstyle.Bold}
		m.AddRows(
			row.New(7).Add(
				col.New(1).Add(text.New(r.Index, bold)).WithStyle(sectionCell),
				col.New(11).Add(text.New(r.Name, bold)).WithStyle(sectionCell),
			),
		)
		return
	}

	base := props.Text{Size: 7, Align: align.Center}
	if r.Example {
		base.Style = fontstyle.Italic
		base.Color = &props.Color{Red: 128, Green: 128, Blue: 128}
	}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right

	values := [estimate.ColumnCount]struct {
		s string
		p props.Text
	}{
		{r.Index, base},
		{r.Name, left},
		{r.Unit, base},
		{formatQty(r.Quantity), right},
		{FormatAmount(r.UnitPrice), right},
		{FormatAmount(r.Cost), right},
		{FormatPercent(r.MarkupPct), base},
		{FormatPercent(r.DiscountPct), base},
		{FormatAmount(r.ClientUnitPrice), right},
		{FormatAmount(r.ClientCost), right},
	}
	cols := make([]core.Col, 0, estimate.ColumnCount)
	for i, v := range values {
		cols = append(cols, col.New(pdfColumns[i]).Add(text.New(v.s, v.p)))
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addEstimateSummary(m core.Maroto, s EstimateSummary) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	label := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	value := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	lines := []struct{ label, value string }{
		{"Стоимость работ:", FormatRUB(s.Cost)},
		{"Стоимость для заказчика:", FormatRUB(s.ClientCost)},
		{fmt.Sprintf("Наценка (%s):", FormatPercent(s.MarginPercent)), FormatRUB(s.Margin)},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(l.label, label)).WithStyle(summaryCell),
				col.New(4).Add(text.New(l.value, value)).WithStyle(summaryCell),
			),
		)
	}
}
