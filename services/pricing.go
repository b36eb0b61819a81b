package services

import (
	"github.com/shopspring/decimal"

	"estimatetracker/estimate"
)

// EstimateSummary aggregates a document for list pages and exports.
type EstimateSummary struct {
	Items         int
	Sections      int
	Cost          float64
	ClientCost    float64
	Margin        float64
	MarginPercent float64
}

// SummarizeEstimate totals a document in decimal arithmetic so the margin
// does not drift by a kopeck on large estimates. The totals row must already
// be up to date (see estimate.RecalculateAll).
func SummarizeEstimate(doc *estimate.Document) EstimateSummary {
	var s EstimateSummary
	for _, r := range doc.DataRows() {
		switch r.Kind {
		case estimate.RowItem:
			s.Items++
		case estimate.RowSection:
			s.Sections++
		}
	}
	total := doc.Totals()
	cost := decimal.NewFromFloat(total.Cost).Round(2)
	client := decimal.NewFromFloat(total.ClientCost).Round(2)
	margin := client.Sub(cost)

	s.Cost = cost.InexactFloat64()
	s.ClientCost = client.InexactFloat64()
	s.Margin = margin.InexactFloat64()
	if !client.IsZero() {
		s.MarginPercent = margin.Div(client).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
	}
	return s
}
