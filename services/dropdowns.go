package services

import "estimatetracker/estimate"

// UnitOptions lists the units offered by the edit grid. Free text is still
// accepted; these are suggestions.
var UnitOptions = []string{
	"раб",
	"шт",
	"м",
	"м²",
	"м³",
	"п.м.",
	"кг",
	"т",
	"л",
	"мешок",
	"компл",
	"точка",
	"услуга",
	"рейс",
	"смена",
}

// EstimateTypeOption is one entry of the estimate type select.
type EstimateTypeOption struct {
	Value string
	Label string
}

// EstimateTypeOptions returns the estimate types in display order.
func EstimateTypeOptions() []EstimateTypeOption {
	opts := make([]EstimateTypeOption, 0, len(estimate.Types))
	for _, t := range estimate.Types {
		opts = append(opts, EstimateTypeOption{Value: string(t), Label: t.Label()})
	}
	return opts
}

// EstimateStatusOptions lists the record statuses of an estimate.
var EstimateStatusOptions = []string{"draft", "sent", "approved"}

var statusLabels = map[string]string{
	"active":    "В работе",
	"completed": "Завершён",
	"on_hold":   "Приостановлен",
	"draft":     "Черновик",
	"sent":      "Отправлена",
	"approved":  "Утверждена",
}

// StatusLabel returns the display label of a project or estimate status.
// Unknown values are returned unchanged.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}
