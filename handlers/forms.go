package handlers

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"estimatetracker/collections"
	"estimatetracker/services"
	"estimatetracker/templates"
)

type projectForm struct {
	Name       string `json:"name"`
	ClientName string `json:"client_name"`
	Address    string `json:"address"`
	Status     string `json:"status"`
}

func parseProjectForm(r *http.Request) projectForm {
	f := projectForm{
		Name:       strings.TrimSpace(r.FormValue("name")),
		ClientName: strings.TrimSpace(r.FormValue("client_name")),
		Address:    strings.TrimSpace(r.FormValue("address")),
		Status:     strings.TrimSpace(r.FormValue("status")),
	}
	if f.Status == "" {
		f.Status = "active"
	}
	return f
}

func (f projectForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required.Error("Укажите название проекта"),
			validation.RuneLength(1, 200).Error("Название не длиннее 200 символов")),
		validation.Field(&f.ClientName, validation.RuneLength(0, 200)),
		validation.Field(&f.Address, validation.RuneLength(0, 500)),
		validation.Field(&f.Status, validation.In(anySlice(collections.ProjectStatuses)...).Error("Неизвестный статус")),
	)
}

type estimateForm struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func parseEstimateForm(r *http.Request) estimateForm {
	f := estimateForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Type:        strings.TrimSpace(r.FormValue("type")),
		Status:      strings.TrimSpace(r.FormValue("status")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if f.Status == "" {
		f.Status = "draft"
	}
	return f
}

func (f estimateForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required.Error("Укажите название сметы"),
			validation.RuneLength(1, 200).Error("Название не длиннее 200 символов")),
		validation.Field(&f.Type,
			validation.Required.Error("Выберите тип сметы"),
			validation.In(anySlice(collections.EstimateTypes)...).Error("Неизвестный тип сметы")),
		validation.Field(&f.Status, validation.In(anySlice(collections.EstimateStatuses)...).Error("Неизвестный статус")),
		validation.Field(&f.Description, validation.RuneLength(0, 2000)),
	)
}

// fieldErrors flattens ozzo validation errors into the field → message map
// the form templates expect.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["_"] = err.Error()
	return out
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func statusOptions(values []string) []templates.SelectOption {
	opts := make([]templates.SelectOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, templates.SelectOption{Value: v, Label: services.StatusLabel(v)})
	}
	return opts
}

func estimateTypeOptions() []templates.SelectOption {
	var opts []templates.SelectOption
	for _, o := range services.EstimateTypeOptions() {
		opts = append(opts, templates.SelectOption{Value: o.Value, Label: o.Label})
	}
	return opts
}
