package handlers

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestParseProjectForm_Defaults(t *testing.T) {
	req := postForm("/projects", url.Values{"name": {"  Дача  "}}, false)
	f := parseProjectForm(req)
	if f.Name != "Дача" || f.Status != "active" {
		t.Errorf("form = %+v", f)
	}
}

func TestParseEstimateForm_Defaults(t *testing.T) {
	req := postForm("/estimates", url.Values{"name": {"Смета"}, "type": {" main "}}, false)
	f := parseEstimateForm(req)
	if f.Type != "main" || f.Status != "draft" {
		t.Errorf("form = %+v", f)
	}
}

func TestEstimateFormValidate(t *testing.T) {
	tests := []struct {
		name   string
		form   estimateForm
		fields []string
	}{
		{"valid", estimateForm{Name: "Смета", Type: "additional", Status: "sent"}, nil},
		{"empty", estimateForm{Status: "draft"}, []string{"name", "type"}},
		{"bad status", estimateForm{Name: "Смета", Type: "main", Status: "lost"}, []string{"status"}},
		{"long description", estimateForm{Name: "Смета", Type: "main", Status: "draft", Description: strings.Repeat("а", 2001)}, []string{"description"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := fieldErrors(tt.form.Validate())
			if len(errs) != len(tt.fields) {
				t.Fatalf("errors = %v, want fields %v", errs, tt.fields)
			}
			for _, f := range tt.fields {
				if errs[f] == "" {
					t.Errorf("expected an error for %q, got %v", f, errs)
				}
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	if got := fieldErrors(nil); len(got) != 0 {
		t.Errorf("nil error: %v", got)
	}
	got := fieldErrors(errors.New("boom"))
	if got["_"] != "boom" {
		t.Errorf("plain error: %v", got)
	}
	got = fieldErrors(projectForm{Status: "active"}.Validate())
	if got["name"] != "Укажите название проекта" {
		t.Errorf("validation error: %v", got)
	}
}

func TestStatusOptions(t *testing.T) {
	opts := statusOptions([]string{"draft", "approved"})
	if len(opts) != 2 || opts[0].Label != "Черновик" || opts[1].Label != "Утверждена" {
		t.Errorf("options = %+v", opts)
	}
}
