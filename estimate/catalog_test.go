package estimate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog_Builtin(t *testing.T) {
	sections, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("expected built-in sections")
	}
	for _, s := range sections {
		if s.Title == "" {
			t.Error("section without title")
		}
		for _, it := range s.Items {
			if it.Name == "" || it.Unit == "" {
				t.Errorf("section %q has incomplete item %+v", s.Title, it)
			}
		}
	}
}

func TestLoadCatalog_SkipsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.yaml")
	data := `sections:
  - title: "Демонтаж"
    items:
      - name: "Демонтаж плитки"
        unit: "м²"
      - name: ""
        unit: "шт"
      - name: "Без единицы"
  - title: ""
    items:
      - name: "x"
        unit: "y"
  - title: "Без позиций"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	sections, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if len(sections[0].Items) != 1 || sections[0].Items[0].Name != "Демонтаж плитки" {
		t.Errorf("items = %+v", sections[0].Items)
	}
}

func TestLoadCatalog_Unavailable(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("missing file: err = %v, want ErrCatalogUnavailable", err)
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("sections: [:"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("broken file: err = %v, want ErrCatalogUnavailable", err)
	}
}

func TestLoadMaterials_Builtin(t *testing.T) {
	materials, err := LoadMaterials("")
	if err != nil {
		t.Fatalf("LoadMaterials() error = %v", err)
	}
	if len(materials) != 5 {
		t.Fatalf("got %d materials, want 5", len(materials))
	}
	if materials[0].UnitPrice != 380 || materials[0].MarkupPct != 10 {
		t.Errorf("first material = %+v", materials[0])
	}
}
