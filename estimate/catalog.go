package estimate

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ErrCatalogUnavailable is returned when the section catalog cannot be read
// or parsed.
var ErrCatalogUnavailable = errors.New("estimate: section catalog unavailable")

//go:embed data/work_sections.yaml
var defaultWorkSections []byte

//go:embed data/materials.yaml
var defaultMaterials []byte

// CatalogItem is one work or material template.
type CatalogItem struct {
	Name string `yaml:"name" json:"name"`
	Unit string `yaml:"unit" json:"unit"`
}

// Section groups catalog items under a title.
type Section struct {
	Title string        `yaml:"title" json:"title"`
	Items []CatalogItem `yaml:"items" json:"items"`
}

// MaterialExample is a fixed example row of the materials template.
type MaterialExample struct {
	Name      string  `yaml:"name" json:"name"`
	Unit      string  `yaml:"unit" json:"unit"`
	UnitPrice float64 `yaml:"price" json:"price"`
	MarkupPct float64 `yaml:"markup" json:"markup"`
}

type sectionsFile struct {
	Sections []Section `yaml:"sections"`
}

type materialsFile struct {
	Materials []MaterialExample `yaml:"materials"`
}

// LoadCatalog reads work sections from a YAML file. An empty path selects
// the built-in catalog. Malformed entries are skipped and logged.
func LoadCatalog(path string) ([]Section, error) {
	data, err := readSource(path, defaultWorkSections)
	if err != nil {
		return nil, err
	}
	var f sectionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	sections := make([]Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		if strings.TrimSpace(s.Title) == "" || s.Items == nil {
			log.Printf("catalog: skipping malformed section %q", s.Title)
			continue
		}
		items := make([]CatalogItem, 0, len(s.Items))
		for _, it := range s.Items {
			if strings.TrimSpace(it.Name) == "" || strings.TrimSpace(it.Unit) == "" {
				log.Printf("catalog: skipping malformed item %q in section %q", it.Name, s.Title)
				continue
			}
			items = append(items, it)
		}
		sections = append(sections, Section{Title: s.Title, Items: items})
	}
	return sections, nil
}

// LoadMaterials reads the materials example list. An empty path selects the
// built-in list.
func LoadMaterials(path string) ([]MaterialExample, error) {
	data, err := readSource(path, defaultMaterials)
	if err != nil {
		return nil, err
	}
	var f materialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	materials := f.Materials[:0]
	for _, m := range f.Materials {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		materials = append(materials, m)
	}
	return materials, nil
}

func readSource(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return data, nil
}
