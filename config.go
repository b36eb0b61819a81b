package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"estimatetracker/estimate"
)

// config holds the command-line settings shared by serve and templates.
type config struct {
	Catalog   string
	Materials string
	Examples  string
	PDFFont   string
}

func (c *config) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.Catalog, "catalog", "", "work sections catalog (YAML); empty uses the built-in catalog")
	fs.StringVar(&c.Materials, "materials", "", "materials list (YAML); empty uses the built-in list")
	fs.StringVar(&c.Examples, "examples", "random", "example values in new templates: random or zero")
	fs.StringVar(&c.PDFFont, "pdf-font", "", "TrueType font with Cyrillic glyphs for PDF export")
}

func (c *config) builder() (*estimate.Builder, error) {
	var examples estimate.ExampleValues
	switch c.Examples {
	case "", "random":
		examples = estimate.RandomExamples{}
	case "zero":
		examples = estimate.ZeroExamples{}
	default:
		return nil, fmt.Errorf("unknown --examples value %q (want random or zero)", c.Examples)
	}
	return estimate.NewBuilder(c.Catalog, c.Materials, examples), nil
}
