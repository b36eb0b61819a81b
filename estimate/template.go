package estimate

import (
	"log"
	"math/rand/v2"
	"strings"
	"time"
)

// ExampleValues supplies the placeholder numbers of generated work items.
type ExampleValues interface {
	For(item CatalogItem) (quantity, unitPrice, markupPct, discountPct float64)
}

// RandomExamples fills items with plausible-looking numbers so the template
// does not look empty: quantity 1–20, price 100–2000, markup 10–25 %,
// discount 0.
type RandomExamples struct {
	Rand *rand.Rand
}

func (r RandomExamples) For(CatalogItem) (float64, float64, float64, float64) {
	intN := rand.IntN
	if r.Rand != nil {
		intN = r.Rand.IntN
	}
	return float64(1 + intN(20)), float64(100 + intN(1901)), float64(10 + intN(16)), 0
}

// ZeroExamples leaves every generated number at zero.
type ZeroExamples struct{}

func (ZeroExamples) For(CatalogItem) (float64, float64, float64, float64) { return 0, 0, 0, 0 }

// Builder creates fresh estimate documents from the catalog.
type Builder struct {
	Sections  []Section
	Materials []MaterialExample
	Examples  ExampleValues
	// Now stamps the date cell; defaults to time.Now.
	Now func() time.Time
}

// NewBuilder loads the catalog and materials from the given paths (empty
// paths select the built-in data). Load failures are logged and leave the
// corresponding list empty so templates still build.
func NewBuilder(catalogPath, materialsPath string, examples ExampleValues) *Builder {
	sections, err := LoadCatalog(catalogPath)
	if err != nil {
		log.Printf("template: %v", err)
	}
	materials, err := LoadMaterials(materialsPath)
	if err != nil {
		log.Printf("template: %v", err)
	}
	if examples == nil {
		examples = RandomExamples{}
	}
	return &Builder{Sections: sections, Materials: materials, Examples: examples}
}

// Build returns a new, consistent document of the given type.
func (b *Builder) Build(t Type) *Document {
	doc := NewDocument(t)
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	doc.Date = now().Format("02.01.2006")

	switch doc.Type {
	case TypeAdditional:
		// headers and an empty totals row only
	case TypeMaterials:
		if len(b.Materials) > 0 {
			b.addMaterials(doc)
		} else {
			b.addSections(doc)
		}
	default:
		b.addSections(doc)
	}

	Refresh(doc)
	return doc
}

func (b *Builder) addSections(doc *Document) {
	if len(b.Sections) == 0 {
		log.Printf("template: %v, building %s estimate without items", ErrCatalogUnavailable, doc.Type)
		return
	}
	examples := b.Examples
	if examples == nil {
		examples = ZeroExamples{}
	}
	rows := make([]Row, 0, 64)
	for _, s := range b.Sections {
		rows = append(rows, Row{Kind: RowSection, Name: strings.ToUpper(s.Title)})
		for _, it := range s.Items {
			qty, price, markup, discount := examples.For(it)
			rows = append(rows, Row{
				Kind:        RowItem,
				Name:        it.Name,
				Unit:        it.Unit,
				Quantity:    qty,
				UnitPrice:   price,
				MarkupPct:   markup,
				DiscountPct: discount,
				Example:     true,
			})
		}
	}
	doc.Rows = append(doc.Rows[:1], append(rows, doc.Rows[len(doc.Rows)-1])...)
}

func (b *Builder) addMaterials(doc *Document) {
	rows := make([]Row, 0, len(b.Materials)+2)
	rows = append(rows, doc.Rows[0])
	for _, m := range b.Materials {
		rows = append(rows, Row{
			Kind:      RowItem,
			Name:      m.Name,
			Unit:      m.Unit,
			UnitPrice: m.UnitPrice,
			MarkupPct: m.MarkupPct,
			Example:   true,
		})
	}
	doc.Rows = append(rows, doc.Rows[len(doc.Rows)-1])
}
