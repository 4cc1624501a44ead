// Package pricing maps classified documents to a priced breakdown using the
// embedded document catalog.
package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// UnknownDocumentName labels line items whose classification is not in the catalog.
const UnknownDocumentName = "Unknown Document"

var ErrUnclassified = errors.New("every file must be classified before pricing")

type Entry struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Price    int64  `yaml:"price"`
	Category string `yaml:"-"`
}

type Category struct {
	Name      string  `yaml:"name"`
	Documents []Entry `yaml:"documents"`
}

type Catalog struct {
	GSTPercentage int        `yaml:"gst_percentage"`
	Currency      string     `yaml:"currency"`
	Categories    []Category `yaml:"categories"`

	byKey map[string]Entry
}

// LineItem is one priced document. Quantity is always 1.
type LineItem struct {
	Name         string
	Price        int64
	Quantity     int
	DocumentType string
	Known        bool
}

type Breakdown struct {
	Items         []LineItem
	Subtotal      int64
	GST           int64
	GSTPercentage int
	Total         int64
	Currency      string
}

// AmountMinor is Total in the smallest currency unit, as the payment widget expects.
func (b *Breakdown) AmountMinor() int64 {
	return b.Total * 100
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return LoadCatalog(catalogYAML)
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c.byKey = make(map[string]Entry)
	for ci := range c.Categories {
		cat := &c.Categories[ci]
		for di := range cat.Documents {
			d := &cat.Documents[di]
			d.Category = cat.Name
			if d.Key == "" {
				return nil, fmt.Errorf("parse catalog: entry %q in %q has no key", d.Name, cat.Name)
			}
			if _, dup := c.byKey[d.Key]; dup {
				return nil, fmt.Errorf("parse catalog: duplicate key %q", d.Key)
			}
			c.byKey[d.Key] = *d
		}
	}
	return &c, nil
}

func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// Calculate prices documentTypes in order. An empty classification fails with
// ErrUnclassified; a key missing from the catalog is priced at zero.
func (c *Catalog) Calculate(documentTypes []string) (*Breakdown, error) {
	b := &Breakdown{GSTPercentage: c.GSTPercentage, Currency: c.Currency}

	for _, dt := range documentTypes {
		if dt == "" {
			return nil, ErrUnclassified
		}
		item := LineItem{Name: UnknownDocumentName, Quantity: 1, DocumentType: dt}
		if e, ok := c.byKey[dt]; ok {
			item.Name = e.Name
			item.Price = e.Price
			item.Known = true
		}
		b.Subtotal += item.Price
		b.Items = append(b.Items, item)
	}

	b.GST = int64(math.Round(float64(b.Subtotal) * float64(c.GSTPercentage) / 100))
	b.Total = b.Subtotal + b.GST
	return b, nil
}
