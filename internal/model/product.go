// Package model holds the domain types shared across the sync pipeline.
package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Variant is a single purchasable variation of a product (one size).
type Variant struct {
	Name              string `json:"name"`
	ExternalVariantID string `json:"external_variant_id"`
	Quantity          int    `json:"quantity"`
}

// ProductRecord is a normalized product as scraped from the source site.
// Monetary fields are decimal strings in the target currency; an empty
// string means the value was absent on the source page.
type ProductRecord struct {
	ExternalID      string    `json:"external_id"`
	Title           string    `json:"title"`
	Price           string    `json:"price"`
	PreviousPrice   string    `json:"previous_price,omitempty"`
	Cost            string    `json:"cost,omitempty"`
	Variants        []Variant `json:"variants"`
	Images          []string  `json:"images,omitempty"`
	DescriptionHTML string    `json:"description_html,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	ProductType     string    `json:"product_type,omitempty"`
	Brand           string    `json:"brand,omitempty"`
}

// Validate checks the invariants required before a record may enter the
// reconciliation pipeline.
func (p *ProductRecord) Validate() error {
	if p.ExternalID == "" {
		return eris.New("product: external id is required")
	}
	if p.Title == "" {
		return eris.Errorf("product %s: title is required", p.ExternalID)
	}
	if p.Price == "" {
		return eris.Errorf("product %s: price is required", p.ExternalID)
	}
	if len(p.Variants) == 0 {
		return eris.Errorf("product %s: at least one variant is required", p.ExternalID)
	}
	for i, v := range p.Variants {
		if v.Name == "" {
			return eris.Errorf("product %s: variant %d has no name", p.ExternalID, i)
		}
		if v.Quantity < 0 {
			return eris.Errorf("product %s: variant %q has negative quantity", p.ExternalID, v.Name)
		}
	}
	return nil
}

// Discounted reports whether the record carries a strike-through price, i.e.
// both prices parse as positive decimals and the previous price is higher.
func (p *ProductRecord) Discounted() bool {
	price, err := strconv.ParseFloat(p.Price, 64)
	if err != nil || price <= 0 {
		return false
	}
	prev, err := strconv.ParseFloat(p.PreviousPrice, 64)
	if err != nil || prev <= 0 {
		return false
	}
	return prev > price
}

// SplitCategory splits a raw source category like "Women/Clothing" on the
// first separator into gender and product type. Missing parts come back empty.
func SplitCategory(raw string) (gender, productType string) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) > 0 {
		gender = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		productType = strings.TrimSpace(parts[1])
	}
	return gender, productType
}
