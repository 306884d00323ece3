// Package bulk serializes reconciliation decisions into the line-delimited
// upsert format understood by the bulk mutation endpoint, and gates job
// submission so at most one bulk job is in flight at a time.
package bulk

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/luz-active/catalog-cli/internal/model"
	"github.com/luz-active/catalog-cli/internal/reconcile"
	"github.com/luz-active/catalog-cli/pkg/shopify"
)

// Encoder builds productSet upsert lines from product records.
type Encoder struct {
	// LocationID is the inventory location every variant quantity is
	// assigned to.
	LocationID string
	// BaseTags are applied to every product ahead of the per-record tags.
	BaseTags []string
	// ImageLabel is embedded in the deterministic per-index image filename.
	ImageLabel string
}

type upsertLine struct {
	Input productSetInput `json:"input"`
}

type productSetInput struct {
	ID              string          `json:"id,omitempty"`
	Title           string          `json:"title,omitempty"`
	Status          string          `json:"status,omitempty"`
	ProductType     string          `json:"productType,omitempty"`
	Vendor          string          `json:"vendor,omitempty"`
	DescriptionHTML string          `json:"descriptionHtml,omitempty"`
	Tags            []string        `json:"tags"`
	ProductOptions  []productOption `json:"productOptions"`
	Variants        []variantInput  `json:"variants"`
	Files           []fileInput     `json:"files,omitempty"`
}

type productOption struct {
	Name   string        `json:"name"`
	Values []optionValue `json:"values"`
}

type optionValue struct {
	Name string `json:"name"`
}

type variantInput struct {
	Price          string `json:"price"`
	SKU            string `json:"sku"`
	Barcode        string `json:"barcode,omitempty"`
	CompareAtPrice string `json:"compareAtPrice"`
	InventoryItem  struct {
		Tracked bool   `json:"tracked"`
		Cost    string `json:"cost"`
	} `json:"inventoryItem"`
	OptionValues        []variantOptionValue `json:"optionValues"`
	InventoryQuantities []inventoryQuantity  `json:"inventoryQuantities"`
}

type variantOptionValue struct {
	OptionName string `json:"optionName"`
	Name       string `json:"name"`
}

type inventoryQuantity struct {
	Quantity   int    `json:"quantity"`
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
}

type fileInput struct {
	Alt            string `json:"alt"`
	OriginalSource string `json:"originalSource"`
	Filename       string `json:"filename"`
}

// Encode writes one JSON line per decision: updates first in input order,
// then creates in input order. The ordering is a remote-system requirement.
// A write failure aborts the whole run.
func (e *Encoder) Encode(w io.Writer, updates []reconcile.Update, creates []model.ProductRecord) error {
	enc := json.NewEncoder(w)
	for _, u := range updates {
		if err := enc.Encode(upsertLine{Input: e.updateInput(u.Record, u.RemoteID)}); err != nil {
			return eris.Wrapf(err, "bulk: encode update %s", u.Record.ExternalID)
		}
	}
	for _, rec := range creates {
		if err := enc.Encode(upsertLine{Input: e.createInput(rec)}); err != nil {
			return eris.Wrapf(err, "bulk: encode create %s", rec.ExternalID)
		}
	}
	return nil
}

func (e *Encoder) updateInput(rec model.ProductRecord, remoteID string) productSetInput {
	return productSetInput{
		ID:             remoteID,
		Tags:           e.tags(rec),
		ProductOptions: e.options(rec),
		Variants:       e.variants(rec),
		Files:          e.files(rec),
	}
}

func (e *Encoder) createInput(rec model.ProductRecord) productSetInput {
	return productSetInput{
		Title:           rec.Title,
		Status:          "DRAFT",
		ProductType:     rec.ProductType,
		Vendor:          rec.Brand,
		DescriptionHTML: fmt.Sprintf("<p>%s</p>", rec.DescriptionHTML),
		Tags:            e.tags(rec),
		ProductOptions:  e.options(rec),
		Variants:        e.variants(rec),
		Files:           e.files(rec),
	}
}

func (e *Encoder) tags(rec model.ProductRecord) []string {
	tags := make([]string, 0, len(e.BaseTags)+6)
	tags = append(tags, e.BaseTags...)
	tags = append(tags, shopify.SKUTagPrefix+rec.ExternalID, "new")
	for _, t := range []string{rec.Gender, rec.ProductType, rec.Brand} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	if rec.Discounted() {
		tags = append(tags, "discounted")
	}
	return tags
}

func (e *Encoder) options(rec model.ProductRecord) []productOption {
	values := make([]optionValue, len(rec.Variants))
	for i, v := range rec.Variants {
		values[i] = optionValue{Name: v.Name}
	}
	return []productOption{{Name: "Size", Values: values}}
}

func (e *Encoder) variants(rec model.ProductRecord) []variantInput {
	compareAt := rec.PreviousPrice
	if compareAt == "" {
		compareAt = "0"
	}
	// The parent identifier can carry a variant suffix after an underscore;
	// the remote SKU is the bare parent part.
	parentSKU, _, _ := strings.Cut(rec.ExternalID, "_")

	out := make([]variantInput, len(rec.Variants))
	for i, v := range rec.Variants {
		vi := variantInput{
			Price:          rec.Price,
			SKU:            parentSKU,
			Barcode:        v.ExternalVariantID,
			CompareAtPrice: compareAt,
			OptionValues:   []variantOptionValue{{OptionName: "Size", Name: v.Name}},
			InventoryQuantities: []inventoryQuantity{{
				Quantity:   v.Quantity,
				LocationID: e.LocationID,
				Name:       "available",
			}},
		}
		vi.InventoryItem.Tracked = true
		vi.InventoryItem.Cost = rec.Cost
		out[i] = vi
	}
	return out
}

func (e *Encoder) files(rec model.ProductRecord) []fileInput {
	out := make([]fileInput, 0, len(rec.Images))
	for i, img := range rec.Images {
		src, _, _ := strings.Cut(img, "?")
		out = append(out, fileInput{
			Alt:            fmt.Sprintf("%s image", rec.Title),
			OriginalSource: src,
			Filename:       fmt.Sprintf("%s-%s-Image-%d", rec.Title, e.ImageLabel, i+1),
		})
	}
	return out
}
