package scrape

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/luz-active/catalog-cli/internal/source"
)

// The storefront embeds its catalog state as a JavaScript object literal.
var dataObjectRe = regexp.MustCompile(`(?s)var\s+dataObject\s*=\s*(\{.*?\});`)

type listingData struct {
	ItemPageCount int           `json:"itemPageCount"`
	ItemPagePer   int           `json:"itemPagePer"`
	Items         []listingItem `json:"items"`
}

type listingItem struct {
	PLU         string `json:"plu"`
	Description string `json:"description"`
}

type productData struct {
	PLU         string           `json:"plu"`
	Description string           `json:"description"`
	Variants    []productVariant `json:"variants"`
}

type productVariant struct {
	Name          string `json:"name"`
	UPC           string `json:"upc"`
	PageIDVariant string `json:"page_id_variant"`
}

// extractDataObject finds the embedded dataObject literal in any script tag
// and decodes it into out.
func extractDataObject(doc *goquery.Document, out any) error {
	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "var dataObject") {
			return true
		}
		if m := dataObjectRe.FindStringSubmatch(text); m != nil {
			raw = m[1]
			return false
		}
		return true
	})
	if raw == "" {
		return eris.New("scrape: dataObject not found")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return eris.Wrap(err, "scrape: decode dataObject")
	}
	return nil
}

// imageList tolerates the ld+json image field being a single string or an
// array of strings.
type imageList []string

func (l *imageList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = imageList{one}
	return nil
}

type ldProduct struct {
	Type        string    `json:"@type"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Image       imageList `json:"image"`
	Brand       struct {
		Name string `json:"name"`
	} `json:"brand"`
}

// extractLDProduct finds the structured-data Product block on a detail page.
func extractLDProduct(doc *goquery.Document) (*ldProduct, bool) {
	var found *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var p ldProduct
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &p); err != nil {
			return true
		}
		if p.Type != "Product" {
			return true
		}
		found = &p
		return false
	})
	return found, found != nil
}

// priceData is the raw pricing block on a detail page.
type priceData struct {
	Price         string
	PreviousPrice string
	Cost          string
}

// extractPriceData reads the pricing attributes and converts them into the
// target currency. The retail price and the strike-through price get the
// configured markup; cost is the bare converted source price.
func extractPriceData(doc *goquery.Document, site *source.Site) (priceData, bool) {
	div := doc.Find("div#recentData")
	if div.Length() == 0 {
		return priceData{}, false
	}

	rawPrice, _ := div.Attr("data-price")
	rawPrevious, _ := div.Attr("data-previous-price")

	return priceData{
		Price:         convertPrice(rawPrice, site.FXRate, site.PriceMarkup),
		PreviousPrice: convertPrice(rawPrevious, site.FXRate, site.PriceMarkup),
		Cost:          convertPrice(rawPrice, site.FXRate, 0),
	}, true
}

// convertPrice converts a raw decimal string: ceil(raw*fx + markup). An
// empty or unparseable input converts to "".
func convertPrice(raw string, fx, markup float64) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ""
	}
	return strconv.Itoa(int(math.Ceil(v*fx + markup)))
}

// extractImages prefers the structured-data image list, falling back to the
// gallery carousel when the list is empty or a placeholder. Query strings
// are kept here; the batch encoder strips them.
func extractImages(doc *goquery.Document, ld *ldProduct) []string {
	if ld != nil && len(ld.Image) > 0 {
		if !(len(ld.Image) == 1 && ld.Image[0] == "?v=1") {
			return ld.Image
		}
	}

	var images []string
	doc.Find("ul#owl-zoom li img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok && src != "" {
			src, _, _ = strings.Cut(src, "?")
			images = append(images, src)
		}
	})
	return images
}

// variantQuantity reports stock for one variant: the page renders a
// disabled-style button for sold-out sizes, so button present means zero.
func variantQuantity(doc *goquery.Document, pageIDVariant string) int {
	if pageIDVariant == "" {
		return 1
	}
	btnClass := "btn-" + strings.ReplaceAll(pageIDVariant, ".", "-")
	if doc.Find(`button[class*="` + btnClass + `"]`).Length() > 0 {
		return 0
	}
	return 1
}
