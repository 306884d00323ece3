// Package source loads the source-site definition the scraper works from.
package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Site describes one retailer storefront to scrape.
type Site struct {
	Name string `yaml:"name"`
	// ListingURLs are the category pages to walk, each paginated via the
	// embedded data object.
	ListingURLs []string `yaml:"listing_urls"`
	// ProductURLBase is the prefix product detail URLs are built from.
	ProductURLBase string `yaml:"product_url_base"`
	// FXRate converts source-currency prices into the target currency.
	FXRate float64 `yaml:"fx_rate"`
	// PriceMarkup is added to the converted retail price (not to cost).
	PriceMarkup float64 `yaml:"price_markup"`
	// ImageLabel is embedded in generated image filenames.
	ImageLabel string `yaml:"image_label"`
	// BaseTags are applied to every uploaded product.
	BaseTags []string `yaml:"base_tags"`
}

// Load reads and validates the site definition at path.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}

	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", path)
	}
	if err := site.Validate(); err != nil {
		return nil, eris.Wrapf(err, "source: %s", path)
	}
	return &site, nil
}

// Validate checks the definition is usable.
func (s *Site) Validate() error {
	if s.Name == "" {
		return eris.New("name is required")
	}
	if len(s.ListingURLs) == 0 {
		return eris.New("at least one listing url is required")
	}
	if s.FXRate <= 0 {
		return eris.New("fx_rate must be positive")
	}
	if s.PriceMarkup < 0 {
		return eris.New("price_markup must not be negative")
	}
	return nil
}
