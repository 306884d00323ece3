package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luz-active/catalog-cli/internal/config"
	"github.com/luz-active/catalog-cli/internal/skiplog"
	"github.com/luz-active/catalog-cli/internal/source"
)

const listingHTML = `<html><head>
<script>
var dataObject = {"itemPageCount": 1, "itemPagePer": 24, "items": [
  {"plu": "100", "description": "Red Shoe"},
  {"plu": "200", "description": "Blue Hat"}
]};
</script>
</head><body></body></html>`

const productHTML = `<html><head>
<script>
var dataObject = {"plu": "100", "description": "Red &amp; White Shoe", "variants": [
  {"name": "US 9", "upc": "111222333", "page_id_variant": "9.0"},
  {"name": "US 10", "upc": "444555666", "page_id_variant": "10.0"}
]};
</script>
<script type="application/ld+json">
{"@type": "Product", "description": "A very red shoe.", "category": "Womens/Shoes",
 "image": ["https://cdn.example.com/red-1.jpg", "https://cdn.example.com/red-2.jpg"],
 "brand": {"name": "Luz"}}
</script>
</head><body>
<div id="recentData" data-price="49.50" data-previous-price="80"></div>
<button class="size-btn btn-10-0">US 10</button>
</body></html>`

// No recentData div, so pricing cannot be read.
const brokenProductHTML = `<html><head>
<script>
var dataObject = {"plu": "200", "description": "Blue Hat", "variants": []};
</script>
</head><body></body></html>`

func newTestSite(base string) *source.Site {
	return &source.Site{
		Name:           "test",
		ListingURLs:    []string{base + "/collections/all"},
		ProductURLBase: base + "/products",
		FXRate:         1.0,
		PriceMarkup:    0,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/all", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingHTML)
	})
	mux.HandleFunc("/products/red-shoe/100", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productHTML)
	})
	mux.HandleFunc("/products/blue-hat/200", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, brokenProductHTML)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScraperRun(t *testing.T) {
	srv := newTestServer(t)
	s := New(newTestSite(srv.URL), config.SourceConfig{UserAgent: "test-agent", TimeoutSecs: 5}, nil)

	records, stats, err := s.Run(context.Background())
	require.NoError(t, err)

	// Blue Hat has no pricing block and is skipped.
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.ListingPages)
	assert.Equal(t, 1, stats.Skipped)

	rec := records[0]
	assert.Equal(t, "100", rec.ExternalID)
	assert.Equal(t, "Red & White Shoe", rec.Title)
	assert.Equal(t, "50", rec.Price)
	assert.Equal(t, "80", rec.PreviousPrice)
	assert.Equal(t, "50", rec.Cost)
	assert.Equal(t, "A very red shoe.", rec.DescriptionHTML)
	assert.Equal(t, "Womens", rec.Gender)
	assert.Equal(t, "Shoes", rec.ProductType)
	assert.Equal(t, "Luz", rec.Brand)
	assert.Equal(t, []string{"https://cdn.example.com/red-1.jpg", "https://cdn.example.com/red-2.jpg"}, rec.Images)

	require.Len(t, rec.Variants, 2)
	assert.Equal(t, "US 9", rec.Variants[0].Name)
	assert.Equal(t, "111222333", rec.Variants[0].ExternalVariantID)
	assert.Equal(t, 1, rec.Variants[0].Quantity)
	// US 10 renders a sold-out button.
	assert.Equal(t, 0, rec.Variants[1].Quantity)
}

func TestScraperUserAgent(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		fmt.Fprint(w, listingHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	site := newTestSite(srv.URL)
	s := New(site, config.SourceConfig{UserAgent: "catalog-test/1.0", TimeoutSecs: 5}, nil)
	_, _, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "catalog-test/1.0", got)
}

func TestScraperListingFetchFailureSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	skipPath := filepath.Join(t.TempDir(), "skipped.log")
	skip, err := skiplog.Open(skipPath)
	require.NoError(t, err)
	defer skip.Close()

	s := New(newTestSite(srv.URL), config.SourceConfig{TimeoutSecs: 5}, skip)
	records, stats, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, stats.Skipped)

	data, err := os.ReadFile(skipPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/collections/all")
	assert.Contains(t, string(data), "listing fetch failed")
}

func TestScraperPaginationFetchFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/all", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, listingHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(newTestSite(srv.URL), config.SourceConfig{TimeoutSecs: 5}, nil)
	_, _, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch listing page")
}

func TestScraperDeduplicatesListings(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL
	site := newTestSite(base)
	// Two collections listing the same products.
	site.ListingURLs = []string{base + "/collections/all", base + "/collections/all"}

	s := New(site, config.SourceConfig{TimeoutSecs: 5}, nil)
	records, _, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestProductURLSlug(t *testing.T) {
	s := &Scraper{site: &source.Site{ProductURLBase: "https://shop.example/products"}}
	got := s.productURL(listingItem{PLU: "42", Description: "Bright Red Shoe"})
	assert.Equal(t, "https://shop.example/products/bright-red-shoe/42", got)
}

func TestConvertPrice(t *testing.T) {
	assert.Equal(t, "", convertPrice("", 1.1, 5))
	assert.Equal(t, "", convertPrice("abc", 1.1, 5))
	// ceil(100 * 1.1 + 15) = 125
	assert.Equal(t, "125", convertPrice("100", 1.1, 15))
	// ceil(49.50 * 1 + 0) = 50
	assert.Equal(t, "50", convertPrice("49.50", 1.0, 0))
}

func TestExtractImagesFallback(t *testing.T) {
	doc := mustDoc(t, `<html><body><ul id="owl-zoom">
<li><img data-src="https://cdn.example.com/a.jpg?v=2"></li>
<li><img data-src="https://cdn.example.com/b.jpg"></li>
</ul></body></html>`)

	// Placeholder structured-data image falls through to the carousel.
	ld := &ldProduct{Image: imageList{"?v=1"}}
	got := extractImages(doc, ld)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, got)
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
