// Package scrape walks a retailer storefront and produces normalized
// product records. A failure on any single product is logged and skipped;
// the batch never aborts because of one bad page.
package scrape

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/luz-active/catalog-cli/internal/config"
	"github.com/luz-active/catalog-cli/internal/model"
	"github.com/luz-active/catalog-cli/internal/skiplog"
	"github.com/luz-active/catalog-cli/internal/source"
)

// Stats counts scrape outcomes for the run summary.
type Stats struct {
	ListingPages int
	Skipped      int
}

// Scraper fetches listing and product pages for one source site.
type Scraper struct {
	site      *source.Site
	http      *http.Client
	userAgent string
	skip      *skiplog.Log
	log       *zap.Logger
}

// New creates a Scraper for the given site.
func New(site *source.Site, cfg config.SourceConfig, skip *skiplog.Log) *Scraper {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		site:      site,
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		skip:      skip,
		log:       zap.L().Named("scrape"),
	}
}

// Run walks every listing URL and returns the normalized records. A listing
// URL that fails on first fetch is skipped; a pagination fetch failure mid-
// walk is fatal because it would silently turn missing products into
// deletions-by-absence.
func (s *Scraper) Run(ctx context.Context) ([]model.ProductRecord, Stats, error) {
	var records []model.ProductRecord
	var stats Stats
	seen := make(map[string]struct{})

	for _, listingURL := range s.site.ListingURLs {
		doc, err := s.fetch(ctx, listingURL)
		if err != nil {
			s.skipItem(&stats, listingURL, fmt.Sprintf("listing fetch failed: %v", err))
			continue
		}
		var listing listingData
		if err := extractDataObject(doc, &listing); err != nil {
			s.skipItem(&stats, listingURL, "missing dataObject")
			continue
		}

		itemsDone := 0
		for page := 1; page <= listing.ItemPageCount; page++ {
			pageURL := fmt.Sprintf("%s?from=%d", listingURL, itemsDone)
			pageDoc, err := s.fetch(ctx, pageURL)
			if err != nil {
				return nil, stats, eris.Wrapf(err, "scrape: fetch listing page %s", pageURL)
			}
			stats.ListingPages++

			var pageData listingData
			if err := extractDataObject(pageDoc, &pageData); err != nil {
				s.skipItem(&stats, pageURL, "missing items in dataObject")
				itemsDone += listing.ItemPagePer
				continue
			}

			for _, item := range pageData.Items {
				if item.PLU == "" {
					continue
				}
				if _, ok := seen[item.PLU]; ok {
					s.log.Debug("duplicate listing item",
						zap.String("plu", item.PLU), zap.String("description", item.Description))
					continue
				}
				seen[item.PLU] = struct{}{}

				rec, err := s.fetchProduct(ctx, item)
				if err != nil {
					s.skipItem(&stats, s.productURL(item), err.Error())
					continue
				}
				records = append(records, *rec)
			}
			itemsDone += listing.ItemPagePer
		}
	}

	s.log.Info("scrape complete",
		zap.Int("records", len(records)),
		zap.Int("listing_pages", stats.ListingPages),
		zap.Int("skipped", stats.Skipped))
	return records, stats, nil
}

func (s *Scraper) productURL(item listingItem) string {
	slug := strings.ToLower(strings.ReplaceAll(item.Description, " ", "-"))
	return fmt.Sprintf("%s/%s/%s", s.site.ProductURLBase, slug, item.PLU)
}

// fetchProduct loads one detail page and assembles a validated record.
func (s *Scraper) fetchProduct(ctx context.Context, item listingItem) (*model.ProductRecord, error) {
	url := s.productURL(item)
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "fetch failed")
	}

	var data productData
	if err := extractDataObject(doc, &data); err != nil {
		return nil, eris.New("missing product dataObject")
	}

	prices, ok := extractPriceData(doc, s.site)
	if !ok {
		return nil, eris.New("missing recentData div")
	}
	if prices.Price == "" {
		return nil, eris.New("empty price data")
	}

	ld, _ := extractLDProduct(doc)

	rec := &model.ProductRecord{
		ExternalID:    data.PLU,
		Title:         html.UnescapeString(data.Description),
		Price:         prices.Price,
		PreviousPrice: prices.PreviousPrice,
		Cost:          prices.Cost,
		Images:        extractImages(doc, ld),
	}
	if rec.ExternalID == "" {
		rec.ExternalID = item.PLU
	}
	if rec.Title == "" {
		rec.Title = html.UnescapeString(item.Description)
	}

	for _, v := range data.Variants {
		rec.Variants = append(rec.Variants, model.Variant{
			Name:              html.UnescapeString(v.Name),
			ExternalVariantID: v.UPC,
			Quantity:          variantQuantity(doc, v.PageIDVariant),
		})
	}

	if ld != nil {
		rec.DescriptionHTML = ld.Description
		rec.Gender, rec.ProductType = model.SplitCategory(ld.Category)
		rec.Brand = ld.Brand.Name
	}

	if err := rec.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid record")
	}
	return rec, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	return doc, nil
}

func (s *Scraper) skipItem(stats *Stats, resource, reason string) {
	stats.Skipped++
	s.log.Warn("skipping", zap.String("resource", resource), zap.String("reason", reason))
	if s.skip != nil {
		if err := s.skip.Record(resource, reason); err != nil {
			s.log.Error("skip log write failed", zap.Error(err))
		}
	}
}
