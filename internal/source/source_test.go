package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeSite(t, `
name: jd-sports-nz
listing_urls:
  - https://www.jdsports.co.nz/women/womens-clothing/brand/adidas/
  - https://www.jdsports.co.nz/women/womens-footwear/brand/adidas/
product_url_base: https://www.jdsports.co.nz/product
fx_rate: 0.93
price_markup: 150
image_label: LUZActive
base_tags:
  - uploaded_by_script
  - nz-prod
`)

	site, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jd-sports-nz", site.Name)
	assert.Len(t, site.ListingURLs, 2)
	assert.Equal(t, 0.93, site.FXRate)
	assert.Equal(t, 150.0, site.PriceMarkup)
	assert.Equal(t, []string{"uploaded_by_script", "nz-prod"}, site.BaseTags)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "listing_urls: [https://x]\nfx_rate: 1"},
		{"no listing urls", "name: x\nfx_rate: 1"},
		{"zero fx rate", "name: x\nlisting_urls: [https://x]"},
		{"negative markup", "name: x\nlisting_urls: [https://x]\nfx_rate: 1\nprice_markup: -5"},
		{"bad yaml", "name: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSite(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
