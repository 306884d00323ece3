package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/luz-active/catalog-cli/internal/store"
	"github.com/luz-active/catalog-cli/pkg/shopify"
)

func initShopify() (shopify.Client, error) {
	if cfg.Shopify.StoreDomain == "" {
		return nil, eris.New("shopify store domain is required (CATALOG_SHOPIFY_STORE_DOMAIN)")
	}
	if cfg.Shopify.AccessToken == "" {
		return nil, eris.New("shopify access token is required (CATALOG_SHOPIFY_ACCESS_TOKEN)")
	}

	hc := &http.Client{Timeout: time.Duration(cfg.Shopify.TimeoutSecs) * time.Second}
	return shopify.NewClient(
		cfg.Shopify.StoreDomain,
		cfg.Shopify.AccessToken,
		cfg.Shopify.APIVersion,
		shopify.WithHTTPClient(hc),
		shopify.WithRateLimit(cfg.Shopify.RateLimitRPS),
	), nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "catalog-cli.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
