package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

const findProductBySKUQuery = `
query GetProductBySKU($query: String!) {
  products(first: 1, query: $query) {
    edges {
      node {
        id
        title
        tags
      }
    }
  }
}`

// FindProductIDBySKU returns the id of the product tagged with the given
// external identifier, or ErrNotFound when no product carries the tag.
func (c *graphqlClient) FindProductIDBySKU(ctx context.Context, sku string) (string, error) {
	var resp struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}

	variables := map[string]any{
		"query": fmt.Sprintf(`tag:%s\:%s`, strings.TrimSuffix(SKUTagPrefix, ":"), sku),
	}
	if err := c.query(ctx, findProductBySKUQuery, variables, &resp); err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("shopify: find product by sku %s", sku))
	}
	if len(resp.Products.Edges) == 0 {
		return "", ErrNotFound
	}
	return resp.Products.Edges[0].Node.ID, nil
}

const deleteProductMutation = `
mutation productDelete($input: ProductDeleteInput!) {
  productDelete(input: $input) {
    deletedProductId
    userErrors {
      field
      message
    }
  }
}`

// DeleteProduct removes a single product by its remote id.
func (c *graphqlClient) DeleteProduct(ctx context.Context, productID string) error {
	var resp struct {
		ProductDelete struct {
			DeletedProductID string      `json:"deletedProductId"`
			UserErrors       []UserError `json:"userErrors"`
		} `json:"productDelete"`
	}

	variables := map[string]any{
		"input": map[string]any{"id": productID},
	}
	if err := c.query(ctx, deleteProductMutation, variables, &resp); err != nil {
		return eris.Wrap(err, fmt.Sprintf("shopify: delete product %s", productID))
	}
	if len(resp.ProductDelete.UserErrors) > 0 {
		return &UserErrorsError{Operation: "productDelete", Errors: resp.ProductDelete.UserErrors}
	}
	if resp.ProductDelete.DeletedProductID == "" {
		return eris.Errorf("shopify: delete product %s: empty response", productID)
	}
	return nil
}

const listProductsQuery = `
query GetAllProducts($cursor: String) {
  products(first: 250, after: $cursor) {
    edges {
      node {
        id
        title
        tags
        createdAt
      }
      cursor
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

// ListAllProducts walks the full catalog via cursor pagination, 250 products
// per page. Pacing between pages is handled by the client rate limiter.
func (c *graphqlClient) ListAllProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	var cursor *string

	for {
		var resp struct {
			Products struct {
				Edges []struct {
					Node Product `json:"node"`
				} `json:"edges"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"products"`
		}

		variables := map[string]any{"cursor": cursor}
		if err := c.query(ctx, listProductsQuery, variables, &resp); err != nil {
			return nil, eris.Wrap(err, "shopify: list products")
		}

		for _, edge := range resp.Products.Edges {
			all = append(all, edge.Node)
		}

		if !resp.Products.PageInfo.HasNextPage {
			return all, nil
		}
		end := resp.Products.PageInfo.EndCursor
		cursor = &end
	}
}
