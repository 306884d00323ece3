// Package shopify provides a typed GraphQL Admin API client covering the
// operations the sync and dedupe pipelines need: product lookup by sku tag,
// single-product delete, full catalog listing, and the staged-upload /
// bulk-mutation workflow.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrNotFound signals that a lookup matched nothing. It is a semantic
// absence, not a transport failure, and drives fallback logic in callers.
var ErrNotFound = eris.New("shopify: not found")

// Client defines the Admin API operations used by the pipelines.
type Client interface {
	FindProductIDBySKU(ctx context.Context, sku string) (string, error)
	DeleteProduct(ctx context.Context, productID string) error
	ListAllProducts(ctx context.Context) ([]Product, error)
	CreateStagedUpload(ctx context.Context, filename string) (*StagedTarget, error)
	UploadBatch(ctx context.Context, target *StagedTarget, filename string, body io.Reader) (string, error)
	RunBulkMutation(ctx context.Context, stagedUploadPath string) (*BulkOperation, error)
	CurrentBulkOperation(ctx context.Context) (*BulkOperation, error)
}

// APIError is returned when the Admin API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify: HTTP %d: %s", e.StatusCode, e.Body)
}

// GraphQLError is returned when the API responds with top-level errors.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("shopify: graphql errors: %v", e.Messages)
}

// UserErrorsError is returned when a mutation payload carries userErrors.
// These are remote validation failures and must never be retried.
type UserErrorsError struct {
	Operation string
	Errors    []UserError
}

func (e *UserErrorsError) Error() string {
	return fmt.Sprintf("shopify: %s user errors: %v", e.Operation, e.Errors)
}

// Option configures the graphqlClient.
type Option func(*graphqlClient)

// WithEndpoint overrides the computed Admin API endpoint. Intended for tests.
func WithEndpoint(url string) Option {
	return func(c *graphqlClient) {
		c.endpoint = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *graphqlClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit applied before every API call.
// The Admin API allows roughly two GraphQL requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *graphqlClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// graphqlClient implements Client using net/http.
type graphqlClient struct {
	endpoint    string
	accessToken string
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient creates an Admin API client for the given store.
func NewClient(storeDomain, accessToken, apiVersion string, opts ...Option) Client {
	c := &graphqlClient{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", storeDomain, apiVersion),
		accessToken: accessToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *graphqlClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query executes a GraphQL request and decodes the data payload into out.
// Top-level errors surface as *GraphQLError.
func (c *graphqlClient) query(ctx context.Context, q string, variables any, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "shopify: rate limit")
	}

	buf, err := json.Marshal(graphqlRequest{Query: q, Variables: variables})
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var env graphqlEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return eris.Wrap(err, "decode response")
	}
	if len(env.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range env.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return eris.Wrap(err, "decode data payload")
		}
	}
	return nil
}
