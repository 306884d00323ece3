package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luz-active/catalog-cli/internal/model"
	"github.com/luz-active/catalog-cli/internal/store"
	"github.com/luz-active/catalog-cli/pkg/shopify"
)

type mockStore struct {
	listRuns func(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

func (m *mockStore) CreateRun(context.Context, model.RunKind) (*model.Run, error) { return nil, nil }
func (m *mockStore) CompleteRun(context.Context, string, model.RunStatus, *model.RunSummary) error {
	return nil
}
func (m *mockStore) GetRun(context.Context, string) (*model.Run, error) { return nil, nil }
func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	return m.listRuns(ctx, filter)
}
func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

type mockShopify struct {
	currentBulk func(ctx context.Context) (*shopify.BulkOperation, error)
}

func (m *mockShopify) FindProductIDBySKU(context.Context, string) (string, error) { return "", nil }
func (m *mockShopify) DeleteProduct(context.Context, string) error                { return nil }
func (m *mockShopify) ListAllProducts(context.Context) ([]shopify.Product, error) { return nil, nil }
func (m *mockShopify) CreateStagedUpload(context.Context, string) (*shopify.StagedTarget, error) {
	return nil, nil
}
func (m *mockShopify) UploadBatch(context.Context, *shopify.StagedTarget, string, io.Reader) (string, error) {
	return "", nil
}
func (m *mockShopify) RunBulkMutation(context.Context, string) (*shopify.BulkOperation, error) {
	return nil, nil
}
func (m *mockShopify) CurrentBulkOperation(ctx context.Context) (*shopify.BulkOperation, error) {
	return m.currentBulk(ctx)
}

func newStatusServer(t *testing.T, st store.Store, client shopify.Client) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(statusRouter(st, client))
	t.Cleanup(srv.Close)
	return srv
}

func TestServe_Healthz(t *testing.T) {
	srv := newStatusServer(t,
		&mockStore{listRuns: func(context.Context, store.RunFilter) ([]model.Run, error) { return nil, nil }},
		&mockShopify{currentBulk: func(context.Context) (*shopify.BulkOperation, error) { return nil, nil }},
	)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_Runs(t *testing.T) {
	runs := []model.Run{
		{ID: "run-1", Kind: model.RunKindSync, Status: model.RunStatusComplete, StartedAt: time.Now()},
	}
	var gotFilter store.RunFilter
	srv := newStatusServer(t,
		&mockStore{listRuns: func(_ context.Context, f store.RunFilter) ([]model.Run, error) {
			gotFilter = f
			return runs, nil
		}},
		&mockShopify{},
	)

	resp, err := http.Get(srv.URL + "/runs?kind=sync")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RunKindSync, gotFilter.Kind)

	var got []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ID)
}

func TestServe_Runs_Empty(t *testing.T) {
	srv := newStatusServer(t,
		&mockStore{listRuns: func(context.Context, store.RunFilter) ([]model.Run, error) { return nil, nil }},
		&mockShopify{},
	)

	resp, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))
}

func TestServe_BulkCurrent_None(t *testing.T) {
	srv := newStatusServer(t,
		&mockStore{},
		&mockShopify{currentBulk: func(context.Context) (*shopify.BulkOperation, error) { return nil, nil }},
	)

	resp, err := http.Get(srv.URL + "/bulk/current")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["active"])
}

func TestServe_BulkCurrent_Active(t *testing.T) {
	srv := newStatusServer(t,
		&mockStore{},
		&mockShopify{currentBulk: func(context.Context) (*shopify.BulkOperation, error) {
			return &shopify.BulkOperation{ID: "gid://shopify/BulkOperation/1", Status: shopify.BulkStatusRunning}, nil
		}},
	)

	resp, err := http.Get(srv.URL + "/bulk/current")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["active"])
	require.NotNil(t, body["operation"])
}

func TestServe_BulkCurrent_Error(t *testing.T) {
	srv := newStatusServer(t,
		&mockStore{},
		&mockShopify{currentBulk: func(context.Context) (*shopify.BulkOperation, error) {
			return nil, assert.AnError
		}},
	)

	resp, err := http.Get(srv.URL + "/bulk/current")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
