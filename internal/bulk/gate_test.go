package bulk

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luz-active/catalog-cli/pkg/shopify"
)

// mockAPI implements API with function fields.
type mockAPI struct {
	currentFunc func(ctx context.Context) (*shopify.BulkOperation, error)
	runFunc     func(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error)
}

func (m *mockAPI) CurrentBulkOperation(ctx context.Context) (*shopify.BulkOperation, error) {
	return m.currentFunc(ctx)
}

func (m *mockAPI) RunBulkMutation(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error) {
	return m.runFunc(ctx, stagedUploadPath)
}

func TestAwaitSlot_NoOperation(t *testing.T) {
	api := &mockAPI{
		currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
			return nil, nil
		},
	}
	g := NewGate(api, time.Millisecond)
	require.NoError(t, g.AwaitSlot(context.Background()))
}

func TestAwaitSlot_TerminalOperation(t *testing.T) {
	for _, status := range []shopify.BulkStatus{
		shopify.BulkStatusCompleted, shopify.BulkStatusFailed, shopify.BulkStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			api := &mockAPI{
				currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
					return &shopify.BulkOperation{ID: "gid://shopify/BulkOperation/1", Status: status}, nil
				},
			}
			g := NewGate(api, time.Millisecond)
			require.NoError(t, g.AwaitSlot(context.Background()))
		})
	}
}

func TestAwaitSlot_PollsUntilTerminalThenSubmitsOnce(t *testing.T) {
	var polls, submits int
	api := &mockAPI{
		currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
			polls++
			if polls <= 3 {
				return &shopify.BulkOperation{ID: "op", Status: shopify.BulkStatusRunning}, nil
			}
			return &shopify.BulkOperation{ID: "op", Status: shopify.BulkStatusCompleted}, nil
		},
		runFunc: func(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error) {
			submits++
			assert.Equal(t, "tmp/batches/products.jsonl", stagedUploadPath)
			return &shopify.BulkOperation{ID: "op2", Status: shopify.BulkStatusCreated}, nil
		},
	}

	g := NewGate(api, time.Millisecond)
	require.NoError(t, g.AwaitSlot(context.Background()))

	// Three active polls, then the terminal one freed the slot.
	assert.Equal(t, 4, polls)

	op, err := g.Submit(context.Background(), "tmp/batches/products.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "op2", op.ID)
	assert.Equal(t, 1, submits)
}

func TestAwaitSlot_UnknownStatusKeepsWaiting(t *testing.T) {
	var polls int
	api := &mockAPI{
		currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
			polls++
			if polls == 1 {
				return &shopify.BulkOperation{ID: "op", Status: "MYSTERIOUS"}, nil
			}
			return nil, nil
		},
	}
	g := NewGate(api, time.Millisecond)
	require.NoError(t, g.AwaitSlot(context.Background()))
	assert.Equal(t, 2, polls)
}

func TestAwaitSlot_ContextCancelled(t *testing.T) {
	api := &mockAPI{
		currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
			return &shopify.BulkOperation{ID: "op", Status: shopify.BulkStatusRunning}, nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	g := NewGate(api, 5*time.Millisecond)
	err := g.AwaitSlot(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitSlot_PollError(t *testing.T) {
	api := &mockAPI{
		currentFunc: func(ctx context.Context) (*shopify.BulkOperation, error) {
			return nil, eris.New("connection refused")
		},
	}
	g := NewGate(api, time.Millisecond)
	assert.Error(t, g.AwaitSlot(context.Background()))
}

func TestSubmit_SurfacesValidationErrors(t *testing.T) {
	api := &mockAPI{
		runFunc: func(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error) {
			return nil, &shopify.UserErrorsError{
				Operation: "bulkOperationRunMutation",
				Errors:    []shopify.UserError{{Field: []string{"stagedUploadPath"}, Message: "invalid"}},
			}
		},
	}
	g := NewGate(api, time.Millisecond)

	_, err := g.Submit(context.Background(), "bogus")
	require.Error(t, err)
	var ue *shopify.UserErrorsError
	assert.ErrorAs(t, err, &ue)
}
