package shopify

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rotisserie/eris"
)

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      parameters {
        name
        value
      }
    }
    userErrors {
      field
      message
    }
  }
}`

// CreateStagedUpload requests an upload target for a bulk-mutation JSONL file.
func (c *graphqlClient) CreateStagedUpload(ctx context.Context, filename string) (*StagedTarget, error) {
	var resp struct {
		StagedUploadsCreate struct {
			StagedTargets []StagedTarget `json:"stagedTargets"`
			UserErrors    []UserError    `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}

	variables := map[string]any{
		"input": []map[string]any{{
			"filename":   filename,
			"mimeType":   "text/jsonl",
			"resource":   "BULK_MUTATION_VARIABLES",
			"httpMethod": "POST",
		}},
	}
	if err := c.query(ctx, stagedUploadsCreateMutation, variables, &resp); err != nil {
		return nil, eris.Wrap(err, "shopify: create staged upload")
	}
	if len(resp.StagedUploadsCreate.UserErrors) > 0 {
		return nil, &UserErrorsError{Operation: "stagedUploadsCreate", Errors: resp.StagedUploadsCreate.UserErrors}
	}
	if len(resp.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, eris.New("shopify: create staged upload: no targets returned")
	}
	return &resp.StagedUploadsCreate.StagedTargets[0], nil
}

// UploadBatch posts the encoded batch to the staged target as multipart form
// data and returns the server-assigned reference key for the uploaded file.
func (c *graphqlClient) UploadBatch(ctx context.Context, target *StagedTarget, filename string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	// Target parameters must precede the file part.
	for _, p := range target.Parameters {
		if err := mw.WriteField(p.Name, p.Value); err != nil {
			return "", eris.Wrapf(err, "shopify: upload: write field %s", p.Name)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", eris.Wrap(err, "shopify: upload: create file part")
	}
	if _, err := io.Copy(fw, body); err != nil {
		return "", eris.Wrap(err, "shopify: upload: copy batch")
	}
	if err := mw.Close(); err != nil {
		return "", eris.Wrap(err, "shopify: upload: finalize form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &buf)
	if err != nil {
		return "", eris.Wrap(err, "shopify: upload: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "shopify: upload: execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "shopify: upload: read response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	// S3-style targets echo the key in an XML body; GCS-style targets only
	// carry it in the upload parameters.
	var parsed struct {
		Key string `xml:"Key"`
	}
	if err := xml.Unmarshal(data, &parsed); err == nil && parsed.Key != "" {
		return parsed.Key, nil
	}
	if key := target.Param("key"); key != "" {
		return key, nil
	}
	return "", eris.New("shopify: upload: no reference key in response or parameters")
}

const runBulkMutationMutation = `
mutation bulkOperationRunMutation($mutation: String!, $stagedUploadPath: String!) {
  bulkOperationRunMutation(
    mutation: $mutation,
    stagedUploadPath: $stagedUploadPath
  ) {
    bulkOperation {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

const productSetMutation = `
mutation productSet($input: ProductSetInput!) {
  productSet(input: $input) {
    product {
      id
      title
    }
    userErrors {
      field
      message
    }
  }
}`

// RunBulkMutation submits a bulk productSet job referencing a previously
// staged upload. Validation errors are surfaced, not retried.
func (c *graphqlClient) RunBulkMutation(ctx context.Context, stagedUploadPath string) (*BulkOperation, error) {
	var resp struct {
		BulkOperationRunMutation struct {
			BulkOperation *BulkOperation `json:"bulkOperation"`
			UserErrors    []UserError    `json:"userErrors"`
		} `json:"bulkOperationRunMutation"`
	}

	variables := map[string]any{
		"mutation":         productSetMutation,
		"stagedUploadPath": stagedUploadPath,
	}
	if err := c.query(ctx, runBulkMutationMutation, variables, &resp); err != nil {
		return nil, eris.Wrap(err, "shopify: run bulk mutation")
	}
	if len(resp.BulkOperationRunMutation.UserErrors) > 0 {
		return nil, &UserErrorsError{Operation: "bulkOperationRunMutation", Errors: resp.BulkOperationRunMutation.UserErrors}
	}
	if resp.BulkOperationRunMutation.BulkOperation == nil {
		return nil, eris.New("shopify: run bulk mutation: empty operation in response")
	}
	return resp.BulkOperationRunMutation.BulkOperation, nil
}

const currentBulkOperationQuery = `
query getCurrentBulkOperation {
  currentBulkOperation(type: MUTATION) {
    id
    status
    errorCode
    createdAt
    completedAt
    objectCount
    url
  }
}`

// CurrentBulkOperation returns the store's current bulk mutation, or nil
// when the store has never run one.
func (c *graphqlClient) CurrentBulkOperation(ctx context.Context) (*BulkOperation, error) {
	var resp struct {
		CurrentBulkOperation *BulkOperation `json:"currentBulkOperation"`
	}
	if err := c.query(ctx, currentBulkOperationQuery, nil, &resp); err != nil {
		return nil, eris.Wrap(err, "shopify: current bulk operation")
	}
	return resp.CurrentBulkOperation, nil
}
