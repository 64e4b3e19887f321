// Package postproc wraps the slide post-processor: it turns a joined
// Markdown slideset plus binary assets into a hosted web deck and PDF.
package postproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"lecturegen/internal/apperr"
)

// Asset is one binary attachment referenced by the slideset's Markdown.
type Asset struct {
	Path string `json:"path"`
	Data string `json:"data"` // base64
}

// Result is the persisted slideset's public URLs.
type Result struct {
	WebURL string `json:"webUrl"`
	PDFURL string `json:"pdfUrl"`
}

// Processor is the post-processing surface the pipeline depends on.
type Processor interface {
	Upload(ctx context.Context, promptID, theme, markdown string, assets []Asset) (Result, error)
	Get(ctx context.Context, promptID string) (Result, bool, error)
}

// Client calls a slide post-processor's PUT/GET /v1/postprocessing endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL using httpClient for transport.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

var _ Processor = (*Client)(nil)

type uploadRequest struct {
	Theme    string `json:"theme"`
	Slideset struct {
		PromptID string  `json:"promptId"`
		Slideset string  `json:"slideset"`
		Assets   []Asset `json:"assets"`
	} `json:"slideset"`
}

// Upload persists promptID's rendered deck. Returns
// apperr.CollaboratorUnavailable on transport/server failure.
func (c *Client) Upload(ctx context.Context, promptID, theme, markdown string, assets []Asset) (Result, error) {
	var req uploadRequest
	req.Theme = theme
	req.Slideset.PromptID = promptID
	req.Slideset.Slideset = markdown
	req.Slideset.Assets = assets

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/postprocessing", bytes.NewReader(payload))
	if err != nil {
		return Result{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Result{}, apperr.New(apperr.CollaboratorUnavailable,
			fmt.Errorf("postproc: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: decode response: %w", err))
	}
	return result, nil
}

// Get looks up a previously persisted slideset. ok=false means the
// post-processor returned 404 (not yet uploaded); any other failure is
// returned as an error.
func (c *Client) Get(ctx context.Context, promptID string) (Result, bool, error) {
	u := c.baseURL + "/v1/postprocessing/" + url.PathEscape(promptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, false, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, false, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{}, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Result{}, false, apperr.New(apperr.CollaboratorUnavailable,
			fmt.Errorf("postproc: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, false, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("postproc: decode response: %w", err))
	}
	return result, true, nil
}
