// Package retrieval wraps the document-intelligence service's retrieval
// endpoint: given a course id and a query, return scored content chunks.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"lecturegen/internal/apperr"
	"lecturegen/internal/status"
)

// Retriever is the retrieval surface the pipeline depends on.
type Retriever interface {
	Retrieve(ctx context.Context, courseID, query string) (status.DocumentChunk, error)
}

// Client calls a document-intelligence retrieval service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL using httpClient for transport.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type retrievalResponse struct {
	Content []string `json:"content"`
	Images  []struct {
		Image       string `json:"image"`
		Description string `json:"description"`
	} `json:"images"`
	Score float64 `json:"score"`
}

// Retrieve queries course courseID's index with query and returns the
// resulting chunk. Wraps transport/decode failures as
// apperr.CollaboratorUnavailable.
func (c *Client) Retrieve(ctx context.Context, courseID, query string) (status.DocumentChunk, error) {
	u := fmt.Sprintf("%s/v1/retrieval/%s?promptQuery=%s", c.baseURL, url.PathEscape(courseID), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return status.DocumentChunk{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("retrieval: build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status.DocumentChunk{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("retrieval: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return status.DocumentChunk{}, apperr.New(apperr.CollaboratorUnavailable,
			fmt.Errorf("retrieval: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed retrievalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return status.DocumentChunk{}, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("retrieval: decode response: %w", err))
	}

	chunk := status.DocumentChunk{Content: parsed.Content, Score: parsed.Score}
	for _, img := range parsed.Images {
		chunk.Images = append(chunk.Images, status.DocumentImage{ImageBase64: img.Image, Description: img.Description})
	}
	return chunk, nil
}
