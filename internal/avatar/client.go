// Package avatar wraps the talking-head video renderer: given synthesized
// narration audio and a source face image, returns an MP4 of the avatar
// speaking that audio.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"lecturegen/internal/apperr"
)

// Renderer is the talking-head surface the slide worker depends on.
type Renderer interface {
	Render(ctx context.Context, audio []byte, sourceImage []byte) (io.ReadCloser, error)
}

// Client calls a talking-head renderer's /infer endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL using httpClient for transport. Video
// rendering is the slowest collaborator call in the pipeline; the caller's
// http.Client should carry a generously long read timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

var _ Renderer = (*Client)(nil)

// Render uploads audio and sourceImage as multipart form fields and returns
// the response body streaming MP4 bytes; the caller must Close it.
func (c *Client) Render(ctx context.Context, audio []byte, sourceImage []byte) (io.ReadCloser, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	audioPart, err := w.CreateFormFile("audio", "narration.wav")
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: build multipart audio: %w", err))
	}
	if _, err := audioPart.Write(audio); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: write audio: %w", err))
	}

	sourcePart, err := w.CreateFormFile("source", "source.png")
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: build multipart source: %w", err))
	}
	if _, err := sourcePart.Write(sourceImage); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: write source: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", &body)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: build request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("avatar: request: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, apperr.New(apperr.CollaboratorUnavailable,
			fmt.Errorf("avatar: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody))))
	}
	return resp.Body, nil
}
