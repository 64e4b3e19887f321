// Package tts wraps the text-to-speech collaborator: given a reference
// voice sample and slide narration text, returns synthesized WAV audio.
package tts

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

// Synthesizer is the TTS surface the slide worker depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceFile []byte, slideText string) (io.ReadCloser, error)
}

// Client calls a TTS service's /v1/audio/generate endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL using httpClient for transport. The
// caller's http.Client should carry a long read timeout: synthesis can take
// up to several minutes for a full slide narration.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

var _ Synthesizer = (*Client)(nil)

// Synthesize uploads voiceFile and slideText as multipart form fields and
// returns the response body streaming WAV bytes; the caller must Close it.
func (c *Client) Synthesize(ctx context.Context, voiceFile []byte, slideText string) (io.ReadCloser, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("voice_file", "voice.mp3")
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: build multipart voice_file: %w", err))
	}
	if _, err := fw.Write(voiceFile); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: write voice_file: %w", err))
	}
	if err := w.WriteField("slide_text", slideText); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: write slide_text field: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/generate", &body)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: build request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("tts: request: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, apperr.New(apperr.CollaboratorUnavailable,
			fmt.Errorf("tts: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody))))
	}
	return resp.Body, nil
}
