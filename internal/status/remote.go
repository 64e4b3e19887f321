package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// HTTPBroadcaster mirrors every committed Status to an external status
// service speaking the same PATCH /status/{promptId}/update contract this
// process exposes. Like the Redis broadcaster it is a fan-out sink only:
// publish failures are logged and swallowed, and the external service is
// never read back.
type HTTPBroadcaster struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBroadcaster builds a broadcaster against host. Returns nil when
// host is empty so callers can pass the result straight to NewStore.
func NewHTTPBroadcaster(host string, httpClient *http.Client) *HTTPBroadcaster {
	if host == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPBroadcaster{baseURL: strings.TrimRight(host, "/"), httpClient: httpClient}
}

// Publish implements Broadcaster.
func (b *HTTPBroadcaster) Publish(ctx context.Context, promptID string, s Status) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(AsPatch(s))
	if err != nil {
		log.Error().Err(err).Str("promptId", promptID).Msg("status: marshal for remote publish failed")
		return
	}

	u := fmt.Sprintf("%s/status/%s/update", b.baseURL, url.PathEscape(promptID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Str("promptId", promptID).Msg("status: build remote publish request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("promptId", promptID).Msg("status: remote status publish failed")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("code", resp.StatusCode).Str("promptId", promptID).Msg("status: remote status service rejected publish")
	}
}

// AsPatch converts a full Status into the equivalent StatusPatch: every
// field present, every avatar slot keyed by its index. Applying the result
// to an initial Status reproduces s.
func AsPatch(s Status) StatusPatch {
	patch := StatusPatch{
		StepUnderstanding:            &s.StepUnderstanding,
		StepLookup:                   &s.StepLookup,
		StepLectureScriptGeneration:  &s.StepLectureScriptGeneration,
		StepSlideStructureGeneration: &s.StepSlideStructureGeneration,
		StepSlideGeneration:          &s.StepSlideGeneration,
		StepSlidePostprocessing:      &s.StepSlidePostprocessing,
		LectureSummary:               s.LectureSummary,
		SlideStructure:               s.SlideStructure,
	}
	if len(s.StepsAvatarGeneration) > 0 {
		patch.StepsAvatarGeneration = make(map[string]AvatarElementStatus, len(s.StepsAvatarGeneration))
		for i, slot := range s.StepsAvatarGeneration {
			patch.StepsAvatarGeneration[strconv.Itoa(i)] = slot
		}
	}
	return patch
}

// MultiBroadcaster fans a publish out to several sinks in order.
type MultiBroadcaster []Broadcaster

// Publish implements Broadcaster.
func (m MultiBroadcaster) Publish(ctx context.Context, promptID string, s Status) {
	for _, b := range m {
		b.Publish(ctx, promptID, s)
	}
}
