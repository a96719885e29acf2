// Package transcript retrieves subtitle tracks from the streaming host and
// turns them into plain text.
package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/vtt"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL     = "https://stream.mux.com"
	defaultHTTPTimeout = 30 * time.Second

	// Error bodies can be large; keep enough for diagnostics.
	maxErrorBodyBytes = 4 * 1024
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Result carries both the raw WebVTT body (kept for archival) and the
// parsed plain text.
type Result struct {
	Raw  string
	Text string
}

type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewFetcher(cfg Config) *Fetcher {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logrus.StandardLogger(),
	}
}

// Fetch downloads the WebVTT track for validated host identifiers and
// returns the raw body together with the parsed plain-text transcript.
func (f *Fetcher) Fetch(ctx context.Context, playbackID, trackID string) (*Result, error) {
	const op = "TranscriptFetcher.Fetch"

	trackURL := fmt.Sprintf("%s/%s/text/%s.vtt", f.baseURL, playbackID, trackID)
	logger := f.logger.WithFields(logrus.Fields{
		"playback_id": playbackID,
		"track_id":    trackID,
		"url":         trackURL,
	})
	logger.Info("Fetching transcript")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to build transcript request")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.FetchError(op, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Transcript fetch failed")
		return nil, errors.FetchError(op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FetchError(op, resp.StatusCode, err.Error())
	}

	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, errors.EmptyTranscript(op, "Transcript is empty")
	}

	parsed := vtt.ExtractText(text)
	if parsed == "" {
		return nil, errors.EmptyTranscript(op, "No transcript text found after parsing VTT")
	}

	logger.WithFields(logrus.Fields{
		"raw_length":    len(text),
		"parsed_length": len(parsed),
	}).Info("Parsed transcript")

	return &Result{Raw: text, Text: parsed}, nil
}
