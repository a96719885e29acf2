package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nijaru/yt-enrich/errors"
)

const sampleVTT = "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nHello world\n"

func newTestFetcher(handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewFetcher(Config{BaseURL: server.URL}), server
}

func TestFetchParsesVTT(t *testing.T) {
	var gotPath string
	fetcher, server := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleVTT))
	})
	defer server.Close()

	result, err := fetcher.Fetch(context.Background(), "pb-1", "tr-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Text != "Hello world" {
		t.Errorf("text = %q, want %q", result.Text, "Hello world")
	}
	if result.Raw != sampleVTT {
		t.Errorf("raw = %q", result.Raw)
	}
	if gotPath != "/pb-1/text/tr-1.vtt" {
		t.Errorf("request path = %q", gotPath)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	fetcher, server := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "track still encoding", http.StatusNotFound)
	})
	defer server.Close()

	_, err := fetcher.Fetch(context.Background(), "pb-1", "tr-1")
	if !errors.Is(err, errors.KindFetchError) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if errors.IsTerminal(err) {
		t.Error("fetch errors must stay retryable")
	}
}

func TestFetchEmptyBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t\n"},
		{"header only", "WEBVTT\n\n"},
		{"timestamps only", "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, server := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			defer server.Close()

			_, err := fetcher.Fetch(context.Background(), "pb-1", "tr-1")
			if !errors.Is(err, errors.KindEmptyTranscript) {
				t.Fatalf("expected EmptyTranscript, got %v", err)
			}
		})
	}
}
