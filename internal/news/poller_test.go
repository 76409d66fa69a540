package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"cryptopulse/internal/domain"
)

func TestPollerFollowsPaginationAndFiltersWatermark(t *testing.T) {
	var page2URL string
	mux := http.NewServeMux()
	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cryptoPanicPage{
			Results: []cryptoPanicPost{{Title: "older", URL: "u1", PublishedAt: "2024-01-01T00:00:00Z"}},
			Next:    page2URL,
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cryptoPanicPage{
			Results: []cryptoPanicPost{{Title: "newer", URL: "u2", PublishedAt: "2024-01-02T00:00:00Z"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	page2URL = srv.URL + "/page2"

	p := NewPoller(srv.URL+"/page1", "", time.Hour, nil, zap.NewNop())
	p.last = "2024-01-01T00:00:00Z" // simulate a prior cycle having seen the "older" story

	var emitted []domain.NewsStory
	err := p.poll(context.Background(), func(s domain.NewsStory) error {
		emitted = append(emitted, s)
		return nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}

	if len(emitted) != 1 || emitted[0].Title != "newer" {
		t.Fatalf("expected only the fresher story past the watermark, got %+v", emitted)
	}
	if p.last != "2024-01-02T00:00:00Z" {
		t.Errorf("expected watermark advanced to newest published_at, got %q", p.last)
	}
}

func TestPollerMalformedPageEndsCycleWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, "", time.Hour, nil, zap.NewNop())

	var emitted int
	err := p.poll(context.Background(), func(s domain.NewsStory) error {
		emitted++
		return nil
	})
	if err != nil {
		t.Fatalf("expected malformed page to end the cycle cleanly, got error: %v", err)
	}
	if emitted != 0 {
		t.Errorf("expected no stories emitted, got %d", emitted)
	}
}
