// Package news implements the two news ingestion paths the pipeline
// supports: a live poller with watermark-based dedupe, and a historical
// CSV replay source.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/state"
)

// Poller is the live news source: it polls a CryptoPanic-shaped REST API
// on an interval, paginating through every page via the response's `next`
// URL, and checkpoints its watermark ("last" = the maximum published_at
// seen) to the state store so a restart never re-emits a story.
type Poller struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
	store        *state.Store
	logger       *zap.Logger

	watermarkKey string
	last         string
}

// NewPoller builds a live news poller.
func NewPoller(endpoint, apiKey string, pollInterval time.Duration, store *state.Store, logger *zap.Logger) *Poller {
	return &Poller{
		endpoint:     endpoint,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		store:        store,
		logger:       logger,
		watermarkKey: state.WatermarkKey("cryptopanic"),
	}
}

// cryptoPanicPage is the provider's paginated response envelope.
type cryptoPanicPage struct {
	Results []cryptoPanicPost `json:"results"`
	Next    string            `json:"next"`
}

type cryptoPanicPost struct {
	Title       string `json:"title"`
	Source      struct {
		Domain string `json:"domain"`
	} `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// LoadWatermark restores the checkpointed watermark, if any, from a prior
// run, so a restart doesn't re-emit stories already delivered.
func (p *Poller) LoadWatermark(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	var last string
	found, err := p.store.Get(ctx, p.watermarkKey, &last)
	if err != nil {
		return fmt.Errorf("news: failed to load watermark: %w", err)
	}
	if found {
		p.last = last
	}
	return nil
}

// Run polls forever until ctx is canceled, invoking emit for every new
// story, in ascending published_at order, on every cycle.
func (p *Poller) Run(ctx context.Context, emit func(domain.NewsStory) error) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx, emit); err != nil {
			p.logger.Error("poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs one fetch-all-pages-then-emit cycle.
func (p *Poller) poll(ctx context.Context, emit func(domain.NewsStory) error) error {
	stories, err := p.fetchAllPages(ctx)
	if err != nil {
		return err
	}

	sort.Slice(stories, func(i, j int) bool { return stories[i].PublishedAt < stories[j].PublishedAt })

	var fresh []domain.NewsStory
	for _, s := range stories {
		if p.last == "" || s.PublishedAt > p.last {
			fresh = append(fresh, s)
		}
	}

	for _, s := range fresh {
		if err := emit(s); err != nil {
			return fmt.Errorf("news: failed to emit story: %w", err)
		}
	}

	if len(fresh) > 0 {
		p.last = fresh[len(fresh)-1].PublishedAt
		if p.store != nil {
			if err := p.store.Set(ctx, p.watermarkKey, p.last); err != nil {
				p.logger.Warn("failed to checkpoint watermark", zap.Error(err))
			}
		}
	}

	return nil
}

// fetchAllPages follows `next` until exhausted. A transport error retries
// the same URL after a 1s wait; an empty or malformed page ends the
// current cycle with whatever was collected so far.
func (p *Poller) fetchAllPages(ctx context.Context) ([]domain.NewsStory, error) {
	next := p.firstPageURL()
	var all []domain.NewsStory

	for next != "" {
		page, err := p.fetchPage(ctx, next)
		if err != nil {
			p.logger.Warn("transport error fetching news page, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if page == nil {
			break
		}

		for _, post := range page.Results {
			all = append(all, domain.NewStory(domain.OutletCryptoPanic, post.Title, post.Source.Domain, post.URL, post.PublishedAt))
		}

		next = page.Next
	}

	return all, nil
}

// fetchPage performs one HTTP GET. It returns (nil, nil) for an
// empty/malformed body — a cycle-ending condition distinct from a
// transport error, which is returned as a non-nil error.
func (p *Poller) fetchPage(ctx context.Context, pageURL string) (*cryptoPanicPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var page cryptoPanicPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		p.logger.Warn("malformed news page, ending cycle", zap.Error(err))
		return nil, nil
	}

	return &page, nil
}

func (p *Poller) firstPageURL() string {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return p.endpoint
	}
	q := u.Query()
	if p.apiKey != "" {
		q.Set("auth_token", p.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
