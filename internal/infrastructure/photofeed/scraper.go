package photofeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsForge/internal/collector"
	"NewsForge/internal/domain"
)

const defaultMaxPosts = 20

// Scraper collects posts from a photo-sharing feed endpoint that exposes a
// per-profile JSON listing. Media-only posts yield items with empty text.
type Scraper struct {
	http *http.Client
}

var _ collector.Collector = (*Scraper)(nil)

// NewScraper wires an HTTP client; a nil client gets a 15s-timeout default.
func NewScraper(httpClient *http.Client) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Scraper{http: httpClient}
}

// Kind identifies the strategy inside the registry.
func (s *Scraper) Kind() string {
	return "photo-feed"
}

type feedResponse struct {
	Items []struct {
		ID           string   `json:"id"`
		Caption      string   `json:"caption"`
		TakenAt      int64    `json:"taken_at"`
		MediaURL     string   `json:"media_url"`
		LikeCount    int      `json:"like_count"`
		CommentCount int      `json:"comment_count"`
		Hashtags     []string `json:"hashtags"`
	} `json:"items"`
}

// Collect fetches the configured profiles and maps their posts to raw items.
func (s *Scraper) Collect(ctx context.Context, req collector.Request) ([]domain.RawItem, error) {
	endpoint := req.Options["endpoint"]
	if endpoint == "" {
		return nil, fmt.Errorf("photo-feed %s: endpoint option is required", req.SourceName)
	}

	profiles := splitList(req.Options["profiles"])
	if len(profiles) == 0 {
		return nil, fmt.Errorf("photo-feed %s: profiles option is required", req.SourceName)
	}
	maxPosts := intOption(req.Options, "maxPosts", defaultMaxPosts)

	var items []domain.RawItem
	for _, profile := range profiles {
		feed, err := s.fetchProfile(ctx, endpoint, profile, maxPosts)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile, err)
		}

		for _, post := range feed.Items {
			if post.ID == "" {
				continue
			}
			fetchedAt := time.Now().UTC()
			if post.TakenAt > 0 {
				fetchedAt = time.Unix(post.TakenAt, 0).UTC()
			}
			items = append(items, domain.RawItem{
				Source:    domain.SourcePhotoFeed,
				SourceID:  profile + "/" + post.ID,
				FetchedAt: fetchedAt,
				Text:      post.Caption,
				Metadata: map[string]string{
					"author":   profile,
					"media":    post.MediaURL,
					"hashtags": strings.Join(post.Hashtags, ","),
					"likes":    strconv.Itoa(post.LikeCount),
					"comments": strconv.Itoa(post.CommentCount),
				},
			})
		}
	}

	return items, nil
}

func (s *Scraper) fetchProfile(ctx context.Context, endpoint, profile string, maxPosts int) (*feedResponse, error) {
	query := url.Values{}
	query.Set("profile", profile)
	query.Set("limit", strconv.Itoa(maxPosts))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsForge/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %v: %w", err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s: %w", resp.Status, domain.ErrSourceUnavailable)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &feed, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intOption(options map[string]string, key string, fallback int) int {
	if v, ok := options[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
