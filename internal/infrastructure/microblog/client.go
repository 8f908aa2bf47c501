package microblog

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

const defaultMaxResults = 50

// Client collects posts from a microblog search API (Twitter-compatible
// shape) over bearer-token auth.
type Client struct {
	token string
	http  *http.Client
}

var _ collector.Collector = (*Client)(nil)

// NewClient creates a reusable HTTP client; the token may be empty for
// endpoints that do not require auth.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{token: token, http: httpClient}
}

// Kind identifies the strategy inside the registry.
func (c *Client) Kind() string {
	return "microblog"
}

type searchResponse struct {
	Statuses []struct {
		IDStr     string `json:"id_str"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
		User      struct {
			ScreenName string `json:"screen_name"`
		} `json:"user"`
		Entities struct {
			Hashtags []struct {
				Text string `json:"text"`
			} `json:"hashtags"`
		} `json:"entities"`
		RetweetCount  int `json:"retweet_count"`
		FavoriteCount int `json:"favorite_count"`
	} `json:"statuses"`
}

// Collect searches each configured term and maps the results to raw items.
func (c *Client) Collect(ctx context.Context, req collector.Request) ([]domain.RawItem, error) {
	endpoint := req.Options["endpoint"]
	if endpoint == "" {
		return nil, fmt.Errorf("microblog %s: endpoint option is required", req.SourceName)
	}

	terms := splitList(req.Options["terms"])
	if len(terms) == 0 {
		return nil, fmt.Errorf("microblog %s: terms option is required", req.SourceName)
	}
	maxResults := intOption(req.Options, "maxResults", defaultMaxResults)

	items := make([]domain.RawItem, 0, maxResults)
	seen := map[string]struct{}{}

	for _, term := range terms {
		var resp searchResponse
		if err := c.search(ctx, endpoint, term, maxResults, &resp); err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}

		for _, status := range resp.Statuses {
			if status.IDStr == "" {
				continue
			}
			if _, dup := seen[status.IDStr]; dup {
				continue
			}
			seen[status.IDStr] = struct{}{}

			hashtags := make([]string, 0, len(status.Entities.Hashtags))
			for _, ht := range status.Entities.Hashtags {
				hashtags = append(hashtags, ht.Text)
			}

			fetchedAt := time.Now().UTC()
			if parsed, err := time.Parse(time.RubyDate, status.CreatedAt); err == nil {
				fetchedAt = parsed.UTC()
			}

			items = append(items, domain.RawItem{
				Source:    domain.SourceMicroblog,
				SourceID:  status.IDStr,
				FetchedAt: fetchedAt,
				Text:      status.Text,
				Metadata: map[string]string{
					"author":    status.User.ScreenName,
					"hashtags":  strings.Join(hashtags, ","),
					"term":      term,
					"retweets":  strconv.Itoa(status.RetweetCount),
					"favorites": strconv.Itoa(status.FavoriteCount),
				},
			})
			if len(items) >= maxResults {
				return items, nil
			}
		}
	}

	return items, nil
}

func (c *Client) search(ctx context.Context, endpoint, term string, count int, v any) error {
	query := url.Values{}
	query.Set("q", term)
	query.Set("count", strconv.Itoa(count))
	query.Set("result_type", "popular")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %v: %w", err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s: %w", resp.Status, domain.ErrSourceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
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
