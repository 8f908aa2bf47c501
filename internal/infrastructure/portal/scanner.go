package portal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsForge/internal/collector"
	"NewsForge/internal/domain"
)

const defaultMaxArticles = 10

// Scanner crawls news-portal category pages and extracts full articles.
// Selectors default to the G1 layout and can be overridden per source via
// options.
type Scanner struct {
	client *http.Client
}

var _ collector.Collector = (*Scanner)(nil)

// NewScanner wires an HTTP client; a nil client gets a 20s-timeout default.
func NewScanner(client *http.Client) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Scanner{client: client}
}

// Kind identifies the strategy inside the registry.
func (s *Scanner) Kind() string {
	return "portal"
}

// Collect walks each configured category page, follows up to maxArticles
// links, and returns one RawItem per article.
func (s *Scanner) Collect(ctx context.Context, req collector.Request) ([]domain.RawItem, error) {
	baseURL := req.Options["baseUrl"]
	if baseURL == "" {
		return nil, fmt.Errorf("portal %s: baseUrl option is required", req.SourceName)
	}

	categories := splitList(req.Options["categories"])
	if len(categories) == 0 {
		categories = []string{""}
	}
	maxArticles := intOption(req.Options, "maxArticles", defaultMaxArticles)
	linkSelector := option(req.Options, "linkSelector", "a.feed-post-link")

	items := make([]domain.RawItem, 0, maxArticles*len(categories))
	seen := map[string]struct{}{}

	for _, category := range categories {
		pageURL := strings.TrimSuffix(baseURL, "/") + "/" + category + "/"
		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}

		links := extractLinks(doc, linkSelector, maxArticles)
		for _, link := range links {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}

			item, err := s.fetchArticle(ctx, link, category)
			if err != nil {
				// One unreadable article page does not fail the source.
				continue
			}
			items = append(items, item)
		}
	}

	return items, nil
}

func (s *Scanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsForge/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %v: %w", err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal returned %s: %w", resp.Status, domain.ErrSourceUnavailable)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (s *Scanner) fetchArticle(ctx context.Context, link, category string) (domain.RawItem, error) {
	doc, err := s.fetchDocument(ctx, link)
	if err != nil {
		return domain.RawItem{}, err
	}

	title := strings.TrimSpace(doc.Find("h1.content-head__title").First().Text())
	subtitle := strings.TrimSpace(doc.Find("h2.content-head__subtitle").First().Text())
	author := strings.TrimSpace(doc.Find("p.content-publication-data__from").First().Text())

	var paragraphs []string
	doc.Find("div.content-text p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	body := strings.Join(paragraphs, " ")
	text := strings.TrimSpace(title + ". " + subtitle + " " + body)

	metadata := map[string]string{
		"url":      link,
		"title":    title,
		"category": category,
	}
	if author != "" {
		metadata["author"] = author
	}

	return domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  link,
		FetchedAt: time.Now().UTC(),
		Text:      text,
		Metadata:  metadata,
	}, nil
}

func extractLinks(doc *goquery.Document, selector string, max int) []string {
	var links []string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok && strings.HasPrefix(href, "http") {
			links = append(links, href)
		}
		return len(links) < max
	})
	return links
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

func option(options map[string]string, key, fallback string) string {
	if v, ok := options[key]; ok && v != "" {
		return v
	}
	return fallback
}

func intOption(options map[string]string, key string, fallback int) int {
	if v, ok := options[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
