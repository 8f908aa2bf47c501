package photofeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsForge/internal/collector"
	"NewsForge/internal/domain"
)

const feedPayload = `{
  "items": [
    {
      "id": "p1",
      "caption": "Festival gastronômico lota o centro histórico neste fim de semana",
      "taken_at": 1779356100,
      "media_url": "https://cdn.example.org/p1.jpg",
      "like_count": 1200,
      "comment_count": 45,
      "hashtags": ["gastronomia", "festival"]
    },
    {
      "id": "p2",
      "caption": "",
      "taken_at": 1779356200,
      "media_url": "https://cdn.example.org/p2.jpg"
    },
    {
      "id": "",
      "caption": "post sem id descartado"
    }
  ]
}`

func TestCollectMapsFeedPosts(t *testing.T) {
	t.Parallel()

	var gotProfile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfile = r.URL.Query().Get("profile")
		fmt.Fprint(w, feedPayload)
	}))
	defer srv.Close()

	scraper := NewScraper(srv.Client())
	items, err := scraper.Collect(context.Background(), collector.Request{
		SourceName: "instagram",
		Options: map[string]string{
			"endpoint": srv.URL,
			"profiles": "g1",
			"maxPosts": "10",
		},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if gotProfile != "g1" {
		t.Errorf("profile query = %q", gotProfile)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (id-less post dropped), got %d", len(items))
	}

	first := items[0]
	if first.Source != domain.SourcePhotoFeed || first.SourceID != "g1/p1" {
		t.Errorf("identity = %s:%s", first.Source, first.SourceID)
	}
	if first.Metadata["hashtags"] != "gastronomia,festival" {
		t.Errorf("hashtags = %q", first.Metadata["hashtags"])
	}
	if first.Metadata["likes"] != "1200" {
		t.Errorf("likes = %q", first.Metadata["likes"])
	}
	if first.FetchedAt.Unix() != 1779356100 {
		t.Errorf("fetched_at = %v", first.FetchedAt)
	}

	// Media-only posts stay collectible with empty text.
	if items[1].Text != "" || items[1].SourceID != "g1/p2" {
		t.Errorf("media-only post mapped wrong: %+v", items[1])
	}
}

func TestCollectDefaultsMissingTimestamp(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"items": [{"id": "p3", "caption": "post sem taken_at"}]}`)
	}))
	defer srv.Close()

	scraper := NewScraper(srv.Client())
	items, err := scraper.Collect(context.Background(), collector.Request{
		SourceName: "instagram",
		Options:    map[string]string{"endpoint": srv.URL, "profiles": "g1"},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].FetchedAt.Before(time.Now().Add(-time.Minute)) {
		t.Fatalf("missing taken_at must default to now, got %v", items[0].FetchedAt)
	}
}

func TestCollectRequiresEndpointAndProfiles(t *testing.T) {
	t.Parallel()

	scraper := NewScraper(nil)

	if _, err := scraper.Collect(context.Background(), collector.Request{SourceName: "instagram"}); err == nil {
		t.Error("expected an error for the missing endpoint")
	}

	_, err := scraper.Collect(context.Background(), collector.Request{
		SourceName: "instagram",
		Options:    map[string]string{"endpoint": "http://localhost:1"},
	})
	if err == nil {
		t.Error("expected an error for the missing profiles")
	}
}

func TestCollectReportsUnavailableFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	scraper := NewScraper(srv.Client())
	_, err := scraper.Collect(context.Background(), collector.Request{
		SourceName: "instagram",
		Options:    map[string]string{"endpoint": srv.URL, "profiles": "g1"},
	})
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
