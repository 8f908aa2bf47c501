package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsForge/internal/collector"
	"NewsForge/internal/domain"
)

const articleHTML = `<html><body>
<h1 class="content-head__title">Reforma aprovada no congresso</h1>
<h2 class="content-head__subtitle">Texto segue para sanção presidencial</h2>
<p class="content-publication-data__from">Por Redação</p>
<div class="content-text">
  <p>O congresso aprovou a reforma na madrugada desta quarta.</p>
  <p>O texto segue agora para a sanção presidencial.</p>
</div>
</body></html>`

func newPortalServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/politica/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body>
<a class="feed-post-link" href="%s/noticia/reforma">Reforma aprovada</a>
<a class="feed-post-link" href="/relativa">link relativo ignorado</a>
</body></html>`, srv.URL)
	})
	mux.HandleFunc("/noticia/reforma", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articleHTML)
	})

	return srv
}

func TestCollectExtractsArticles(t *testing.T) {
	t.Parallel()

	srv := newPortalServer(t)
	scanner := NewScanner(srv.Client())

	items, err := scanner.Collect(context.Background(), collector.Request{
		SourceName: "g1",
		Options: map[string]string{
			"baseUrl":     srv.URL,
			"categories":  "politica",
			"maxArticles": "5",
		},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Source != domain.SourcePortal {
		t.Errorf("source = %q", item.Source)
	}
	if item.SourceID != srv.URL+"/noticia/reforma" {
		t.Errorf("source id = %q", item.SourceID)
	}
	if !strings.Contains(item.Text, "Reforma aprovada no congresso") {
		t.Errorf("text missing title: %q", item.Text)
	}
	if !strings.Contains(item.Text, "sanção presidencial") {
		t.Errorf("text missing body: %q", item.Text)
	}
	if item.Metadata["category"] != "politica" {
		t.Errorf("category = %q", item.Metadata["category"])
	}
	if item.Metadata["author"] != "Por Redação" {
		t.Errorf("author = %q", item.Metadata["author"])
	}
	if item.FetchedAt.IsZero() {
		t.Error("fetched_at not set")
	}
}

func TestCollectRequiresBaseURL(t *testing.T) {
	t.Parallel()

	scanner := NewScanner(nil)
	_, err := scanner.Collect(context.Background(), collector.Request{SourceName: "g1"})
	if err == nil || !strings.Contains(err.Error(), "baseUrl") {
		t.Fatalf("expected baseUrl error, got %v", err)
	}
}

func TestCollectReportsUnavailablePortal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scanner := NewScanner(srv.Client())
	_, err := scanner.Collect(context.Background(), collector.Request{
		SourceName: "g1",
		Options:    map[string]string{"baseUrl": srv.URL, "categories": "politica"},
	})
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestCollectSkipsUnreadableArticles(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/politica/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<a class="feed-post-link" href="%s/quebrada">x</a>`, srv.URL)
	})
	mux.HandleFunc("/quebrada", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	scanner := NewScanner(srv.Client())
	items, err := scanner.Collect(context.Background(), collector.Request{
		SourceName: "g1",
		Options:    map[string]string{"baseUrl": srv.URL, "categories": "politica"},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
