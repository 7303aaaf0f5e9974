package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const articlePage = `<html><head>
<meta name="citation_title" content=" Mitochondrial inheritance in yeast. ">
<meta name="citation_journal_title" content="Trends Cell Biol">
<meta name="citation_date" content="2000/06/01">
<meta name="citation_doi" content="10.1016/s0962-8924(00)01770-8">
</head><body><h1 class="heading-title">Ignored heading</h1></body></html>`

func TestParseCitation(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articlePage))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	pub := parseCitation(doc, "10873824")
	if pub.ID != "10873824" {
		t.Fatalf("unexpected id: %s", pub.ID)
	}
	if pub.Title != "Mitochondrial inheritance in yeast." {
		t.Fatalf("unexpected title: %q", pub.Title)
	}
	if pub.Journal != "Trends Cell Biol" || pub.Date != "2000/06/01" {
		t.Fatalf("unexpected journal/date: %q %q", pub.Journal, pub.Date)
	}
	if pub.DOI != "10.1016/s0962-8924(00)01770-8" {
		t.Fatalf("unexpected doi: %q", pub.DOI)
	}
}

func TestParseCitationFallsBackToHeading(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<h1 class="heading-title"> Heading only </h1>`))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if pub := parseCitation(doc, "1"); pub.Title != "Heading only" {
		t.Fatalf("unexpected title: %q", pub.Title)
	}
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/10873824/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", RequestsPerSecond: 100}, srv.Client())

	pub, err := c.Fetch(context.Background(), "10873824")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if pub.Journal != "Trends Cell Biol" {
		t.Fatalf("unexpected journal: %q", pub.Journal)
	}

	if _, err := c.Fetch(context.Background(), "999"); err == nil {
		t.Fatal("expected error for missing article")
	}
	if _, err := c.Fetch(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestClientFetchHonoursContext(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{BaseURL: "http://127.0.0.1:0"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "1"); err == nil {
		t.Fatal("expected cancellation error")
	}
}
