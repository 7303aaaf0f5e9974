package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/ports"
)

const (
	// DefaultBaseURL serves one article page per PubMed id.
	DefaultBaseURL = "https://pubmed.ncbi.nlm.nih.gov"
	// NCBI asks anonymous clients to stay at or below three requests per second.
	DefaultRequestsPerSecond = 3.0
)

// Config controls the article-page client.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	TimeoutSeconds    int
}

// Client reads citation meta tags from PubMed article pages.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

var _ ports.PublicationFetcher = (*Client)(nil)

// NewClient wires an HTTP client; nil gets a client with the configured timeout.
func NewClient(cfg Config, client *http.Client) *Client {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Client{
		client:  client,
		baseURL: base,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Fetch downloads the article page of pubID and extracts its citation metadata.
func (c *Client) Fetch(ctx context.Context, pubID string) (domain.Publication, error) {
	pubID = strings.TrimSpace(pubID)
	if pubID == "" {
		return domain.Publication{}, fmt.Errorf("pubmed: empty publication id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Publication{}, fmt.Errorf("pubmed: rate limit: %w", err)
	}

	doc, err := c.fetchDocument(ctx, c.baseURL+"/"+pubID+"/")
	if err != nil {
		return domain.Publication{}, fmt.Errorf("pubmed %s: %w", pubID, err)
	}
	return parseCitation(doc, pubID), nil
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "OboGraphLoader/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func parseCitation(doc *goquery.Document, pubID string) domain.Publication {
	pub := domain.Publication{
		ID:      pubID,
		Title:   metaContent(doc, "citation_title"),
		Journal: metaContent(doc, "citation_journal_title"),
		Date:    metaContent(doc, "citation_date"),
		DOI:     metaContent(doc, "citation_doi"),
	}
	if pub.Title == "" {
		pub.Title = strings.TrimSpace(doc.Find("h1.heading-title").First().Text())
	}
	return pub
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
