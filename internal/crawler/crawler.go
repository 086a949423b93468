// Package crawler fetches a seed URL and a bounded set of same-site pages it
// links to, returning their main text content.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"docchat-platform/internal/extract"
	"docchat-platform/internal/logger"
	"docchat-platform/models"
)

// DefaultMaxPages is the number of linked pages fetched besides the seed.
const DefaultMaxPages = 10

// pageSeparator precedes every page after the seed in the joined content.
const pageSeparator = "\n\n--- PAGE: %s ---\n\n"

var (
	ErrInvalidURL = errors.New("invalid URL")
	ErrNoContent  = errors.New("page returned no HTML content")
	ErrOffSite    = errors.New("redirected off site")
)

const maxRedirects = 10

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config holds crawl settings
type Config struct {
	MaxPages    int
	Timeout     time.Duration
	Parallelism int
	Delay       time.Duration
	UserAgent   string
	// Optional JS rendering for the seed page
	RenderJS      bool
	RenderTimeout time.Duration
	WaitSelector  string
}

// Result holds the pages of a crawl, seed first, then linked pages in the
// order their links appeared.
type Result struct {
	SeedURL string
	Title   string
	Pages   []models.CrawledPage
	Failed  []string
}

// Content joins page texts with a separator naming each linked page.
func (r *Result) Content() string {
	var b strings.Builder
	for i, p := range r.Pages {
		if i > 0 {
			fmt.Fprintf(&b, pageSeparator, p.URL)
		}
		b.WriteString(p.Content)
	}
	return b.String()
}

// Crawler fetches pages with colly.
type Crawler struct {
	cfg       Config
	transport http.RoundTripper
}

func New(cfg Config) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Crawler{
		cfg:       cfg,
		transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	}
}

// ValidateURL checks that rawURL is an absolute http(s) URL. A missing
// scheme defaults to https.
func ValidateURL(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// Crawl fetches the seed page, then up to MaxPages same-site pages linked
// from it. A linked page that fails is logged and skipped; a seed failure
// fails the crawl.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (*Result, error) {
	seedURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	seed, links, err := c.fetchSeed(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	// Links stay on the host the seed finally resolved to.
	siteHost := seedURL.Hostname()
	if u, err := url.Parse(seed.URL); err == nil && u.Hostname() != "" {
		siteHost = u.Hostname()
	}

	result := &Result{
		SeedURL: seed.URL,
		Title:   seed.Title,
		Pages:   []models.CrawledPage{*seed},
	}

	pages, failed := c.fetchLinked(ctx, links, siteHost)
	for _, link := range links {
		if page, ok := pages[link]; ok {
			result.Pages = append(result.Pages, page)
		}
	}
	result.Failed = failed

	logger.Info("Crawl finished",
		"url", seed.URL,
		"links", len(links),
		"pages", len(result.Pages),
		"failed", len(failed),
	)
	return result, nil
}

func (c *Crawler) fetchSeed(ctx context.Context, seedURL *url.URL) (*models.CrawledPage, []string, error) {
	if c.cfg.RenderJS {
		page, links, err := c.renderSeed(ctx, seedURL)
		if err == nil {
			return page, links, nil
		}
		logger.Warn("JS render failed, falling back to plain fetch", "url", seedURL.String(), "error", err)
	}

	var (
		page     *models.CrawledPage
		links    []string
		fetchErr error
	)
	col := c.newCollector(ctx, false, "")
	col.OnHTML("html", func(e *colly.HTMLElement) {
		p := pageFromSelection(e.Request.URL.String(), e.DOM, e.Response.StatusCode)
		page = &p
		links = collectLinks(e.Request.URL, e.DOM, e.Request.URL.Hostname(), c.cfg.MaxPages)
	})
	col.OnError(func(r *colly.Response, err error) {
		fetchErr = describeFetchError(r, err)
	})

	if err := col.Visit(seedURL.String()); err != nil && fetchErr == nil {
		fetchErr = err
	}
	col.Wait()

	if fetchErr != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", seedURL, fetchErr)
	}
	if page == nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", seedURL, ErrNoContent)
	}
	return page, links, nil
}

func (c *Crawler) renderSeed(ctx context.Context, seedURL *url.URL) (*models.CrawledPage, []string, error) {
	timeout := c.cfg.RenderTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	html, err := renderPageHTML(ctx, seedURL.String(), timeout, c.cfg.WaitSelector)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}
	page := pageFromSelection(seedURL.String(), doc.Selection, http.StatusOK)
	return &page, collectLinks(seedURL, doc.Selection, seedURL.Hostname(), c.cfg.MaxPages), nil
}

// fetchLinked fetches links concurrently. Redirects that leave siteHost are
// refused and the page counts as failed.
func (c *Crawler) fetchLinked(ctx context.Context, links []string, siteHost string) (map[string]models.CrawledPage, []string) {
	var (
		mu     sync.Mutex
		pages  = make(map[string]models.CrawledPage, len(links))
		failed []string
	)
	if len(links) == 0 {
		return pages, nil
	}

	col := c.newCollector(ctx, true, siteHost)
	col.OnHTML("html", func(e *colly.HTMLElement) {
		link := e.Request.Ctx.Get("link")
		if !sameSite(e.Request.URL, siteHost) {
			logger.Warn("Skipping off-site page", "url", link, "landed", e.Request.URL.String())
			mu.Lock()
			failed = append(failed, link)
			mu.Unlock()
			return
		}
		page := pageFromSelection(link, e.DOM, e.Response.StatusCode)
		mu.Lock()
		pages[link] = page
		mu.Unlock()
	})
	col.OnError(func(r *colly.Response, err error) {
		link := r.Request.Ctx.Get("link")
		logger.Warn("Skipping page", "url", link, "error", describeFetchError(r, err))
		mu.Lock()
		failed = append(failed, link)
		mu.Unlock()
	})

	for _, link := range links {
		reqCtx := colly.NewContext()
		reqCtx.Put("link", link)
		if err := col.Request(http.MethodGet, link, nil, reqCtx, nil); err != nil {
			logger.Warn("Skipping page", "url", link, "error", err)
			mu.Lock()
			failed = append(failed, link)
			mu.Unlock()
		}
	}
	col.Wait()

	return pages, failed
}

// newCollector builds a collector. With a non-empty siteHost, redirects
// are only followed while they stay on that site.
func (c *Crawler) newCollector(ctx context.Context, async bool, siteHost string) *colly.Collector {
	col := colly.NewCollector(
		colly.Async(async),
		colly.StdlibContext(ctx),
	)
	col.WithTransport(c.transport)
	col.SetRequestTimeout(c.cfg.Timeout)
	col.UserAgent = c.cfg.UserAgent

	if err := col.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Parallelism,
		Delay:       c.cfg.Delay,
	}); err != nil {
		logger.Warn("Failed to apply crawl limit rule", "error", err)
	}

	col.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if siteHost != "" && !sameSite(req.URL, siteHost) {
			return fmt.Errorf("%w: %s", ErrOffSite, req.URL)
		}
		return nil
	})

	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		// colly decodes gzip itself; brotli is handled in decodeBody.
		r.Headers.Set("Accept-Encoding", "gzip, br")
	})
	col.OnResponse(decodeBody)
	return col
}

// decodeBody undoes brotli compression and converts the body to UTF-8.
func decodeBody(r *colly.Response) {
	if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
		if decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(r.Body))); err == nil {
			r.Body = decompressed
		}
	}

	if len(r.Body) == 0 {
		return
	}
	utf8Reader, err := charset.NewReader(bytes.NewReader(r.Body), r.Headers.Get("Content-Type"))
	if err != nil {
		return
	}
	if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
		r.Body = decoded
	}
}

func describeFetchError(r *colly.Response, err error) error {
	if r == nil {
		return err
	}
	switch {
	case r.StatusCode == http.StatusForbidden:
		return fmt.Errorf("access forbidden (403): %w", err)
	case r.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited (429): %w", err)
	case r.StatusCode >= 400:
		return fmt.Errorf("HTTP error (%d): %w", r.StatusCode, err)
	}
	return err
}

func pageFromSelection(pageURL string, sel *goquery.Selection, status int) models.CrawledPage {
	content := extract.MainContent(sel)
	return models.CrawledPage{
		URL:        pageURL,
		Title:      strings.TrimSpace(sel.Find("title").First().Text()),
		Content:    content,
		CrawledAt:  time.Now(),
		StatusCode: status,
		Size:       int64(len(content)),
		WordCount:  len(strings.Fields(content)),
	}
}
