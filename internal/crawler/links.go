package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Paths that never hold page content worth indexing.
var excludedPatterns = []string{
	"/wp-json/", "/wp-admin/", "/wp-includes/", "/feed/", "/rss/", "/atom/",
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".css", ".js", ".xml", ".zip",
}

// collectLinks returns up to limit distinct same-site links in document
// order, excluding the page itself.
func collectLinks(base *url.URL, sel *goquery.Selection, seedHost string, limit int) []string {
	self, _ := normalizeURL(base.String())
	seen := map[string]bool{self: true}
	var links []string

	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(links) >= limit {
			return false
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		hrefLower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(hrefLower, "javascript:") ||
			strings.HasPrefix(hrefLower, "mailto:") ||
			strings.HasPrefix(hrefLower, "tel:") {
			return true
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		normalized, err := normalizeURL(resolved.String())
		if err != nil || seen[normalized] {
			return true
		}
		seen[normalized] = true

		if isURLAllowed(normalized, seedHost) {
			links = append(links, normalized)
		}
		return true
	})
	return links
}

// normalizeURL normalizes a URL to a canonical form for duplicate detection
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if path := parsed.Path; path == "" {
		parsed.Path = "/"
	} else if path != "/" {
		parsed.Path = strings.TrimSuffix(path, "/")
	}

	if (parsed.Scheme == "http" && parsed.Port() == "80") || (parsed.Scheme == "https" && parsed.Port() == "443") {
		parsed.Host = parsed.Hostname()
	}

	return parsed.String(), nil
}

// isURLAllowed accepts http(s) URLs on the seed host or one of its
// subdomains. A leading "www." is ignored on both sides.
func isURLAllowed(urlStr, seedHost string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil || !sameSite(parsed, seedHost) {
		return false
	}

	pathLower := strings.ToLower(parsed.Path)
	for _, pattern := range excludedPatterns {
		if strings.Contains(pathLower, pattern) {
			return false
		}
	}
	return true
}

// sameSite reports whether u is an http(s) URL on seedHost or one of its
// subdomains, ignoring a leading "www.".
func sameSite(u *url.URL, seedHost string) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	domain := strings.TrimPrefix(strings.ToLower(seedHost), "www.")
	return host != "" && (host == domain || strings.HasSuffix(host, "."+domain))
}
