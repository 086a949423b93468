package crawler

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// renderPageHTML loads a page in headless Chrome and returns the DOM after
// scripts have run.
func renderPageHTML(parent context.Context, urlStr string, timeout time.Duration, waitSelector string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(urlStr)); err != nil {
		return "", err
	}

	// Soft waits: a page that never settles is still read as-is.
	readyCtx, cancelReady := context.WithTimeout(browserCtx, 10*time.Second)
	_ = chromedp.Run(readyCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	cancelReady()

	if waitSelector != "" {
		waitCtx, cancelWait := context.WithTimeout(browserCtx, 15*time.Second)
		_ = chromedp.Run(waitCtx, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
		cancelWait()
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}
