package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer returns a RenderFunc driving a headless Chrome. Chrome or Chromium must be installed.
func ChromeRenderer(timeout time.Duration) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
			append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)...,
		)
		defer cancelAlloc()

		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		defer cancelBrowser()

		browserCtx, cancel := context.WithTimeout(browserCtx, timeout)
		defer cancel()

		var html string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body"),
			// client-side boards fill the description after load
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html),
		)
		if err != nil {
			return "", fmt.Errorf("browser rendering failed: %w", err)
		}
		return html, nil
	}
}
