package mapsweb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"place-discovery/utils"
)

// Browser renders pages in a shared headless Chrome instance.
type Browser struct {
	chromeBin string
	logger    *utils.Logger
	retry     *utils.RetryConfig
	settle    time.Duration

	mu          sync.Mutex
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelRoot  context.CancelFunc
}

// NewBrowser prepares a Browser. Chrome is started lazily on first use.
func NewBrowser(chromeBin string, logger *utils.Logger, retry *utils.RetryConfig) *Browser {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &Browser{chromeBin: chromeBin, logger: logger, retry: retry, settle: 4 * time.Second}
}

func (b *Browser) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocCtx != nil {
		return b.allocCtx, nil
	}

	chromeBin := b.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	b.logger.Info("[maps_web] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "es-AR"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	if err := chromedp.Run(rootCtx); err != nil {
		cancelRoot()
		cancelAlloc()
		return nil, fmt.Errorf("maps_web: start browser: %w", err)
	}

	b.allocCtx, b.cancelAlloc, b.cancelRoot = rootCtx, cancelAlloc, cancelRoot
	return b.allocCtx, nil
}

// FetchFeed loads pageURL, scrolls the results feed and returns its HTML.
func (b *Browser) FetchFeed(ctx context.Context, pageURL string) (string, error) {
	root, err := b.start()
	if err != nil {
		return "", err
	}

	var html string
	err = b.retry.Do(ctx, "maps_web-feed", func() error {
		tabCtx, cancel := chromedp.NewContext(root)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 45*time.Second)
		defer cancelTimeout()

		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady(`div[role="feed"]`, chromedp.ByQuery),
			chromedp.Sleep(b.settle),
			chromedp.Evaluate(`(function() {
				var feed = document.querySelector('div[role="feed"]');
				if (feed) feed.scrollTo(0, feed.scrollHeight);
				return true;
			})()`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML(`div[role="feed"]`, &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp feed extract: %w", err)
		}
		return nil
	})
	return html, err
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelRoot != nil {
		b.cancelRoot()
		b.cancelAlloc()
		b.allocCtx = nil
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
