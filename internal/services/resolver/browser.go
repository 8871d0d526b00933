package resolver

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/colligo/internal/models"
)

// browserFetch is the last-resort strategy. It drives a headless browser
// through the filing host's front page so the anti-automation layer issues
// real session cookies, copies those cookies into the shared jar, and then
// fetches the target over the plain client.
func (r *Resolver) browserFetch(ctx context.Context, target string, want models.ContentKind) (models.ResolvedResource, bool) {
	home := "https://" + r.config.Sites.FilingHost + "/"

	browserCtx, cancel := context.WithTimeout(ctx, r.config.Resolver.BrowserTimeout)
	defer cancel()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.config.Crawler.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(browserCtx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	var cookies []*network.Cookie
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(home),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{home, target}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("target", target).
			Msg("Browser session warming failed")
		return models.ResolvedResource{}, false
	}

	r.seedJar(home, cookies)
	return r.fetchAndVerify(ctx, target, r.config.Crawler.UserAgent, want)
}

// seedJar copies browser cookies into the plain client's jar so subsequent
// requests ride the warmed session.
func (r *Resolver) seedJar(siteURL string, cookies []*network.Cookie) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return
	}

	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
			Secure: c.Secure,
		})
	}
	r.client.Jar().SetCookies(u, jarCookies)
}
