package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// companyPage is a discovered profile page, kept together with its body so
// the pipeline does not fetch it twice.
type companyPage struct {
	DisplayName string
	ProfileURL  string
	Body        []byte
}

// findCompany locates a company's profile page. Direct URL probes are tried
// first; unknown symbols fall back to the site's search page, where the
// first company result wins.
func (s *Service) findCompany(ctx context.Context, symbol string) (*companyPage, error) {
	base := strings.TrimRight(s.config.Sites.ProfileBaseURL, "/")

	probes := []string{
		fmt.Sprintf("%s/company/%s/", base, strings.ToUpper(symbol)),
		fmt.Sprintf("%s/company/%s/", base, strings.ToLower(symbol)),
		fmt.Sprintf("%s/company/%s/consolidated/", base, strings.ToUpper(symbol)),
	}
	for _, probe := range probes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, ok := s.probeProfile(ctx, probe)
		if ok {
			return page, nil
		}
	}

	return s.searchCompany(ctx, base, symbol)
}

// probeProfile fetches a candidate profile URL and accepts it when the page
// carries a company heading.
func (s *Service) probeProfile(ctx context.Context, probeURL string) (*companyPage, bool) {
	result, err := s.client.Fetch(ctx, probeURL)
	if err != nil || result.StatusCode != http.StatusOK {
		return nil, false
	}

	name, ok := profileHeading(result.Body)
	if !ok {
		return nil, false
	}

	return &companyPage{
		DisplayName: name,
		ProfileURL:  result.FinalURL,
		Body:        result.Body,
	}, true
}

// searchCompany queries the site search and follows the first company link.
func (s *Service) searchCompany(ctx context.Context, base, symbol string) (*companyPage, error) {
	searchURL := fmt.Sprintf("%s/search/?q=%s", base, url.QueryEscape(symbol))
	result, err := s.client.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("company search failed for %s: %w", symbol, err)
	}
	if result.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("company search returned %d for %s", result.StatusCode, symbol)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results for %s: %w", symbol, err)
	}

	var profileURL string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "/company/") {
			return true
		}
		profileURL = base + href
		return false
	})
	if profileURL == "" {
		return nil, fmt.Errorf("no profile found for symbol %s", symbol)
	}

	page, ok := s.probeProfile(ctx, profileURL)
	if !ok {
		return nil, fmt.Errorf("profile page for %s did not load", symbol)
	}
	return page, nil
}

// profileHeading extracts the company display name from the page's first
// heading. Pages without one are error or interstitial pages.
func profileHeading(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	name := strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
	if name == "" {
		return "", false
	}
	return name, true
}
