package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/models"
)

// ErrUnresolved means every strategy was exhausted without producing a
// verified binary. Callers treat it as a per-document failure, not a fatal
// one.
var ErrUnresolved = errors.New("document could not be resolved to a direct file")

// Resolver turns indirect filing-host URLs into directly fetchable binaries.
// The filing host hides attachments behind a viewer endpoint whose query
// parameter embeds a backslash-escaped relative path; the real files live
// under predictable attachment directories.
type Resolver struct {
	config *common.Config
	client *httpclient.Client
	logger arbor.ILogger
}

func New(config *common.Config, client *httpclient.Client, logger arbor.ILogger) *Resolver {
	return &Resolver{
		config: config,
		client: client,
		logger: logger,
	}
}

// strategy is one resolution attempt. Strategies run in order and none is
// repeated within a single Resolve call.
type strategy struct {
	name string
	run  func(ctx context.Context) (models.ResolvedResource, bool)
}

// Resolve tries the strategy list against rawURL until one yields a verified
// binary of (or compatible with) the wanted kind. The attempt count is capped
// by configuration; exhaustion returns ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, want models.ContentKind) (models.ResolvedResource, error) {
	strategies := r.buildStrategies(rawURL, want)

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return models.ResolvedResource{}, err
		}

		resource, ok := s.run(ctx)
		if ok {
			r.logger.Debug().
				Str("url", rawURL).
				Str("strategy", s.name).
				Str("final_url", resource.FinalURL).
				Msg("Resolved document")
			return resource, nil
		}

		r.logger.Debug().
			Str("url", rawURL).
			Str("strategy", s.name).
			Msg("Resolution strategy failed")
	}

	return models.ResolvedResource{}, fmt.Errorf("%w: %s", ErrUnresolved, rawURL)
}

// buildStrategies assembles the ordered attempt list for one URL. Attachment
// rewrites come first because they skip the viewer entirely; the browser
// strategy, when enabled, always keeps the last slot.
func (r *Resolver) buildStrategies(rawURL string, want models.ContentKind) []strategy {
	target := rawURL
	var list []strategy

	if attachment, ok := attachmentPath(rawURL); ok {
		for i, tmpl := range r.config.Resolver.AttachmentTemplates {
			candidate := fmt.Sprintf(tmpl, attachment)
			if i == 0 {
				target = candidate
			}
			list = append(list, r.fetchStrategy(fmt.Sprintf("attachment-template-%d", i+1), candidate, r.config.Crawler.UserAgent, want))
		}
	}

	list = append(list, r.fetchStrategy("direct", rawURL, r.config.Crawler.UserAgent, want))

	for i, ua := range r.config.Resolver.AlternateUserAgents {
		list = append(list, r.fetchStrategy(fmt.Sprintf("alternate-ua-%d", i+1), target, ua, want))
	}

	list = append(list, strategy{
		name: "warm-session",
		run: func(ctx context.Context) (models.ResolvedResource, bool) {
			return r.warmSessionFetch(ctx, target, want)
		},
	})

	max := r.config.Resolver.MaxAttempts
	if r.config.Resolver.EnableBrowser {
		browser := strategy{
			name: "browser",
			run: func(ctx context.Context) (models.ResolvedResource, bool) {
				return r.browserFetch(ctx, target, want)
			},
		}
		if len(list) >= max {
			list = list[:max-1]
		}
		list = append(list, browser)
	}
	if len(list) > max {
		list = list[:max]
	}

	return list
}

func (r *Resolver) fetchStrategy(name, target, userAgent string, want models.ContentKind) strategy {
	return strategy{
		name: name,
		run: func(ctx context.Context) (models.ResolvedResource, bool) {
			return r.fetchAndVerify(ctx, target, userAgent, want)
		},
	}
}

// warmSessionFetch visits the filing host's front page and the announcements
// page first so the shared cookie jar carries a session before the attachment
// request.
func (r *Resolver) warmSessionFetch(ctx context.Context, target string, want models.ContentKind) (models.ResolvedResource, bool) {
	home := "https://" + r.config.Sites.FilingHost + "/"
	if _, err := r.client.Fetch(ctx, home); err != nil {
		return models.ResolvedResource{}, false
	}
	if path := r.config.Sites.FilingWarmPath; path != "" {
		// A failed warm page is not fatal, the front-page cookies may do.
		r.client.Fetch(ctx, "https://"+r.config.Sites.FilingHost+path)
	}
	return r.fetchAndVerify(ctx, target, r.config.Crawler.UserAgent, want)
}

// fetchAndVerify fetches target and accepts it only when the payload is a
// recognised binary. An HTML payload where a binary was expected means the
// host served an error or viewer page, so the attempt fails.
func (r *Resolver) fetchAndVerify(ctx context.Context, target, userAgent string, want models.ContentKind) (models.ResolvedResource, bool) {
	result, err := r.client.FetchWithUA(ctx, target, userAgent)
	if err != nil || result.StatusCode != http.StatusOK {
		return models.ResolvedResource{}, false
	}

	kind, ok := detectKind(result.Body, result.Header.Get("Content-Type"), result.FinalURL, want)
	if !ok {
		return models.ResolvedResource{}, false
	}

	return models.ResolvedResource{
		FinalURL: result.FinalURL,
		Kind:     kind,
		Verified: true,
	}, true
}

// attachmentPath extracts the escaped attachment path from a viewer URL. The
// viewer encodes the path with backslash separators, sometimes percent-encoded
// as %5C; the attachment directories mirror the full relative path, so every
// segment is kept.
func attachmentPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	for key, values := range u.Query() {
		if !strings.EqualFold(key, "Pname") {
			continue
		}
		for _, v := range values {
			if v == "" {
				continue
			}
			cleaned := strings.ReplaceAll(v, "%5C", `\`)
			cleaned = strings.ReplaceAll(cleaned, "%5c", `\`)
			cleaned = strings.ReplaceAll(cleaned, `\`, "/")
			cleaned = strings.Trim(cleaned, "/")
			if cleaned != "" {
				return cleaned, true
			}
		}
	}
	return "", false
}

// Binary signatures of the document formats the filing host serves.
var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04} // pptx, docx
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0} // legacy ppt, doc
)

// detectKind accepts a payload when its magic bytes match a known document
// signature or the declared content type names a binary document format. An
// HTML payload always fails, whatever the headers claim. Container formats
// (zip, ole) are ambiguous, so the URL extension and the expected kind break
// the tie.
func detectKind(body []byte, contentType, finalURL string, want models.ContentKind) (models.ContentKind, bool) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] == '<' {
		return models.KindUnknown, false
	}

	switch {
	case bytes.HasPrefix(body, pdfMagic):
		return models.KindPDF, true
	case bytes.HasPrefix(body, zipMagic), bytes.HasPrefix(body, oleMagic):
		if k := models.KindFromURL(finalURL); k != models.KindUnknown && k != models.KindPDF {
			return k, true
		}
		if want != models.KindUnknown && want != models.KindPDF {
			return want, true
		}
		return models.KindDoc, true
	}

	return kindFromContentType(contentType, finalURL, want)
}

// kindFromContentType maps a declared binary document content type to a kind.
// Some filings carry junk bytes ahead of the real signature, so a trustworthy
// header is enough when the body is not HTML.
func kindFromContentType(contentType, finalURL string, want models.ContentKind) (models.ContentKind, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return models.KindPDF, true
	case strings.Contains(ct, "powerpoint"), strings.Contains(ct, "presentationml"):
		return models.KindPPT, true
	case strings.Contains(ct, "msword"), strings.Contains(ct, "wordprocessingml"):
		return models.KindDoc, true
	case strings.Contains(ct, "application/octet-stream"):
		if k := models.KindFromURL(finalURL); k != models.KindUnknown {
			return k, true
		}
		if want != models.KindUnknown {
			return want, true
		}
	}
	return models.KindUnknown, false
}
