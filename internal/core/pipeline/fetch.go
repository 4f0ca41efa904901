package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"recipe-importer/internal/pkg/common"
)

// Fetcher downloads full pages when the streaming sniff missed. Retries are
// limited to 429/5xx responses and transport errors, with exponential
// backoff (resty adds jitter) capped by maxBackoff.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a page fetcher. retries is the number of retries after
// the first attempt; the pipeline default of 3 yields 4 attempts total.
func NewFetcher(timeout time.Duration, retries int, maxBackoff time.Duration, userAgent string) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(maxBackoff).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &Fetcher{client: client}
}

// FetchDocument downloads and parses the page at rawURL. The returned
// document still contains its ld+json scripts; run ExtractJSONLD before
// CleanDocument, which strips them.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	validated, err := ValidateImportURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.R().SetContext(ctx).Get(validated)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", validated, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: %w (status %d)", validated, common.ErrNoRecipeFound, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", validated, err)
	}

	common.LogDebug("fetched page",
		zap.String("url", validated),
		zap.Int("bytes", len(resp.Body())),
	)
	return doc, nil
}

// CleanResult is the outcome of stripping a document down to readable text.
type CleanResult struct {
	// Text is the whitespace-collapsed body text with inline
	// "[IMAGE: url (WxH)]" markers standing in for <img> elements.
	Text string
	// OGCandidates are images declared via Open Graph meta tags.
	OGCandidates []ImageCandidate
	// MarkerCandidates are inline images, in document order.
	MarkerCandidates []ImageCandidate
}

// CleanDocument strips non-content elements, replaces every <img> with an
// inline text marker recording its position, and collects image candidates.
// The document is mutated; extract structured data first.
func CleanDocument(doc *goquery.Document, baseURL string) *CleanResult {
	result := &CleanResult{
		OGCandidates: CollectOpenGraphImages(doc, baseURL),
	}

	doc.Find("script, style, noscript, iframe, svg, header, footer, nav").Remove()

	order := 0
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := resolveURL(baseURL, sel.AttrOr("src", ""))
		if src == "" {
			sel.Remove()
			return
		}
		width := intAttr(sel, "width")
		height := intAttr(sel, "height")
		result.MarkerCandidates = append(result.MarkerCandidates, ImageCandidate{
			URL:    src,
			Width:  width,
			Height: height,
			Source: SourceMarker,
			Order:  order,
		})
		marker := fmt.Sprintf("[IMAGE: %s]", src)
		if width > 0 && height > 0 {
			marker = fmt.Sprintf("[IMAGE: %s (%dx%d)]", src, width, height)
		}
		sel.ReplaceWithHtml(" " + marker + " ")
		order++
	})

	body := doc.Find("body").Text()
	result.Text = strings.Join(strings.Fields(body), " ")
	return result
}

// CollectOpenGraphImages reads og:image meta tags, associating the
// og:image:width/height tags that follow each og:image declaration.
func CollectOpenGraphImages(doc *goquery.Document, baseURL string) []ImageCandidate {
	var out []ImageCandidate
	doc.Find(`meta[property^="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		prop := sel.AttrOr("property", "")
		content := strings.TrimSpace(sel.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch prop {
		case "og:image":
			out = append(out, ImageCandidate{
				URL:    resolveURL(baseURL, content),
				Source: SourceOpenGraph,
			})
		case "og:image:width":
			if len(out) > 0 {
				out[len(out)-1].Width, _ = strconv.Atoi(content)
			}
		case "og:image:height":
			if len(out) > 0 {
				out[len(out)-1].Height, _ = strconv.Atoi(content)
			}
		}
	})

	return out
}

func intAttr(sel *goquery.Selection, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(sel.AttrOr(name, "")))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// resolveURL resolves ref against base, returning "" for unusable inputs.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
