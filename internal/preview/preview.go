// Package preview fetches a meal's original source page and extracts a short
// readable preview from it.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const defaultExcerptLen = 600

// Preview is what the source page says about itself.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	SiteName    string `json:"siteName,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Excerpt     string `json:"excerpt"`
}

// Previewer fetches and cleans source pages.
type Previewer struct {
	httpClient *http.Client
	excerptLen int
}

func NewPreviewer() *Previewer {
	return &Previewer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		excerptLen: defaultExcerptLen,
	}
}

// Fetch downloads rawURL and extracts its title, description, image and the
// first part of its readable text.
func (p *Previewer) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "pantry-planner/1.0 (+source preview)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source html: %w", err)
	}

	pv := &Preview{
		URL:         u.String(),
		Title:       firstNonEmpty(meta(doc, "og:title"), doc.Find("title").First().Text(), doc.Find("h1").First().Text()),
		SiteName:    meta(doc, "og:site_name"),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "description")),
		Image:       resolve(u, meta(doc, "og:image")),
	}

	// Remove noise before taking the text
	doc.Find("script, style, nav, header, footer, iframe, noscript, form, ads, .ads, #ads").Remove()
	pv.Excerpt = truncate(collapse(doc.Find("body").Text()), p.excerptLen)

	return pv, nil
}

// meta reads <meta property=name> or <meta name=name>.
func meta(doc *goquery.Document, name string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(r).String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = collapse(v); v != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, on a word boundary when possible.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
