package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// maxFetchBytes caps the size of a fetched web page.
const maxFetchBytes = 10 << 20

// page is one unit of extracted text. number is the 1-based PDF page, or 0
// for sources without pages.
type page struct {
	number int
	text   string
}

// loader reads corpus sources into pages.
type loader struct {
	// httpClient fetches URL sources.
	httpClient *http.Client
	// userAgent is sent with every fetch.
	userAgent string
}

func newLoader(timeout time.Duration, userAgent string) *loader {
	return &loader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// load dispatches on the source location: http(s) URLs are fetched, .pdf
// files are read page by page, anything else is read as UTF-8 text.
func (l *loader) load(ctx context.Context, location string) ([]page, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		text, err := l.fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		return []page{{text: text}}, nil
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".pdf":
		return loadPDF(location)
	case ".txt", ".md", "":
		b, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return []page{{text: string(b)}}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(location))
	}
}

// loadPDF extracts plain text from every page of a PDF. Pages without
// extractable text (scanned images) are skipped.
func loadPDF(path string) ([]page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, page{number: i, text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", path)
	}
	return pages, nil
}

// fetch retrieves a URL and returns its readable text. HTML bodies are
// reduced to the text of their main content.
func (l *loader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body := io.LimitReader(resp.Body, maxFetchBytes)
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return string(b), nil
	}
	return htmlText(body)
}

// htmlText extracts the visible text of an HTML document, preferring the
// <main> or <article> element when present.
func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	sel := doc.Find("main, article").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	var b strings.Builder
	sel.Find("h1, h2, h3, h4, p, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			b.WriteString(t)
			b.WriteByte('\n')
		}
	})
	if b.Len() == 0 {
		return strings.TrimSpace(sel.Text()), nil
	}
	return b.String(), nil
}
