package acts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"restituiri/internal"
	"restituiri/internal/config"
	"restituiri/internal/ratelimit"
)

// Client drives the internal-acts portal: the search form, the act pages and the PDFs.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
	logger     *zap.Logger
}

// ActLink is a search result pointing at an act page.
type ActLink struct {
	Text string
	URL  string
}

// FetchResult is the outcome of one download task.
type FetchResult struct {
	Status internal.DownloadStatus
	File   string
	Links  int
}

type page struct {
	url         string
	contentType string
	body        []byte
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ActsTimeoutMs) * time.Millisecond},
		limiter:    ratelimit.NewRateLimiter(cfg.ActsRPS),
		logger:     logger,
	}
}

// Search submits the portal's search form for an act number and approval year and
// returns the DISPOZITIE/DL10 result links.
func (c *Client) Search(ctx context.Context, code string, year int) ([]ActLink, error) {
	home, err := c.fetch(ctx, http.MethodGet, c.cfg.ActsBaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("load search page: %w", err)
	}
	method, action, fields, err := searchForm(home)
	if err != nil {
		return nil, err
	}
	fields.Set("nr", code)
	fields.Set("data_aprob", strconv.Itoa(year))

	results, err := c.fetch(ctx, method, action, fields)
	if err != nil {
		return nil, fmt.Errorf("submit search %s/%d: %w", code, year, err)
	}
	return resultLinks(results)
}

// Fetch searches for the task's act and saves the first PDF it can resolve under dir.
func (c *Client) Fetch(ctx context.Context, task internal.DownloadTask, dir string) (FetchResult, error) {
	links, err := c.Search(ctx, task.Code, task.Year)
	if err != nil {
		return FetchResult{Status: internal.DownloadError}, err
	}
	if len(links) == 0 {
		return FetchResult{Status: internal.DownloadNotFound}, nil
	}

	name := FileName(task)
	for _, link := range links {
		pdfURL, body, err := c.locatePDF(ctx, link.URL)
		if err != nil {
			if ctx.Err() != nil {
				return FetchResult{Status: internal.DownloadError, Links: len(links)}, ctx.Err()
			}
			c.logger.Warn("act page failed", zap.String("link", link.Text), zap.String("url", link.URL), zap.Error(err))
			continue
		}
		if pdfURL == "" {
			c.logger.Info("no pdf on act page", zap.String("link", link.Text), zap.String("dpg", task.Code), zap.Int("year", task.Year))
			continue
		}
		var path string
		if body != nil {
			path, err = save(dir, name, body)
		} else {
			path, err = c.Download(ctx, pdfURL, dir, name)
		}
		if err != nil {
			if ctx.Err() != nil {
				return FetchResult{Status: internal.DownloadError, Links: len(links)}, ctx.Err()
			}
			c.logger.Warn("pdf download failed", zap.String("url", pdfURL), zap.Error(err))
			continue
		}
		return FetchResult{Status: internal.DownloadSaved, File: path, Links: len(links)}, nil
	}
	return FetchResult{Status: internal.DownloadNoPDF, Links: len(links)}, nil
}

// locatePDF opens an act page and finds its PDF, following a "vezi documentul" link
// once when enabled. When the page itself is the PDF its body is returned too.
func (c *Client) locatePDF(ctx context.Context, pageURL string) (string, []byte, error) {
	p, err := c.fetch(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil, err
	}
	if p.isPDF() {
		return p.url, p.body, nil
	}
	if found, ok := ResolvePDFURL(p.url, string(p.body)); ok {
		return found, nil, nil
	}
	if !c.cfg.ActsFollowViewLinks {
		return "", nil, nil
	}
	view := viewLink(p.url, string(p.body))
	if view == "" {
		return "", nil, nil
	}
	next, err := c.fetch(ctx, http.MethodGet, view, nil)
	if err != nil {
		return "", nil, err
	}
	if next.isPDF() {
		return next.url, next.body, nil
	}
	found, _ := ResolvePDFURL(next.url, string(next.body))
	return found, nil, nil
}

// Download saves the document at pdfURL as dir/name (sanitized) and returns the path.
func (c *Client) Download(ctx context.Context, pdfURL, dir, name string) (string, error) {
	p, err := c.fetch(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", err
	}
	return save(dir, name, p.body)
}

func save(dir, name string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SanitizeFilename(name))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ResolvePDFURL finds the PDF behind an act page: the page itself when its URL ends in
// .pdf, then an embedded PDF viewer, then the first anchor pointing at a .pdf.
func ResolvePDFURL(pageURL, html string) (string, bool) {
	if strings.HasSuffix(strings.ToLower(pageURL), ".pdf") {
		return pageURL, true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	if src, ok := doc.Find(`embed[type="application/pdf"], iframe[src*=".pdf"]`).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		if abs, err := resolveRef(pageURL, src); err == nil {
			return abs, true
		}
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), ".pdf") {
			return true
		}
		abs, err := resolveRef(pageURL, href)
		if err != nil {
			return true
		}
		found = abs
		return false
	})
	return found, found != ""
}

func viewLink(pageURL, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(a.Text()), "vezi documentul") {
			return true
		}
		href, _ := a.Attr("href")
		if abs, err := resolveRef(pageURL, href); err == nil {
			found = abs
			return false
		}
		return true
	})
	return found
}

// searchForm reads the "cauta" form (or the first form) off the search page.
func searchForm(p page) (string, string, url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.body)))
	if err != nil {
		return "", "", nil, err
	}
	form := doc.Find(`form[name="cauta"]`).First()
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}
	if form.Length() == 0 {
		return "", "", nil, errors.New("search form not found")
	}

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	action, err := resolveRef(p.url, form.AttrOr("action", ""))
	if err != nil {
		return "", "", nil, fmt.Errorf("search form action: %w", err)
	}

	fields := url.Values{}
	submitted := false
	form.Find("input[name], select[name]").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "submit", "image":
			if submitted {
				return
			}
			submitted = true
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); !checked {
				return
			}
		}
		if goquery.NodeName(in) == "select" {
			fields.Set(name, in.Find("option[selected]").First().AttrOr("value", ""))
			return
		}
		fields.Set(name, in.AttrOr("value", ""))
	})
	return method, action, fields, nil
}

func resultLinks(p page) ([]ActLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.body)))
	if err != nil {
		return nil, err
	}
	var links []ActLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		upper := strings.ToUpper(text)
		if !strings.HasPrefix(upper, "DISPOZITIE") && !strings.HasPrefix(upper, "DL10") {
			return
		}
		href, _ := a.Attr("href")
		abs, err := resolveRef(p.url, href)
		if err != nil {
			return
		}
		links = append(links, ActLink{Text: text, URL: abs})
	})
	return links, nil
}

func (c *Client) fetch(ctx context.Context, method, target string, form url.Values) (page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return page{}, err
	}

	var body io.Reader
	if method == http.MethodGet && len(form) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return page{}, err
		}
		q := u.Query()
		for k, vs := range form {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	} else if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return page{}, err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page{}, fmt.Errorf("acts portal status=%d url=%s", resp.StatusCode, target)
	}
	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return page{url: finalURL, contentType: resp.Header.Get("Content-Type"), body: data}, nil
}

func (p page) isPDF() bool {
	if strings.HasSuffix(strings.ToLower(p.url), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(p.contentType)
	return err == nil && mediaType == "application/pdf"
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
