// Package scraper reads the newest-questions listing of a Stack Overflow style
// site and turns each entry into a services.ScrapedQuestion.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/soaringjerry/stackapp/internal/services"
)

const (
	DefaultBaseURL   = "https://stackoverflow.com/questions"
	DefaultUserAgent = "Mozilla/5.0 (compatible; stackapp-scraper/1.0)"
)

var _ services.ListingScraper = (*Scraper)(nil)

// Selectors are evaluated inside each Entry match, except Entry itself.
type Selectors struct {
	Entry   string `yaml:"entry"`
	Title   string `yaml:"title"`
	Votes   string `yaml:"votes"`
	Answers string `yaml:"answers"`
	Views   string `yaml:"views"`
	Tags    string `yaml:"tags"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Entry:   ".s-post-summary",
		Title:   ".s-post-summary--content-title a",
		Votes:   ".s-post-summary--stats-item:nth-child(1) .s-post-summary--stats-item-number",
		Answers: ".s-post-summary--stats-item:nth-child(2) .s-post-summary--stats-item-number",
		Views:   ".s-post-summary--stats-item:nth-child(3) .s-post-summary--stats-item-number",
		Tags:    ".s-post-summary--meta-tags .post-tag",
	}
}

// withDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Entry == "" {
		s.Entry = d.Entry
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Votes == "" {
		s.Votes = d.Votes
	}
	if s.Answers == "" {
		s.Answers = d.Answers
	}
	if s.Views == "" {
		s.Views = d.Views
	}
	if s.Tags == "" {
		s.Tags = d.Tags
	}
	return s
}

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Selectors Selectors
}

type Scraper struct {
	client *http.Client
	base   *url.URL
	agent  string
	sel    Selectors
	now    func() time.Time
}

// New validates cfg. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client) (*Scraper, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid scraper base url %q", raw)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &Scraper{
		client: client,
		base:   base,
		agent:  agent,
		sel:    cfg.Selectors.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// PageURL returns the newest-first listing URL for page.
func (s *Scraper) PageURL(page int) string {
	u := *s.base
	q := u.Query()
	q.Set("tab", "newest")
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Scraper) ScrapePage(ctx context.Context, page int) ([]services.ScrapedQuestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PageURL(page), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.agent)
	req.Header.Set("Accept", "text/html")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	items, err := ParseListing(res.Body, s.base, s.sel)
	now := s.now()
	for i := range items {
		items[i].ScrapedAt = now
	}
	return items, err
}

// ParseListing extracts one ScrapedQuestion per entry. Relative links are
// resolved against base. On a malformed entry it returns the entries parsed
// before it together with the error.
func ParseListing(r io.Reader, base *url.URL, sel Selectors) ([]services.ScrapedQuestion, error) {
	sel = sel.withDefaults()
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		out      []services.ScrapedQuestion
		parseErr error
	)
	doc.Find(sel.Entry).EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find(sel.Title).First()
		sq := services.ScrapedQuestion{
			Title: strings.TrimSpace(link.Text()),
			Tags:  []string{},
		}
		if sq.Title == "" {
			parseErr = fmt.Errorf("entry %d: missing title", i)
			return false
		}
		if href, ok := link.Attr("href"); ok {
			sq.URL = resolve(base, href)
		}
		for _, f := range []struct {
			name string
			sel  string
			dst  *int
		}{
			{"votes", sel.Votes, &sq.Votes},
			{"answers", sel.Answers, &sq.Answers},
			{"views", sel.Views, &sq.Views},
		} {
			n, err := ParseCount(s.Find(f.sel).First().Text())
			if err != nil {
				parseErr = fmt.Errorf("entry %d: %s: %w", i, f.name, err)
				return false
			}
			*f.dst = n
		}
		s.Find(sel.Tags).Each(func(_ int, t *goquery.Selection) {
			if tag := strings.TrimSpace(t.Text()); tag != "" {
				sq.Tags = append(sq.Tags, tag)
			}
		})
		out = append(out, sq)
		return true
	})
	return out, parseErr
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

var errBadCount = errors.New("invalid count")

// ParseCount turns listing counters like "15", "1,024", "1.2k" or "3m" into
// integers. Empty text counts as zero.
func ParseCount(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1e6, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "b"):
		mult, s = 1e9, strings.TrimSuffix(s, "b")
	}
	if mult == 1 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w %q", errBadCount, text)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w %q", errBadCount, text)
	}
	if f < 0 {
		return int(f*mult - 0.5), nil
	}
	return int(f*mult + 0.5), nil
}
