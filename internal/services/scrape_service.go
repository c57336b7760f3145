package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

const DefaultMaxScrapePages = 10

// ListingScraper fetches and parses one listing page of the external site.
// When parsing stops at a malformed entry, the entries before it are returned
// along with the error.
type ListingScraper interface {
	ScrapePage(ctx context.Context, page int) ([]ScrapedQuestion, error)
}

type ScrapedQuestionSink interface {
	InsertScrapedQuestion(ctx context.Context, sq *ScrapedQuestion) (*ScrapedQuestion, error)
}

type ScrapeService struct {
	scraper  ListingScraper
	sink     ScrapedQuestionSink
	maxPages int
	now      func() time.Time
}

type ScrapeStatus struct {
	Pages  int `json:"pages"`
	Stored int `json:"scraped"`
}

func NewScrapeService(scraper ListingScraper, sink ScrapedQuestionSink, maxPages int) *ScrapeService {
	if maxPages <= 0 {
		maxPages = DefaultMaxScrapePages
	}
	return &ScrapeService{
		scraper:  scraper,
		sink:     sink,
		maxPages: maxPages,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScrapeLatest walks listing pages 1..pages in order and stores one row per
// entry as soon as it is parsed. The first error stops the run; rows stored
// before it are kept and reported in the returned status.
func (s *ScrapeService) ScrapeLatest(ctx context.Context, pages int) (*ScrapeStatus, error) {
	if pages < 1 {
		return nil, NewInvalidError("pages must be at least 1")
	}
	if pages > s.maxPages {
		pages = s.maxPages
	}
	status := &ScrapeStatus{}
	for page := 1; page <= pages; page++ {
		entries, pageErr := s.scraper.ScrapePage(ctx, page)
		for i := range entries {
			sq := entries[i]
			if sq.ScrapedAt.IsZero() {
				sq.ScrapedAt = s.now()
			}
			if _, err := s.sink.InsertScrapedQuestion(ctx, &sq); err != nil {
				return status, fmt.Errorf("store scraped question: %w", err)
			}
			status.Stored++
		}
		if pageErr != nil {
			log.Printf("scrape: page %d: %v", page, pageErr)
			return status, NewBadGatewayError(fmt.Sprintf("page %d: %v", page, pageErr))
		}
		status.Pages = page
	}
	log.Printf("scrape: stored %d questions from %d pages", status.Stored, status.Pages)
	return status, nil
}
