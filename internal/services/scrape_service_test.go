package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubListingScraper struct {
	pages  map[int][]ScrapedQuestion
	failAt int
	// partial entries are returned with the error on failAt
	partial []ScrapedQuestion
	calls   []int
}

func (s *stubListingScraper) ScrapePage(_ context.Context, page int) ([]ScrapedQuestion, error) {
	s.calls = append(s.calls, page)
	if page == s.failAt {
		return s.partial, errors.New(`entry 1: votes: invalid count "lots"`)
	}
	return s.pages[page], nil
}

type stubSink struct {
	rows []*ScrapedQuestion
}

func (s *stubSink) InsertScrapedQuestion(_ context.Context, sq *ScrapedQuestion) (*ScrapedQuestion, error) {
	cp := *sq
	cp.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, &cp)
	return &cp, nil
}

func listingPage(page, n int) []ScrapedQuestion {
	out := make([]ScrapedQuestion, n)
	for i := range out {
		out[i] = ScrapedQuestion{Title: fmt.Sprintf("p%d-q%d", page, i), Votes: i, Views: 10 * i, Tags: []string{"go"}}
	}
	return out
}

func TestScrapeLatestStoresEveryEntry(t *testing.T) {
	scraper := &stubListingScraper{pages: map[int][]ScrapedQuestion{1: listingPage(1, 3), 2: listingPage(2, 2)}}
	sink := &stubSink{}
	svc := NewScrapeService(scraper, sink, 10)

	status, err := svc.ScrapeLatest(context.Background(), 2)
	if err != nil {
		t.Fatalf("ScrapeLatest: %v", err)
	}
	if status.Pages != 2 || status.Stored != 5 || len(sink.rows) != 5 {
		t.Fatalf("unexpected status %+v rows=%d", status, len(sink.rows))
	}
	if sink.rows[0].ScrapedAt.IsZero() {
		t.Fatalf("scraped_at should be stamped")
	}
}

func TestScrapeLatestKeepsEarlierPagesOnFailure(t *testing.T) {
	scraper := &stubListingScraper{pages: map[int][]ScrapedQuestion{1: listingPage(1, 4)}, failAt: 2}
	sink := &stubSink{}
	svc := NewScrapeService(scraper, sink, 10)

	status, err := svc.ScrapeLatest(context.Background(), 5)
	if !IsCode(err, ErrorBadGateway) {
		t.Fatalf("expected bad gateway error, got %v", err)
	}
	if status == nil || status.Stored != 4 || status.Pages != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(sink.rows) != 4 {
		t.Fatalf("rows from page 1 must stay stored, got %d", len(sink.rows))
	}
	if len(scraper.calls) != 2 {
		t.Fatalf("remaining pages must not be fetched, calls=%v", scraper.calls)
	}
}

func TestScrapeLatestBoundsPages(t *testing.T) {
	scraper := &stubListingScraper{pages: map[int][]ScrapedQuestion{}}
	svc := NewScrapeService(scraper, &stubSink{}, 3)

	if _, err := svc.ScrapeLatest(context.Background(), 0); !IsCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid for zero pages, got %v", err)
	}
	status, err := svc.ScrapeLatest(context.Background(), 50)
	if err != nil {
		t.Fatalf("ScrapeLatest: %v", err)
	}
	if status.Pages != 3 || len(scraper.calls) != 3 {
		t.Fatalf("expected pages clamped to 3, got %+v calls=%v", status, scraper.calls)
	}
}

func TestScrapeLatestStoresEntriesBeforeMalformedOne(t *testing.T) {
	scraper := &stubListingScraper{
		pages:   map[int][]ScrapedQuestion{1: listingPage(1, 2)},
		failAt:  2,
		partial: []ScrapedQuestion{{Title: "p2-q0", Votes: 3}},
	}
	sink := &stubSink{}
	svc := NewScrapeService(scraper, sink, 10)

	status, err := svc.ScrapeLatest(context.Background(), 3)
	if !IsCode(err, ErrorBadGateway) {
		t.Fatalf("expected bad gateway error, got %v", err)
	}
	if status.Stored != 3 || status.Pages != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(sink.rows) != 3 || sink.rows[2].Title != "p2-q0" {
		t.Fatalf("entry parsed before the bad one must be stored, rows=%d", len(sink.rows))
	}
	if sink.rows[2].ScrapedAt.IsZero() {
		t.Fatalf("scraped_at should be stamped")
	}
}
