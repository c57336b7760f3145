package services

import (
	"context"
	"testing"
	"time"
)

type stubScrapedStore struct {
	rows   map[int64]*ScrapedQuestion
	nextID int64
}

func newStubScrapedStore() *stubScrapedStore {
	return &stubScrapedStore{rows: map[int64]*ScrapedQuestion{}}
}

func (s *stubScrapedStore) InsertScrapedQuestion(_ context.Context, sq *ScrapedQuestion) (*ScrapedQuestion, error) {
	s.nextID++
	cp := *sq
	cp.ID = s.nextID
	s.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *stubScrapedStore) GetScrapedQuestion(_ context.Context, id int64) (*ScrapedQuestion, error) {
	if sq, ok := s.rows[id]; ok {
		cp := *sq
		return &cp, nil
	}
	return nil, nil
}

func (s *stubScrapedStore) ListScrapedQuestions(_ context.Context) ([]*ScrapedQuestion, error) {
	out := []*ScrapedQuestion{}
	for id := int64(1); id <= s.nextID; id++ {
		if sq, ok := s.rows[id]; ok {
			cp := *sq
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubScrapedStore) UpdateScrapedQuestion(_ context.Context, sq *ScrapedQuestion) (bool, error) {
	if _, ok := s.rows[sq.ID]; !ok {
		return false, nil
	}
	cp := *sq
	s.rows[sq.ID] = &cp
	return true, nil
}

func (s *stubScrapedStore) DeleteScrapedQuestion(_ context.Context, id int64) (bool, error) {
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

func TestScrapedQuestionCRUD(t *testing.T) {
	ctx := context.Background()
	store := newStubScrapedStore()
	svc := NewScrapedQuestionService(store)
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }

	created, err := svc.Create(ctx, ScrapedQuestion{ID: 77, Title: " pandas groupby ", Votes: 3, Views: 40, Tags: []string{"python", " ", "pandas"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 1 || created.Title != "pandas groupby" || len(created.Tags) != 2 {
		t.Fatalf("unexpected created row %+v", created)
	}
	if !created.ScrapedAt.Equal(svc.now()) {
		t.Fatalf("scraped_at not stamped: %v", created.ScrapedAt)
	}

	updated, err := svc.Update(ctx, created.ID, ScrapedQuestion{Title: "renamed", Views: 50})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed" || updated.Votes != 0 || len(updated.Tags) != 0 || !updated.ScrapedAt.Equal(created.ScrapedAt) {
		t.Fatalf("full update should replace fields, got %+v", updated)
	}

	votes := 9
	patched, err := svc.Patch(ctx, created.ID, ScrapedQuestionPatch{Votes: &votes})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Votes != 9 || patched.Title != "renamed" || patched.Views != 50 {
		t.Fatalf("patch should keep untouched fields, got %+v", patched)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !IsCode(err, ErrorNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !IsCode(err, ErrorNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestScrapedQuestionValidation(t *testing.T) {
	svc := NewScrapedQuestionService(newStubScrapedStore())
	_, err := svc.Create(context.Background(), ScrapedQuestion{Views: -1})
	se, ok := AsServiceError(err)
	if !ok || se.Fields["title"] == "" || se.Fields["views"] == "" {
		t.Fatalf("expected field errors, got %v", err)
	}
}
