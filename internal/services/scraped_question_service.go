package services

import (
	"context"
	"strings"
	"time"
)

type ScrapedQuestionStore interface {
	InsertScrapedQuestion(ctx context.Context, sq *ScrapedQuestion) (*ScrapedQuestion, error)
	GetScrapedQuestion(ctx context.Context, id int64) (*ScrapedQuestion, error)
	ListScrapedQuestions(ctx context.Context) ([]*ScrapedQuestion, error)
	UpdateScrapedQuestion(ctx context.Context, sq *ScrapedQuestion) (bool, error)
	DeleteScrapedQuestion(ctx context.Context, id int64) (bool, error)
}

type ScrapedQuestionService struct {
	store ScrapedQuestionStore
	now   func() time.Time
}

// ScrapedQuestionPatch holds the fields of a partial update; nil means unchanged.
type ScrapedQuestionPatch struct {
	Title   *string   `json:"title"`
	URL     *string   `json:"url"`
	Votes   *int      `json:"votes"`
	Views   *int      `json:"views"`
	Answers *int      `json:"answers"`
	Tags    *[]string `json:"tags"`
}

func NewScrapedQuestionService(store ScrapedQuestionStore) *ScrapedQuestionService {
	return &ScrapedQuestionService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ScrapedQuestionService) List(ctx context.Context) ([]*ScrapedQuestion, error) {
	return s.store.ListScrapedQuestions(ctx)
}

func (s *ScrapedQuestionService) Get(ctx context.Context, id int64) (*ScrapedQuestion, error) {
	sq, err := s.store.GetScrapedQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sq == nil {
		return nil, NewNotFoundError("not found")
	}
	return sq, nil
}

func (s *ScrapedQuestionService) Create(ctx context.Context, sq ScrapedQuestion) (*ScrapedQuestion, error) {
	normalizeScraped(&sq)
	if fields := validateScraped(&sq); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	sq.ID = 0
	if sq.ScrapedAt.IsZero() {
		sq.ScrapedAt = s.now()
	}
	return s.store.InsertScrapedQuestion(ctx, &sq)
}

// Update replaces every writable field of the row.
func (s *ScrapedQuestionService) Update(ctx context.Context, id int64, sq ScrapedQuestion) (*ScrapedQuestion, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	normalizeScraped(&sq)
	if fields := validateScraped(&sq); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	sq.ID = existing.ID
	sq.ScrapedAt = existing.ScrapedAt
	return s.save(ctx, &sq)
}

func (s *ScrapedQuestionService) Patch(ctx context.Context, id int64, p ScrapedQuestionPatch) (*ScrapedQuestion, error) {
	sq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		sq.Title = *p.Title
	}
	if p.URL != nil {
		sq.URL = *p.URL
	}
	if p.Votes != nil {
		sq.Votes = *p.Votes
	}
	if p.Views != nil {
		sq.Views = *p.Views
	}
	if p.Answers != nil {
		sq.Answers = *p.Answers
	}
	if p.Tags != nil {
		sq.Tags = *p.Tags
	}
	normalizeScraped(sq)
	if fields := validateScraped(sq); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	return s.save(ctx, sq)
}

func (s *ScrapedQuestionService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteScrapedQuestion(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("not found")
	}
	return nil
}

func (s *ScrapedQuestionService) save(ctx context.Context, sq *ScrapedQuestion) (*ScrapedQuestion, error) {
	ok, err := s.store.UpdateScrapedQuestion(ctx, sq)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("not found")
	}
	return sq, nil
}

func normalizeScraped(sq *ScrapedQuestion) {
	sq.Title = strings.TrimSpace(sq.Title)
	sq.URL = strings.TrimSpace(sq.URL)
	tags := make([]string, 0, len(sq.Tags))
	for _, t := range sq.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	sq.Tags = tags
}

func validateScraped(sq *ScrapedQuestion) map[string]string {
	fields := map[string]string{}
	if sq.Title == "" {
		fields["title"] = "This field is required."
	}
	// votes may legitimately be negative
	if sq.Views < 0 {
		fields["views"] = "Ensure this value is greater than or equal to 0."
	}
	if sq.Answers < 0 {
		fields["answers"] = "Ensure this value is greater than or equal to 0."
	}
	return fields
}
