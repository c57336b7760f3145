package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	AskActionSave    = "SAVE"
	AskActionPreview = "PREVIEW"

	maxTitleLength = 140
)

type QuestionStore interface {
	InsertQuestion(ctx context.Context, q *Question) (*Question, error)
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	ListQuestionsBetween(ctx context.Context, from, to time.Time) ([]*Question, error)
	ListQuestions(ctx context.Context) ([]*Question, error)
	ListAnswers(ctx context.Context, questionID int64) ([]*Answer, error)
}

type DraftStore interface {
	Get(ctx context.Context, userID string) (QuestionDraft, bool, error)
	Set(ctx context.Context, userID string, draft QuestionDraft) error
	Delete(ctx context.Context, userID string) error
}

// QuestionIndexer pushes saved questions to the search backend.
type QuestionIndexer interface {
	IndexQuestion(ctx context.Context, q *Question) error
}

type QuestionService struct {
	store   QuestionStore
	drafts  DraftStore
	indexer QuestionIndexer
	loc     *time.Location
	now     func() time.Time
}

type AskRequest struct {
	Action string
	Title  string
	Body   string
}

type AskResult struct {
	Question *Question
	// Preview is set instead of Question when nothing was saved.
	Preview *Question
}

type AskForm struct {
	UserID string        `json:"user"`
	Draft  QuestionDraft `json:"draft"`
}

// NewQuestionService builds the service. drafts and indexer may be nil.
func NewQuestionService(store QuestionStore, drafts DraftStore, indexer QuestionIndexer, loc *time.Location) *QuestionService {
	if loc == nil {
		loc = time.UTC
	}
	return &QuestionService{
		store:   store,
		drafts:  drafts,
		indexer: indexer,
		loc:     loc,
		now:     time.Now,
	}
}

// Today is the current date in the service timezone.
func (s *QuestionService) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

func (s *QuestionService) Location() *time.Location { return s.loc }

func (s *QuestionService) AskInitial(ctx context.Context, userID string) (*AskForm, error) {
	form := &AskForm{UserID: userID}
	if s.drafts == nil {
		return form, nil
	}
	draft, ok, err := s.drafts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		form.Draft = draft
	}
	return form, nil
}

func (s *QuestionService) Ask(ctx context.Context, userID string, req AskRequest) (*AskResult, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("login required")
	}
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	if fields := validateQuestion(title, body); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	switch req.Action {
	case AskActionSave:
		q, err := s.store.InsertQuestion(ctx, &Question{Title: title, Body: body, AuthorID: userID, CreatedAt: s.now().UTC()})
		if err != nil {
			return nil, err
		}
		if s.drafts != nil {
			if err := s.drafts.Delete(ctx, userID); err != nil {
				log.Printf("questions: clear draft for %s: %v", userID, err)
			}
		}
		s.index(ctx, q)
		return &AskResult{Question: q}, nil
	case AskActionPreview:
		if s.drafts != nil {
			if err := s.drafts.Set(ctx, userID, QuestionDraft{Title: title, Body: body}); err != nil {
				log.Printf("questions: store draft for %s: %v", userID, err)
			}
		}
		return &AskResult{Preview: &Question{Title: title, Body: body, AuthorID: userID}}, nil
	default:
		return nil, NewInvalidError("unknown action")
	}
}

// index failures never fail the request; the question is already saved.
func (s *QuestionService) index(ctx context.Context, q *Question) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexQuestion(ctx, q); err != nil {
		log.Printf("questions: index question %d: %v", q.ID, err)
	}
}

func (s *QuestionService) Get(ctx context.Context, id int64) (*QuestionDetail, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NewNotFoundError("question not found")
	}
	answers, err := s.store.ListAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuestionDetail{Question: q, Answers: answers}, nil
}

// ListByDay returns the questions created on the given calendar day in the
// service timezone, newest first.
func (s *QuestionService) ListByDay(ctx context.Context, year, month, day int) ([]*Question, time.Time, error) {
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, s.loc)
	if start.Year() != year || int(start.Month()) != month || start.Day() != day {
		return nil, time.Time{}, NewNotFoundError("invalid date")
	}
	end := start.AddDate(0, 0, 1)
	qs, err := s.store.ListQuestionsBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, time.Time{}, err
	}
	return qs, start, nil
}

// All returns every question; used to rebuild the search index.
func (s *QuestionService) All(ctx context.Context) ([]*Question, error) {
	return s.store.ListQuestions(ctx)
}

func validateQuestion(title, body string) map[string]string {
	fields := map[string]string{}
	switch {
	case title == "":
		fields["title"] = "This field is required."
	case utf8.RuneCountInString(title) > maxTitleLength:
		fields["title"] = "Ensure this value has at most 140 characters."
	}
	if body == "" {
		fields["question"] = "This field is required."
	}
	return fields
}
