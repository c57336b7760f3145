package services

import (
	"context"
	"strings"
	"time"
)

type AnswerStore interface {
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	GetAnswer(ctx context.Context, id int64) (*Answer, error)
	InsertAnswer(ctx context.Context, a *Answer) (*Answer, error)
	// AcceptAnswer clears every other answer of the question and marks
	// answerID accepted in a single transaction.
	AcceptAnswer(ctx context.Context, questionID, answerID int64) (bool, error)
	RevokeAcceptance(ctx context.Context, answerID int64) (bool, error)
}

type AnswerService struct {
	store AnswerStore
	now   func() time.Time
}

func NewAnswerService(store AnswerStore) *AnswerService {
	return &AnswerService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *AnswerService) Create(ctx context.Context, questionID int64, authorID, body string) (*Answer, error) {
	if authorID == "" {
		return nil, NewUnauthorizedError("login required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, NewValidationError(map[string]string{"answer": "This field is required."})
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NewNotFoundError("question not found")
	}
	return s.store.InsertAnswer(ctx, &Answer{QuestionID: q.ID, Body: body, AuthorID: authorID, CreatedAt: s.now()})
}

func (s *AnswerService) Get(ctx context.Context, id int64) (*Answer, error) {
	a, err := s.store.GetAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("answer not found")
	}
	return a, nil
}

// SetAcceptance moves an answer into or out of the accepted state. Only the
// author of the question may do so. Accepting an answer revokes acceptance
// from every other answer of the same question.
func (s *AnswerService) SetAcceptance(ctx context.Context, questionID, answerID int64, accepted bool, actorID string) (*Answer, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NewNotFoundError("question not found")
	}
	if actorID == "" || q.AuthorID != actorID {
		return nil, NewForbiddenError("only the question author can change acceptance")
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("answer not found")
	}
	if a.QuestionID != q.ID {
		return nil, NewInvalidError("answer does not belong to question")
	}

	var ok bool
	if accepted {
		ok, err = s.store.AcceptAnswer(ctx, q.ID, a.ID)
	} else {
		ok, err = s.store.RevokeAcceptance(ctx, a.ID)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("answer not found")
	}
	a.Accepted = accepted
	return a, nil
}
