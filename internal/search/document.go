package search

import (
	"strconv"
	"time"

	"github.com/soaringjerry/stackapp/internal/services"
)

// Document is the indexed form of a question. Text joins title and body and
// is the field queried by Search.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	QuestionBody string    `json:"question_body"`
	Text         string    `json:"text"`
	Created      time.Time `json:"created"`
}

func NewDocument(q *services.Question) Document {
	return Document{
		ID:           documentID(q.ID),
		Title:        q.Title,
		QuestionBody: q.Body,
		Text:         q.Title + "\n" + q.Body,
		Created:      q.CreatedAt.UTC(),
	}
}

func documentID(id int64) string { return strconv.FormatInt(id, 10) }

// indexMapping is applied by EnsureIndex.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "title":         {"type": "text"},
      "question_body": {"type": "text"},
      "text":          {"type": "text"},
      "created":       {"type": "date"}
    }
  }
}`
