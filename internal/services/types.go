package services

import "time"

type Question struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"question"`
	AuthorID  string    `json:"user"`
	CreatedAt time.Time `json:"created"`
}

// Answer.Accepted is only changed through AnswerService.SetAcceptance.
type Answer struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question"`
	Body       string    `json:"answer"`
	AuthorID   string    `json:"user"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created"`
}

type ScrapedQuestion struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Votes     int       `json:"votes"`
	Views     int       `json:"views"`
	Answers   int       `json:"answers"`
	Tags      []string  `json:"tags"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type User struct {
	ID        string
	Username  string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

type QuestionDraft struct {
	Title string `json:"title"`
	Body  string `json:"question"`
}

type QuestionDetail struct {
	Question *Question `json:"question"`
	Answers  []*Answer `json:"answers"`
}

// AcceptedAnswer returns the accepted answer, if any.
func (d *QuestionDetail) AcceptedAnswer() *Answer {
	for _, a := range d.Answers {
		if a.Accepted {
			return a
		}
	}
	return nil
}
