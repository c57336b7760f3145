package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/stackapp/internal/services"
)

// Store persists questions, answers, scraped questions and users through sqlx.
// Queries are written with ? placeholders and rebound for the driver in use.
type Store struct {
	db *sqlx.DB
}

var (
	_ services.QuestionStore        = (*Store)(nil)
	_ services.AnswerStore          = (*Store)(nil)
	_ services.ScrapedQuestionStore = (*Store)(nil)
	_ services.AuthStore            = (*Store)(nil)
)

// Open connects to driver ("sqlite3" or "postgres") and applies SQLite pragmas
// when relevant.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// a single connection keeps in-memory databases and write locking sane
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		}
		for _, stmt := range pragmas {
			if _, err := db.Exec(stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func NewStore(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &Store{db: db}, nil
}

type questionRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	AuthorID  string    `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
}

type answerRow struct {
	ID         int64     `db:"id"`
	QuestionID int64     `db:"question_id"`
	Body       string    `db:"body"`
	AuthorID   string    `db:"author_id"`
	Accepted   bool      `db:"accepted"`
	CreatedAt  time.Time `db:"created_at"`
}

type scrapedRow struct {
	ID        int64          `db:"id"`
	Title     string         `db:"title"`
	URL       sql.NullString `db:"url"`
	Votes     int            `db:"votes"`
	Views     int            `db:"views"`
	Answers   int            `db:"answers"`
	Tags      sql.NullString `db:"tags"`
	ScrapedAt time.Time      `db:"scraped_at"`
}

type userRow struct {
	ID        string         `db:"id"`
	Username  string         `db:"username"`
	Email     sql.NullString `db:"email"`
	PassHash  []byte         `db:"pass_hash"`
	CreatedAt time.Time      `db:"created_at"`
}

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeTags(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("store: decode tags: %v", err)
		return []string{}
	}
	return out
}

func convertQuestion(r questionRow) *services.Question {
	return &services.Question{ID: r.ID, Title: r.Title, Body: r.Body, AuthorID: r.AuthorID, CreatedAt: r.CreatedAt.UTC()}
}

func convertAnswer(r answerRow) *services.Answer {
	return &services.Answer{ID: r.ID, QuestionID: r.QuestionID, Body: r.Body, AuthorID: r.AuthorID, Accepted: r.Accepted, CreatedAt: r.CreatedAt.UTC()}
}

func convertScraped(r scrapedRow) *services.ScrapedQuestion {
	return &services.ScrapedQuestion{
		ID:        r.ID,
		Title:     r.Title,
		URL:       r.URL.String,
		Votes:     r.Votes,
		Views:     r.Views,
		Answers:   r.Answers,
		Tags:      decodeTags(r.Tags),
		ScrapedAt: r.ScrapedAt.UTC(),
	}
}

const (
	questionColumns = `id, title, body, author_id, created_at`
	answerColumns   = `id, question_id, body, author_id, accepted, created_at`
	scrapedColumns  = `id, title, url, votes, views, answers, tags, scraped_at`
)

// Questions

func (s *Store) InsertQuestion(ctx context.Context, q *services.Question) (*services.Question, error) {
	created := q.CreatedAt.UTC()
	if q.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO questions (title, body, author_id, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		q.Title, q.Body, q.AuthorID, created,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return &services.Question{ID: id, Title: q.Title, Body: q.Body, AuthorID: q.AuthorID, CreatedAt: created}, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*services.Question, error) {
	var row questionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+questionColumns+` FROM questions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return convertQuestion(row), nil
}

func (s *Store) ListQuestionsBetween(ctx context.Context, from, to time.Time) ([]*services.Question, error) {
	var rows []questionRow
	err := s.db.SelectContext(ctx, &rows,
		s.q(`SELECT `+questionColumns+` FROM questions WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC`),
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return convertQuestions(rows), nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]*services.Question, error) {
	var rows []questionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+questionColumns+` FROM questions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return convertQuestions(rows), nil
}

func convertQuestions(rows []questionRow) []*services.Question {
	out := make([]*services.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertQuestion(r))
	}
	return out
}

// Answers

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]*services.Answer, error) {
	var rows []answerRow
	err := s.db.SelectContext(ctx, &rows,
		s.q(`SELECT `+answerColumns+` FROM answers WHERE question_id = ? ORDER BY created_at, id`), questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]*services.Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertAnswer(r))
	}
	return out, nil
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (*services.Answer, error) {
	var row answerRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+answerColumns+` FROM answers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer %d: %w", id, err)
	}
	return convertAnswer(row), nil
}

func (s *Store) InsertAnswer(ctx context.Context, a *services.Answer) (*services.Answer, error) {
	created := a.CreatedAt.UTC()
	if a.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO answers (question_id, body, author_id, accepted, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		a.QuestionID, a.Body, a.AuthorID, false, created,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert answer: %w", err)
	}
	return &services.Answer{ID: id, QuestionID: a.QuestionID, Body: a.Body, AuthorID: a.AuthorID, CreatedAt: created}, nil
}

// AcceptAnswer clears the siblings before setting the target so the partial
// unique index on accepted answers is never violated mid-transaction.
func (s *Store) AcceptAnswer(ctx context.Context, questionID, answerID int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE answers SET accepted = ? WHERE question_id = ? AND id <> ? AND accepted = ?`),
		false, questionID, answerID, true,
	); err != nil {
		return false, fmt.Errorf("clear accepted answers: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		s.q(`UPDATE answers SET accepted = ? WHERE id = ? AND question_id = ?`),
		true, answerID, questionID,
	)
	if err != nil {
		return false, fmt.Errorf("accept answer %d: %w", answerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit accept: %w", err)
	}
	return true, nil
}

func (s *Store) RevokeAcceptance(ctx context.Context, answerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE answers SET accepted = ? WHERE id = ?`), false, answerID)
	if err != nil {
		return false, fmt.Errorf("revoke acceptance %d: %w", answerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Scraped questions

func (s *Store) InsertScrapedQuestion(ctx context.Context, sq *services.ScrapedQuestion) (*services.ScrapedQuestion, error) {
	tags, err := encodeTags(sq.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	scrapedAt := sq.ScrapedAt.UTC()
	if sq.ScrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	var id int64
	err = s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO scraped_questions (title, url, votes, views, answers, tags, scraped_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		sq.Title, toNullString(sq.URL), sq.Votes, sq.Views, sq.Answers, tags, scrapedAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert scraped question: %w", err)
	}
	out := *sq
	out.ID = id
	out.ScrapedAt = scrapedAt
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return &out, nil
}

func (s *Store) GetScrapedQuestion(ctx context.Context, id int64) (*services.ScrapedQuestion, error) {
	var row scrapedRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+scrapedColumns+` FROM scraped_questions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scraped question %d: %w", id, err)
	}
	return convertScraped(row), nil
}

func (s *Store) ListScrapedQuestions(ctx context.Context) ([]*services.ScrapedQuestion, error) {
	var rows []scrapedRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+scrapedColumns+` FROM scraped_questions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list scraped questions: %w", err)
	}
	out := make([]*services.ScrapedQuestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertScraped(r))
	}
	return out, nil
}

func (s *Store) UpdateScrapedQuestion(ctx context.Context, sq *services.ScrapedQuestion) (bool, error) {
	tags, err := encodeTags(sq.Tags)
	if err != nil {
		return false, fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE scraped_questions SET title = ?, url = ?, votes = ?, views = ?, answers = ?, tags = ? WHERE id = ?`),
		sq.Title, toNullString(sq.URL), sq.Votes, sq.Views, sq.Answers, tags, sq.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update scraped question %d: %w", sq.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteScrapedQuestion(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM scraped_questions WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete scraped question %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Users

func (s *Store) AddUser(ctx context.Context, u *services.User) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (id, username, email, pass_hash, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Username, toNullString(u.Email), u.PassHash, u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (*services.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		s.q(`SELECT id, username, email, pass_hash, created_at FROM users WHERE lower(username) = lower(?) OR lower(email) = lower(?) LIMIT 1`),
		login, login,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &services.User{ID: row.ID, Username: row.Username, Email: row.Email.String, PassHash: row.PassHash, CreatedAt: row.CreatedAt.UTC()}, nil
}
