package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/stackapp/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, RunMigrations(conn, ""))
	st, err := NewStore(conn)
	require.NoError(t, err)
	return st
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	conn, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, RunMigrations(conn, ""))
	require.NoError(t, RunMigrations(conn, ""))
}

func TestQuestionsAndDayRange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{
		day.Add(-time.Minute),
		day.Add(9 * time.Hour),
		day.Add(15 * time.Hour),
		day.Add(24 * time.Hour),
	} {
		_, err := st.InsertQuestion(ctx, &services.Question{Title: "q", Body: "b", AuthorID: "u1", CreatedAt: at})
		require.NoError(t, err, "insert %d", i)
	}

	qs, err := st.ListQuestionsBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.True(t, qs[0].CreatedAt.After(qs[1].CreatedAt), "newest first")
	assert.Equal(t, 15, qs[0].CreatedAt.Hour())

	all, err := st.ListQuestions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := st.GetQuestion(ctx, all[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.AuthorID)

	missing, err := st.GetQuestion(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAcceptAnswerKeepsSingleAccepted(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	q, err := st.InsertQuestion(ctx, &services.Question{Title: "Why?", Body: "X", AuthorID: "uA"})
	require.NoError(t, err)
	a, err := st.InsertAnswer(ctx, &services.Answer{QuestionID: q.ID, Body: "A", AuthorID: "u1"})
	require.NoError(t, err)
	b, err := st.InsertAnswer(ctx, &services.Answer{QuestionID: q.ID, Body: "B", AuthorID: "u2"})
	require.NoError(t, err)
	assert.False(t, a.Accepted)

	ok, err := st.AcceptAnswer(ctx, q.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.AcceptAnswer(ctx, q.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	answers, err := st.ListAnswers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.False(t, answers[0].Accepted)
	assert.True(t, answers[1].Accepted)

	ok, err = st.RevokeAcceptance(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := st.GetAnswer(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Accepted)

	// wrong question: nothing changes and the clear is rolled back
	_, err = st.AcceptAnswer(ctx, q.ID, a.ID)
	require.NoError(t, err)
	ok, err = st.AcceptAnswer(ctx, q.ID+1, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	got, err = st.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Accepted)
}

func TestUniqueAcceptedIndex(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q, _ := st.InsertQuestion(ctx, &services.Question{Title: "T", Body: "B", AuthorID: "uA"})
	a, _ := st.InsertAnswer(ctx, &services.Answer{QuestionID: q.ID, Body: "A", AuthorID: "u1"})
	b, _ := st.InsertAnswer(ctx, &services.Answer{QuestionID: q.ID, Body: "B", AuthorID: "u1"})

	_, err := st.db.Exec(`UPDATE answers SET accepted = 1 WHERE id IN (?, ?)`, a.ID, b.ID)
	assert.Error(t, err)
}

func TestScrapedQuestionCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.InsertScrapedQuestion(ctx, &services.ScrapedQuestion{
		Title: "How to X?", URL: "https://stackoverflow.com/q/1", Votes: -2, Views: 1200, Answers: 3,
		Tags: []string{"python", "django"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.False(t, created.ScrapedAt.IsZero())

	got, err := st.GetScrapedQuestion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "django"}, got.Tags)
	assert.Equal(t, -2, got.Votes)

	got.Title = "How to Y?"
	got.Tags = nil
	ok, err := st.UpdateScrapedQuestion(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := st.ListScrapedQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "How to Y?", list[0].Title)
	assert.Equal(t, []string{}, list[0].Tags)

	ok, err = st.DeleteScrapedQuestion(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.DeleteScrapedQuestion(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersFindByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.AddUser(ctx, &services.User{ID: "u1", Username: "Alice", Email: "alice@example.com", PassHash: []byte("h"), CreatedAt: time.Now()}))
	require.NoError(t, st.AddUser(ctx, &services.User{ID: "u2", Username: "bob", PassHash: []byte("h"), CreatedAt: time.Now()}))

	u, err := st.FindUserByLogin(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	u, err = st.FindUserByLogin(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, []byte("h"), u.PassHash)

	u, err = st.FindUserByLogin(ctx, "carol")
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.Error(t, st.AddUser(ctx, &services.User{ID: "u3", Username: "bob", PassHash: []byte("h"), CreatedAt: time.Now()}))
}
