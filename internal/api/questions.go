package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/soaringjerry/stackapp/internal/middleware"
	"github.com/soaringjerry/stackapp/internal/search"
	"github.com/soaringjerry/stackapp/internal/services"
)

const maxSearchResults = 50

func (rt *Router) dayURL(t time.Time) string {
	return rt.url("daily_questions",
		"year", strconv.Itoa(t.Year()),
		"month", strconv.Itoa(int(t.Month())),
		"day", strconv.Itoa(t.Day()),
	)
}

// GET / redirects to today's list in the service timezone.
func (rt *Router) handleToday(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, rt.dayURL(rt.opts.Questions.Today()), http.StatusFound)
}

// GET /daily/{year}/{month}/{day}/
func (rt *Router) handleDaily(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, _ := strconv.Atoi(vars["year"])
	month, _ := strconv.Atoi(vars["month"])
	day, _ := strconv.Atoi(vars["day"])

	qs, date, err := rt.opts.Questions.ListByDay(r.Context(), year, month, day)
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]any{
		"date":         date.Format("2006-01-02"),
		"questions":    qs,
		"previous_day": rt.dayURL(date.AddDate(0, 0, -1)),
	}
	if next := date.AddDate(0, 0, 1); !next.After(rt.opts.Questions.Today()) {
		out["next_day"] = rt.dayURL(next)
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /ask returns the initial form values, including a stored preview draft.
func (rt *Router) handleAskForm(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	form, err := rt.opts.Questions.AskInitial(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// POST /ask with action=SAVE or action=PREVIEW
func (rt *Router) handleAsk(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	vals, err := formValues(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := rt.opts.Questions.Ask(r.Context(), uid, services.AskRequest{
		Action: strings.ToUpper(strings.TrimSpace(vals.Get("action"))),
		Title:  vals.Get("title"),
		Body:   vals.Get("question"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Preview != nil {
		writeJSON(w, http.StatusOK, map[string]any{"preview": res.Preview})
		return
	}
	w.Header().Set("Location", rt.questionURL(res.Question.ID))
	writeJSON(w, http.StatusCreated, res.Question)
}

type questionDetailResponse struct {
	Question  *services.Question `json:"question"`
	Answers   []*services.Answer `json:"answers"`
	CanAccept bool               `json:"can_accept"`
	AnswerURL string             `json:"answer_url"`
}

// GET /question/{pk}
func (rt *Router) handleQuestionDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "pk")
	if !ok {
		http.NotFound(w, r)
		return
	}
	d, err := rt.opts.Questions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, questionDetailResponse{
		Question:  d.Question,
		Answers:   d.Answers,
		CanAccept: uid != "" && uid == d.Question.AuthorID,
		AnswerURL: rt.url("answer_question", "pk", strconv.FormatInt(id, 10)),
	})
}

// POST /question/{pk}/answer
func (rt *Router) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "pk")
	if !ok {
		http.NotFound(w, r)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	vals, err := formValues(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	a, err := rt.opts.Answers.Create(r.Context(), id, uid, vals.Get("answer"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", rt.questionURL(id))
	writeJSON(w, http.StatusCreated, a)
}

// POST /question/{pk}/accept where pk is the answer id. Both success and a
// refused change redirect back to the question.
func (rt *Router) handleAcceptance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "pk")
	if !ok {
		http.NotFound(w, r)
		return
	}
	vals, err := formValues(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	accepted, err := parseBool(vals.Get("accepted"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]string{"accepted": "Must be a valid boolean."}})
		return
	}
	a, err := rt.opts.Answers.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	_, err = rt.opts.Answers.SetAcceptance(r.Context(), a.QuestionID, a.ID, accepted, uid)
	if err != nil && !services.IsCode(err, services.ErrorForbidden) {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, rt.questionURL(a.QuestionID), http.StatusSeeOther)
}

// GET /q/search?q=
func (rt *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Search == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search is not configured"})
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results := []search.Document{}
	if query != "" {
		seq, err := rt.opts.Search.Search(r.Context(), query)
		if err != nil {
			writeError(w, services.NewBadGatewayError(err.Error()))
			return
		}
		for d := range seq {
			results = append(results, d)
			if len(results) == maxSearchResults {
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}
