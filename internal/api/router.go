package api

import (
	"context"
	"iter"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/soaringjerry/stackapp/internal/middleware"
	"github.com/soaringjerry/stackapp/internal/search"
	"github.com/soaringjerry/stackapp/internal/services"
)

// Searcher is satisfied by *search.Indexer.
type Searcher interface {
	Search(ctx context.Context, query string) (iter.Seq[search.Document], error)
}

type Options struct {
	Questions *services.QuestionService
	Answers   *services.AnswerService
	Scraped   *services.ScrapedQuestionService
	Scraper   *services.ScrapeService
	Auth      *services.AuthService
	// Search may be nil; the search route then answers 503.
	Search             Searcher
	JWT                *middleware.JWT
	CORSOrigins        []string
	DefaultScrapePages int
}

type Router struct {
	opts Options
	mux  *mux.Router
}

func NewRouter(opts Options) *Router {
	if opts.DefaultScrapePages <= 0 {
		opts.DefaultScrapePages = 5
	}
	if opts.JWT == nil {
		opts.JWT = middleware.NewJWT("")
	}
	rt := &Router{opts: opts, mux: mux.NewRouter()}
	rt.register()
	return rt
}

func authed(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }

func (rt *Router) register() {
	r := rt.mux
	r.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet).Name("health")

	r.HandleFunc("/", rt.handleToday).Methods(http.MethodGet).Name("index")
	r.HandleFunc("/daily/{year:[0-9]{4}}/{month:[0-9]{1,2}}/{day:[0-9]{1,2}}/", rt.handleDaily).Methods(http.MethodGet).Name("daily_questions")
	r.Handle("/ask", authed(rt.handleAskForm)).Methods(http.MethodGet).Name("ask")
	r.Handle("/ask", authed(rt.handleAsk)).Methods(http.MethodPost)
	r.HandleFunc("/question/{pk:[0-9]+}", rt.handleQuestionDetail).Methods(http.MethodGet).Name("question_detail")
	r.Handle("/question/{pk:[0-9]+}/answer", authed(rt.handleCreateAnswer)).Methods(http.MethodPost).Name("answer_question")
	r.Handle("/question/{pk:[0-9]+}/accept", authed(rt.handleAcceptance)).Methods(http.MethodPost).Name("update_answer_acceptance")
	r.HandleFunc("/q/search", rt.handleSearch).Methods(http.MethodGet).Name("question_search")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NoStore)
	api.HandleFunc("/scrapedquestions/", rt.handleScrapedList).Methods(http.MethodGet).Name("scrapedquestion_list")
	api.Handle("/scrapedquestions/", authed(rt.handleScrapedCreate)).Methods(http.MethodPost)
	api.HandleFunc("/scrapedquestions/{id:[0-9]+}/", rt.handleScrapedDetail).Methods(http.MethodGet).Name("scrapedquestion_detail")
	api.Handle("/scrapedquestions/{id:[0-9]+}/", authed(rt.handleScrapedUpdate)).Methods(http.MethodPut)
	api.Handle("/scrapedquestions/{id:[0-9]+}/", authed(rt.handleScrapedPatch)).Methods(http.MethodPatch)
	api.Handle("/scrapedquestions/{id:[0-9]+}/", authed(rt.handleScrapedDelete)).Methods(http.MethodDelete)
	api.Handle("/scrape", authed(rt.handleScrape)).Methods(http.MethodGet, http.MethodPost).Name("scrape")
	api.HandleFunc("/auth/register", rt.handleRegister).Methods(http.MethodPost).Name("register")
	api.HandleFunc("/auth/login", rt.handleLogin).Methods(http.MethodPost).Name("login")
}

// Handler wraps the routes with the shared middleware chain.
func (rt *Router) Handler() http.Handler {
	var h http.Handler = rt.mux
	h = rt.opts.JWT.WithAuth(h)
	h = middleware.CORS(rt.opts.CORSOrigins)(h)
	return middleware.SecureHeaders(h)
}

// url reverses a named route; pairs are path variable names and values.
func (rt *Router) url(name string, pairs ...string) string {
	route := rt.mux.Get(name)
	if route == nil {
		return ""
	}
	u, err := route.URL(pairs...)
	if err != nil {
		return ""
	}
	return u.String()
}

func (rt *Router) questionURL(id int64) string {
	return rt.url("question_detail", "pk", strconv.FormatInt(id, 10))
}

// GET /health
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"name":   "stackapp",
		"search": rt.opts.Search != nil,
	})
}
