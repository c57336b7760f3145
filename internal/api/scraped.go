package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/soaringjerry/stackapp/internal/services"
)

// GET /api/scrapedquestions/
func (rt *Router) handleScrapedList(w http.ResponseWriter, r *http.Request) {
	items, err := rt.opts.Scraped.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/scrapedquestions/
func (rt *Router) handleScrapedCreate(w http.ResponseWriter, r *http.Request) {
	var sq services.ScrapedQuestion
	if err := decodeJSON(r, &sq); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := rt.opts.Scraped.Create(r.Context(), sq)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", rt.url("scrapedquestion_detail", "id", strconv.FormatInt(created.ID, 10)))
	writeJSON(w, http.StatusCreated, created)
}

// GET /api/scrapedquestions/{id}/
func (rt *Router) handleScrapedDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	sq, err := rt.opts.Scraped.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sq)
}

// PUT /api/scrapedquestions/{id}/
func (rt *Router) handleScrapedUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var sq services.ScrapedQuestion
	if err := decodeJSON(r, &sq); err != nil {
		badRequest(w, err.Error())
		return
	}
	updated, err := rt.opts.Scraped.Update(r.Context(), id, sq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PATCH /api/scrapedquestions/{id}/
func (rt *Router) handleScrapedPatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var p services.ScrapedQuestionPatch
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, err.Error())
		return
	}
	updated, err := rt.opts.Scraped.Patch(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/scrapedquestions/{id}/
func (rt *Router) handleScrapedDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(mux.Vars(r), "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := rt.opts.Scraped.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET|POST /api/scrape?pages=N
// A failing page still reports how many rows were stored before it.
func (rt *Router) handleScrape(w http.ResponseWriter, r *http.Request) {
	pages := rt.opts.DefaultScrapePages
	if raw := r.URL.Query().Get("pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]string{"pages": "A valid integer is required."}})
			return
		}
		pages = n
	}
	status, err := rt.opts.Scraper.ScrapeLatest(r.Context(), pages)
	if err != nil {
		se, ok := services.AsServiceError(err)
		if ok && se.Code == services.ErrorBadGateway && status != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":   se.Message,
				"pages":   status.Pages,
				"scraped": status.Stored,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
