package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/stackapp/internal/api"
	"github.com/soaringjerry/stackapp/internal/config"
	"github.com/soaringjerry/stackapp/internal/db"
	"github.com/soaringjerry/stackapp/internal/drafts"
	"github.com/soaringjerry/stackapp/internal/middleware"
	"github.com/soaringjerry/stackapp/internal/scraper"
	"github.com/soaringjerry/stackapp/internal/search"
	"github.com/soaringjerry/stackapp/internal/services"
)

// app owns every long-lived dependency built from the config.
type app struct {
	cfg   config.Config
	conn  *sqlx.DB
	store *db.Store
	redis *redis.Client
	// indexer is nil when no Elasticsearch address is configured.
	indexer *search.Indexer
	jwt     *middleware.JWT

	questions *services.QuestionService
	answers   *services.AnswerService
	scraped   *services.ScrapedQuestionService
	scrape    *services.ScrapeService
	auth      *services.AuthService
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	if err := db.RunMigrations(conn, cfg.Database.MigrationsDir); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if a.store, err = db.NewStore(conn); err != nil {
		return nil, err
	}

	var draftStore services.DraftStore = drafts.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		draftStore = drafts.NewRedisStore(a.redis)
	} else {
		log.Printf("drafts: no redis address configured, keeping drafts in memory")
	}

	var indexer services.QuestionIndexer
	if len(cfg.Elasticsearch.Addresses) > 0 {
		es, err := search.NewClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch client: %w", err)
		}
		a.indexer = search.NewIndexer(es, cfg.Elasticsearch.Index)
		if err := a.indexer.EnsureIndex(ctx); err != nil {
			log.Printf("search: %v", err)
		}
		indexer = a.indexer
	} else {
		log.Printf("search: no elasticsearch addresses configured, search disabled")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sc, err := scraper.New(scraper.Config{
		BaseURL:   cfg.Scraper.BaseURL,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		Selectors: cfg.Scraper.Selectors,
	}, nil)
	if err != nil {
		return nil, err
	}

	a.jwt = middleware.NewJWT(cfg.App.JWTSecret)
	a.questions = services.NewQuestionService(a.store, draftStore, indexer, loc)
	a.answers = services.NewAnswerService(a.store)
	a.scraped = services.NewScrapedQuestionService(a.store)
	a.scrape = services.NewScrapeService(sc, a.store, cfg.Scraper.MaxPages)
	a.auth = services.NewAuthService(a.store, a.jwt.SignToken)
	ok = true
	return a, nil
}

func (a *app) router() *api.Router {
	opts := api.Options{
		Questions:          a.questions,
		Answers:            a.answers,
		Scraped:            a.scraped,
		Scraper:            a.scrape,
		Auth:               a.auth,
		JWT:                a.jwt,
		CORSOrigins:        a.cfg.App.CORSOrigins,
		DefaultScrapePages: a.cfg.Scraper.DefaultPages,
	}
	// a typed nil would make the search route think it is configured
	if a.indexer != nil {
		opts.Search = a.indexer
	}
	return api.NewRouter(opts)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("warning: failed to close redis: %v", err)
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			log.Printf("warning: failed to close db: %v", err)
		}
	}
}
