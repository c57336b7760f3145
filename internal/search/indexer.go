package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/soaringjerry/stackapp/internal/services"
)

const DefaultIndex = "stackapp"

var _ services.QuestionIndexer = (*Indexer)(nil)

// Indexer loads question documents into one Elasticsearch index and queries it.
type Indexer struct {
	es         *elasticsearch.Client
	index      string
	flushBytes int
}

type UpsertResult struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// NewClient builds an Elasticsearch client for the given node addresses.
func NewClient(addresses []string, username, password string) (*elasticsearch.Client, error) {
	if len(addresses) == 0 {
		return nil, errors.New("no elasticsearch addresses configured")
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	if strings.TrimSpace(index) == "" {
		index = DefaultIndex
	}
	return &Indexer{es: es, index: index, flushBytes: 5 << 20}
}

func (i *Indexer) Index() string { return i.index }

// EnsureIndex creates the index with its mapping. An index that already
// exists is not an error.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if !res.IsError() {
		log.Printf("search: created index %s", i.index)
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if strings.Contains(string(body), "resource_already_exists_exception") {
		return nil
	}
	return fmt.Errorf("create index %s: %s: %s", i.index, res.Status(), strings.TrimSpace(string(body)))
}

// BulkIndex indexes every question and reports whether all of them were
// accepted. Rejected documents are logged and skipped.
func (i *Indexer) BulkIndex(ctx context.Context, questions []*services.Question) bool {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        i.es,
		Index:         i.index,
		NumWorkers:    1,
		FlushBytes:    i.flushBytes,
		FlushInterval: 30 * time.Second,
		OnError: func(_ context.Context, err error) {
			log.Printf("search: bulk: %v", err)
		},
	})
	if err != nil {
		log.Printf("search: bulk indexer: %v", err)
		return false
	}

	ok := true
	for _, q := range questions {
		body, err := json.Marshal(NewDocument(q))
		if err != nil {
			log.Printf("search: Failed to load %d: %v", q.ID, err)
			ok = false
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: documentID(q.ID),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Printf("search: Failed to load %s: %v", item.DocumentID, err)
					return
				}
				log.Printf("search: Failed to load %s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason)
			},
		})
		if err != nil {
			log.Printf("search: Failed to load %d: %v", q.ID, err)
			ok = false
		}
	}
	if err := bi.Close(ctx); err != nil {
		log.Printf("search: bulk close: %v", err)
		return false
	}
	stats := bi.Stats()
	log.Printf("search: bulk indexed %d documents, %d failed", stats.NumFlushed, stats.NumFailed)
	return ok && stats.NumFailed == 0
}

// Upsert writes q as a partial document, creating it when missing.
func (i *Indexer) Upsert(ctx context.Context, q *services.Question) (*UpsertResult, error) {
	payload, err := json.Marshal(map[string]any{
		"doc":           NewDocument(q),
		"doc_as_upsert": true,
	})
	if err != nil {
		return nil, err
	}
	res, err := i.es.Update(i.index, documentID(q.ID), bytes.NewReader(payload), i.es.Update.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("upsert %d: %w", q.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("upsert %d: %s: %s", q.ID, res.Status(), strings.TrimSpace(string(body)))
	}
	var out UpsertResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upsert response: %w", err)
	}
	return &out, nil
}

// IndexQuestion upserts q and drops the response.
func (i *Indexer) IndexQuestion(ctx context.Context, q *services.Question) error {
	_, err := i.Upsert(ctx, q)
	return err
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a match query on the text field. The returned sequence decodes
// hits as they are pulled and can only be consumed once: a second range
// continues where the first stopped.
func (i *Indexer) Search(ctx context.Context, query string) (iter.Seq[Document], error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{
		"query": map[string]any{
			"match": map[string]any{"text": query},
		},
	}); err != nil {
		return nil, err
	}
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}
	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	raw := make([]json.RawMessage, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		raw = append(raw, h.Source)
	}
	c := &cursor{hits: raw}
	return c.next, nil
}

type cursor struct {
	hits []json.RawMessage
	pos  int
}

func (c *cursor) next(yield func(Document) bool) {
	for c.pos < len(c.hits) {
		raw := c.hits[c.pos]
		c.pos++
		var d Document
		if err := json.Unmarshal(raw, &d); err != nil {
			log.Printf("search: decode hit: %v", err)
			continue
		}
		if !yield(d) {
			return
		}
	}
}
