// Package retriever maintains one lazily-built passage retriever per tenant
// namespace. Retrievers are constructed from the tenant's Markdown corpus on
// first use, cached for the lifetime of the process, and shared safely across
// concurrent webhook requests.
package retriever

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voiceline/voice-agent-backend/internal/search"
)

// DefaultTopK is the number of passages returned when the caller does not
// override it.
const DefaultTopK = 5

// mmrLambda balances relevance against diversity when selecting passages.
const mmrLambda = 0.5

// Passage is one retrieved snippet of tenant knowledge.
type Passage struct {
	Text  string
	Score float64
}

// Retriever answers free-text queries with the most relevant corpus passages.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

type indexRetriever struct {
	idx search.Index
}

func (r *indexRetriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}
	results := r.idx.TopKDiverse(query, k, mmrLambda)
	out := make([]Passage, 0, len(results))
	for _, res := range results {
		out = append(out, Passage{Text: res.Snippet, Score: res.Score})
	}
	return out, nil
}

// Cache builds and memoizes one Retriever per namespace. The zero value is
// not usable; construct with NewCache.
type Cache struct {
	dataDir string
	opts    []search.Option

	mu      sync.Mutex
	entries map[string]Retriever
}

// NewCache returns a Cache that loads tenant corpora from
// dataDir/<namespace>.md. Extra search options apply to every index built.
func NewCache(dataDir string, opts ...search.Option) *Cache {
	return &Cache{
		dataDir: dataDir,
		opts:    opts,
		entries: make(map[string]Retriever),
	}
}

// GetOrCreate returns the cached retriever for namespace, building it on
// first use. A namespace with no corpus file gets an empty retriever that
// matches nothing; this is logged once at build time, not treated as an
// error, so calls for unprovisioned tenants still get a working agent.
func (c *Cache) GetOrCreate(namespace string) (Retriever, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.entries[namespace]; ok {
		return r, nil
	}

	r, err := c.build(namespace)
	if err != nil {
		return nil, err
	}
	c.entries[namespace] = r
	return r, nil
}

// Invalidate drops the cached retriever for namespace so the next
// GetOrCreate rebuilds it from the corpus on disk. It reports whether an
// entry was present.
func (c *Cache) Invalidate(namespace string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[namespace]
	delete(c.entries, namespace)
	return ok
}

// CorpusPath returns the on-disk location of a namespace's corpus file.
func (c *Cache) CorpusPath(namespace string) string {
	return filepath.Join(c.dataDir, namespace+".md")
}

func (c *Cache) build(namespace string) (Retriever, error) {
	path := c.CorpusPath(namespace)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("namespace", namespace).Str("path", path).
			Msg("no corpus for tenant; serving empty retriever")
		return &indexRetriever{idx: search.NewIndexFromStrings(nil)}, nil
	}
	if err != nil {
		return nil, err
	}

	flat, err := search.FlattenCorpus(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	idx, err := search.NewIndexFromReader(bytes.NewReader(flat), c.opts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("namespace", namespace).Int("corpus_bytes", len(raw)).
		Msg("built tenant retriever")
	return &indexRetriever{idx: idx}, nil
}
