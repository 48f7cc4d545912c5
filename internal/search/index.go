// Package search provides a simple, deterministic, concurrency-safe in-memory
// passage index built from a tenant's Markdown corpus. It is intentionally
// small and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Base scoring uses Jaccard similarity between the query token set and each
// paragraph's token set: score = |Q ∩ P| / |Q ∪ P|. TopKDiverse re-ranks the
// candidates with maximal marginal relevance so the returned passages balance
// relevance to the query with diversity among themselves.
package search

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Result is a ranked passage with its similarity score.
type Result struct {
	Snippet string
	Score   float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	// TopK returns up to k passages ranked purely by relevance.
	TopK(query string, k int) []Result
	// TopKDiverse returns up to k passages selected by maximal marginal
	// relevance with trade-off parameter lambda in [0,1] (1 = pure
	// relevance, 0 = pure diversity).
	TopKDiverse(query string, k int, lambda float64) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minParagraphRunes int
	stopwords         map[string]struct{}
	maxDocs           int
}

func defaultConfig() config {
	return config{
		minParagraphRunes: 40,
		stopwords:         nil,
		maxDocs:           0,
	}
}

func WithMinParagraphRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minParagraphRunes = n
		}
	}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	text   string
	tokens map[string]struct{}
	tLen   int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndexFromMarkdown builds an Index by reading the Markdown at path
// and delegating to NewIndexFromReader (in-memory).
func NewIndexFromMarkdown(path string, opts ...Option) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return &index{cfg: defaultConfig(), docs: nil}, err
	}
	return NewIndexFromReader(bytes.NewReader(b), opts...)
}

// NewIndexFromReader builds an Index from UTF-8 text provided by r.
// The reader is fully consumed; paragraphs are split on blank lines.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	all, err := io.ReadAll(r)
	if err != nil {
		return &index{cfg: cfg, docs: nil}, err
	}
	paras := splitParasFromBytes(all)
	return buildIndex(paras, cfg), nil
}

// NewIndexFromStrings builds an Index directly from a slice of paragraphs.
func NewIndexFromStrings(paragraphs []string, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(paragraphs, cfg)
}

func buildIndex(paragraphs []string, cfg config) *index {
	docs := make([]doc, 0, len(paragraphs))
	count := 0
	for _, raw := range paragraphs {
		t := strings.TrimSpace(normalizeWhitespace(raw))
		if t == "" {
			continue
		}
		if cfg.minParagraphRunes > 0 && utf8.RuneCountInString(t) < cfg.minParagraphRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{text: t, tokens: toks, tLen: len(toks)})
		count++
		if cfg.maxDocs > 0 && count >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching paragraphs by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	cands := i.candidates(q)
	if len(cands) == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]Result, k)
	for j := 0; j < k; j++ {
		out[j] = Result{Snippet: cands[j].text, Score: cands[j].score}
	}
	return out
}

// TopKDiverse selects up to k passages with maximal marginal relevance:
// starting from the most relevant candidate, each subsequent pick maximizes
//
//	lambda*relevance - (1-lambda)*max similarity to already-picked passages
//
// over a candidate pool of 4k. Similarity between passages is Jaccard over
// their token sets. With lambda outside [0,1] the value is clamped.
func (i *index) TopKDiverse(q string, k int, lambda float64) []Result {
	if k <= 0 {
		k = 3
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}

	pool := i.candidates(q)
	if len(pool) == 0 {
		return nil
	}
	if poolCap := k * 4; len(pool) > poolCap {
		pool = pool[:poolCap]
	}

	picked := make([]scoredDoc, 0, k)
	remaining := make([]scoredDoc, len(pool))
	copy(remaining, pool)

	for len(picked) < k && len(remaining) > 0 {
		bestIdx := 0
		bestVal := -1.0
		for idx, c := range remaining {
			redundancy := 0.0
			for _, p := range picked {
				if sim := jaccard(c.tokens, p.tokens); sim > redundancy {
					redundancy = sim
				}
			}
			val := lambda*c.score - (1-lambda)*redundancy
			if val > bestVal {
				bestVal = val
				bestIdx = idx
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]Result, len(picked))
	for j, p := range picked {
		out[j] = Result{Snippet: p.text, Score: p.score}
	}
	return out
}

// scoredDoc pairs a document with its query relevance for MMR selection.
type scoredDoc struct {
	text     string
	tokens   map[string]struct{}
	score    float64
	lenRunes int
}

// candidates scores every document against the query and returns them sorted
// by descending score (ties broken by length, then text, for determinism).
func (i *index) candidates(q string) []scoredDoc {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]scoredDoc, 0, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if score <= 0 {
			continue
		}
		buf = append(buf, scoredDoc{
			text:     d.text,
			tokens:   d.tokens,
			score:    score,
			lenRunes: utf8.RuneCountInString(d.text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].text < buf[b].text
	})
	return buf
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := overlap(a, b)
	if inter == 0 {
		return 0
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var paraSplitRE = regexp.MustCompile(`\n\s*\n`)

func splitParasFromBytes(all []byte) []string {
	raw := string(all)
	chunks := paraSplitRE.Split(raw, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}
