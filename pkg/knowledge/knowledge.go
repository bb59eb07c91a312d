// Package knowledge answers policy and troubleshooting questions from an
// embedded document corpus via vector similarity search. The corpus holds no
// customer data, so searches never require identity verification.
package knowledge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

//go:embed corpus/*.md
var corpusFS embed.FS

const (
	defaultCollection = "support-knowledge"
	defaultTopK       = 3
)

type Searcher struct {
	db         *chromem.DB
	collection *chromem.Collection
	topK       int
}

var _ contractx.KnowledgeSearcher = (*Searcher)(nil)

type Option func(*Searcher)

func WithTopK(k int) Option {
	return func(s *Searcher) {
		if k > 0 {
			s.topK = k
		}
	}
}

// New builds the searcher and indexes the embedded corpus. The embedding
// function decides how documents and queries are vectorized; tests pass a
// deterministic local function, production passes a remote embeddings API.
func New(ctx context.Context, embed chromem.EmbeddingFunc, opts ...Option) (*Searcher, error) {
	if embed == nil {
		return nil, errors.New("knowledge: embedding func is required")
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(defaultCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("knowledge: create collection: %w", err)
	}

	s := &Searcher{db: db, collection: collection, topK: defaultTopK}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.indexCorpus(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Searcher) indexCorpus(ctx context.Context) error {
	entries, err := fs.ReadDir(corpusFS, "corpus")
	if err != nil {
		return fmt.Errorf("knowledge: read corpus dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		raw, err := corpusFS.ReadFile(path.Join("corpus", name))
		if err != nil {
			return fmt.Errorf("knowledge: read corpus file %s: %w", name, err)
		}

		id := strings.TrimSuffix(name, ".md")
		err = s.collection.AddDocument(ctx, chromem.Document{
			ID:      id,
			Content: string(raw),
			Metadata: map[string]string{
				"source": name,
			},
		})
		if err != nil {
			return fmt.Errorf("knowledge: index document %s: %w", id, err)
		}
	}
	return nil
}

func (s *Searcher) Search(ctx context.Context, query string) ([]contractx.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", contractx.ErrValidation)
	}

	topK := s.topK
	if count := s.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: knowledge query: %v", contractx.ErrTransient, err)
	}

	passages := make([]contractx.Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, contractx.Passage{
			ID:      r.ID,
			Content: r.Content,
			Score:   r.Similarity,
		})
	}
	return passages, nil
}
