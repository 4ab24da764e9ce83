// Package index embeds chunks and answers nearest-neighbour queries over them.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"justify/internal/domain"
	"justify/internal/embedding"
	"justify/internal/textutil"
	"justify/internal/vectorstore"
)

// DefaultTopK is used when a query asks for a non-positive number of results.
const DefaultTopK = 4

// Index pairs an embedder with a vector store. Build is the only update path.
type Index struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	log      *zap.Logger

	mu     sync.RWMutex
	chunks []domain.Chunk
}

// New returns an empty index. Queries fail with domain.ErrEmptyIndex until Build succeeds.
func New(embedder embedding.Embedder, store vectorstore.Storage, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{embedder: embedder, store: store, log: log.Named("index")}
}

// Build discards every previously stored vector, then embeds and stores chunks.
// A failed build leaves the index empty.
func (x *Index) Build(ctx context.Context, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.chunks = nil
	if err := x.store.Clear(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("build: no chunks: %w", domain.ErrEmptyIndex)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := x.embedder.Prepare(ctx, texts); err != nil {
		return fmt.Errorf("prepare %s embedder: %w", x.embedder.Name(), err)
	}

	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := x.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = embedding.Normalize(vec)
	}

	if err := x.store.Init(len(vectors[0])); err != nil {
		return err
	}
	if err := x.store.Upsert(chunks, vectors); err != nil {
		_ = x.store.Clear()
		return err
	}
	x.chunks = append([]domain.Chunk(nil), chunks...)
	x.log.Info("index built",
		zap.String("embedder", x.embedder.Name()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", len(vectors[0])),
	)
	return nil
}

// Reset drops every indexed chunk.
func (x *Index) Reset() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = nil
	return x.store.Clear()
}

// Len reports how many chunks are indexed.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Query returns the topK chunks most similar to question, highest score first.
// When the question shares no vocabulary with the corpus the ranking falls
// back to lexical overlap.
func (x *Index) Query(ctx context.Context, question string, topK int) ([]domain.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := x.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if embedding.IsZero(vec) {
		x.log.Debug("zero query vector, using lexical ranking")
		return x.lexicalSearch(question, topK), nil
	}
	res, err := x.store.Search(embedding.Normalize(vec), topK)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return x.lexicalSearch(question, topK), nil
	}
	return res, nil
}

func (x *Index) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := textutil.TokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(x.chunks))
	for i, ch := range x.chunks {
		scores[i] = pair{i, overlapOchiai(qset, ch.Text)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		p := scores[i]
		out = append(out, domain.SearchResult{Chunk: x.chunks[p.idx], Score: p.score})
	}
	return out
}

// overlapOchiai computes |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	tset := textutil.TokenSet(text)
	if len(qset) == 0 || len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(tset)))
}
