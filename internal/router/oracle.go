package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"council/internal/embedding"
)

// Oracle scores a query against an advisor's domain description,
// returning a relevance score in [0,1]. The routing layer treats it as
// a black box so tests can substitute a deterministic one.
type Oracle interface {
	Score(ctx context.Context, query, domain string) (float64, error)
}

// EmbeddingOracle implements Oracle over an embedding engine. Domain
// vectors are computed once per distinct domain string and cached for
// the life of the oracle. The query vector is memoized single-entry:
// one routing pass scores the same query against every roster domain,
// which collapses to one embedding call.
type EmbeddingOracle struct {
	engine embedding.Engine
	logger *zap.Logger

	mu        sync.Mutex
	domains   map[string][]float32
	lastQuery string
	lastVec   []float32
}

// NewEmbeddingOracle constructs the oracle. The engine handle is passed
// in explicitly; there is no process-global model state.
func NewEmbeddingOracle(engine embedding.Engine, logger *zap.Logger) *EmbeddingOracle {
	return &EmbeddingOracle{
		engine:  engine,
		logger:  logger,
		domains: map[string][]float32{},
	}
}

// Warm precomputes and caches domain vectors so the first turn does not
// pay the full roster embedding cost. Domains embed in parallel with
// bounded concurrency.
func (o *EmbeddingOracle) Warm(ctx context.Context, domains []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, d := range domains {
		g.Go(func() error {
			_, err := o.domainVector(ctx, d)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm domain vectors: %w", err)
	}
	return nil
}

// Score embeds the query and returns its cosine similarity against the
// cached domain vector, clamped to [0,1].
func (o *EmbeddingOracle) Score(ctx context.Context, query, domain string) (float64, error) {
	if strings.TrimSpace(domain) == "" {
		return 0, nil
	}

	domainVec, err := o.domainVector(ctx, domain)
	if err != nil {
		return 0, err
	}

	queryVec, err := o.queryVector(ctx, query)
	if err != nil {
		return 0, err
	}

	sim, err := embedding.CosineSimilarity(queryVec, domainVec)
	if err != nil {
		return 0, err
	}
	if sim < 0 {
		sim = 0
	}
	return sim, nil
}

func (o *EmbeddingOracle) queryVector(ctx context.Context, query string) ([]float32, error) {
	o.mu.Lock()
	if query == o.lastQuery && o.lastVec != nil {
		vec := o.lastVec
		o.mu.Unlock()
		return vec, nil
	}
	o.mu.Unlock()

	vec, err := o.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	o.mu.Lock()
	o.lastQuery = query
	o.lastVec = vec
	o.mu.Unlock()
	return vec, nil
}

func (o *EmbeddingOracle) domainVector(ctx context.Context, domain string) ([]float32, error) {
	o.mu.Lock()
	vec, ok := o.domains[domain]
	o.mu.Unlock()
	if ok {
		return vec, nil
	}

	vec, err := o.engine.Embed(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("embed domain: %w", err)
	}

	o.mu.Lock()
	o.domains[domain] = vec
	o.mu.Unlock()

	o.logger.Debug("domain vector cached", zap.Int("dimensions", len(vec)))
	return vec, nil
}
