package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine returns a fixed vector per text and counts calls. Warm
// embeds concurrently, so the counter is mutex-guarded.
type fakeEngine struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
}

func newFakeEngine(vectors map[string][]float32) *fakeEngine {
	return &fakeEngine{vectors: vectors, calls: map[string]int{}}
}

func (f *fakeEngine) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[text]++
	return f.vectors[text], nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return 2 }
func (f *fakeEngine) Name() string    { return "fake" }

func TestOracleScore(t *testing.T) {
	engine := newFakeEngine(map[string][]float32{
		"delta-v for Mars": {1, 0},
		"orbital mechanics": {1, 0},
	})
	o := NewEmbeddingOracle(engine, zap.NewNop())

	score, err := o.Score(context.Background(), "delta-v for Mars", "orbital mechanics")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
}

func TestOracleCachesDomainVectors(t *testing.T) {
	engine := newFakeEngine(map[string][]float32{
		"q1":                {1, 0},
		"q2":                {0, 1},
		"orbital mechanics": {1, 0},
	})
	o := NewEmbeddingOracle(engine, zap.NewNop())
	ctx := context.Background()

	_, err := o.Score(ctx, "q1", "orbital mechanics")
	require.NoError(t, err)
	_, err = o.Score(ctx, "q2", "orbital mechanics")
	require.NoError(t, err)

	assert.Equal(t, 1, engine.calls["orbital mechanics"], "domain embedded once")
	assert.Equal(t, 1, engine.calls["q1"])
	assert.Equal(t, 1, engine.calls["q2"])
}

func TestOracleEmbedsQueryOncePerRoutingPass(t *testing.T) {
	// The router scores one query against every roster domain; the
	// query must be embedded once, not once per domain.
	engine := newFakeEngine(map[string][]float32{
		"fund the boost program": {1, 0},
		"macroeconomics":         {1, 0},
		"orbital mechanics":      {0, 1},
		"counterintelligence":    {1, 1},
	})
	o := NewEmbeddingOracle(engine, zap.NewNop())
	ctx := context.Background()

	for _, domain := range []string{"macroeconomics", "orbital mechanics", "counterintelligence"} {
		_, err := o.Score(ctx, "fund the boost program", domain)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, engine.calls["fund the boost program"])

	// A new query displaces the memo.
	engine.vectors["where are the aliens"] = []float32{0, 1}
	_, err := o.Score(ctx, "where are the aliens", "macroeconomics")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls["where are the aliens"])
}

func TestOracleClampsNegativeSimilarity(t *testing.T) {
	engine := newFakeEngine(map[string][]float32{
		"query":  {1, 0},
		"domain": {-1, 0},
	})
	o := NewEmbeddingOracle(engine, zap.NewNop())

	score, err := o.Score(context.Background(), "query", "domain")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestOracleEmptyDomain(t *testing.T) {
	o := NewEmbeddingOracle(newFakeEngine(nil), zap.NewNop())
	score, err := o.Score(context.Background(), "query", "   ")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestOracleWarm(t *testing.T) {
	engine := newFakeEngine(map[string][]float32{
		"d1": {1, 0},
		"d2": {0, 1},
		"q":  {1, 0},
	})
	o := NewEmbeddingOracle(engine, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, o.Warm(ctx, []string{"d1", "d2"}))

	_, err := o.Score(ctx, "q", "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls["d1"], "warmed domains are not re-embedded")
}
