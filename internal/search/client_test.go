// internal/search/client_test.go
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-retrieval/internal/common/logger"
	similaritysearch "prompt-retrieval/internal/strategies/similarity-search"
)

// ==========================
// Test Helper Functions
// ==========================

type stubEmbedder struct {
	calls int32
	err   error
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func esResponse(hits ...map[string]interface{}) string {
	wrapped := make([]interface{}, len(hits))
	for i, h := range hits {
		wrapped[i] = h
	}
	body, _ := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": len(hits)},
			"hits":  wrapped,
		},
	})
	return string(body)
}

func hit(promptText, questionText string, score float64) map[string]interface{} {
	return map[string]interface{}{
		"_score": score,
		"_source": map[string]interface{}{
			"promptText":   promptText,
			"questionText": questionText,
			"questionId":   "lib-1",
		},
	}
}

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// ==========================
// Search Tests
// ==========================

func TestSearch_ReturnsCandidatesBestFirst(t *testing.T) {
	var capturedBody map[string]interface{}
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&capturedBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse(
			hit("strong prompt", "similar question", 0.92),
			hit("weaker prompt", "another question", 0.55),
		)))
	})

	c := New(es, nil, &stubEmbedder{}, Config{IndexName: "prompt-library", TopK: 3}, logger.NewTestLogger(t))

	candidates, err := c.Search(context.Background(), "What is your refund policy?")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "strong prompt", candidates[0].PromptText)
	assert.Equal(t, "similar question", candidates[0].QuestionText)
	assert.InDelta(t, 0.92, candidates[0].Score, 0.0001)

	knn, ok := capturedBody["knn"].(map[string]interface{})
	require.True(t, ok, "request body must carry a knn clause")
	assert.Equal(t, "questionTextVector", knn["field"])
	assert.Equal(t, float64(3), knn["k"])
}

func TestSearch_EmptyHitsMeansNoCandidates(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse()))
	})

	c := New(es, nil, &stubEmbedder{}, Config{IndexName: "prompt-library"}, logger.NewTestLogger(t))

	candidates, err := c.Search(context.Background(), "never seen before")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearch_EmbedderErrorPropagates(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("search must not be called when embedding fails")
	})

	embedErr := assert.AnError
	c := New(es, nil, &stubEmbedder{err: embedErr}, Config{IndexName: "prompt-library"}, logger.NewTestLogger(t))

	_, err := c.Search(context.Background(), "question")
	assert.Error(t, err)
}

func TestSearch_IndexNotFound(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})

	c := New(es, nil, &stubEmbedder{}, Config{IndexName: "missing-index"}, logger.NewTestLogger(t))

	_, err := c.Search(context.Background(), "question")
	assert.Error(t, err)
}

func TestSearch_ScoresClampedToUnitInterval(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse(hit("drifted prompt", "q", 1.0000004))))
	})

	c := New(es, nil, &stubEmbedder{}, Config{IndexName: "prompt-library"}, logger.NewTestLogger(t))

	candidates, err := c.Search(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 1.0, candidates[0].Score)
}

// ==========================
// Cache Tests
// ==========================

func TestSearch_CacheHitSkipsEmbeddingAndSearch(t *testing.T) {
	var searches int32
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searches, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse(hit("cached prompt", "q", 0.9))))
	})

	embedder := &stubEmbedder{}
	c := New(es, newTestRedis(t), embedder, Config{
		IndexName: "prompt-library",
		CacheTTL:  time.Minute,
	}, logger.NewTestLogger(t))

	first, err := c.Search(context.Background(), "repeated question")
	require.NoError(t, err)

	second, err := c.Search(context.Background(), "repeated question")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&searches))
	assert.Equal(t, int32(1), atomic.LoadInt32(&embedder.calls))
}

func TestSearch_DistinctQuestionsDoNotShareCache(t *testing.T) {
	var searches int32
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searches, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse(hit("prompt", "q", 0.9))))
	})

	c := New(es, newTestRedis(t), &stubEmbedder{}, Config{
		IndexName: "prompt-library",
		CacheTTL:  time.Minute,
	}, logger.NewTestLogger(t))

	_, err := c.Search(context.Background(), "first question")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "second question")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&searches))
}

func TestSearch_MalformedCacheEntryIsDiscarded(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(esResponse(hit("fresh prompt", "q", 0.9))))
	})

	redisClient := newTestRedis(t)
	c := New(es, redisClient, &stubEmbedder{}, Config{
		IndexName: "prompt-library",
		CacheTTL:  time.Minute,
	}, logger.NewTestLogger(t))

	key := c.buildCacheKey("question")
	require.NoError(t, redisClient.Set(context.Background(), key, "not json", time.Minute).Err())

	candidates, err := c.Search(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "fresh prompt", candidates[0].PromptText)
}

// ==========================
// Parsing Tests
// ==========================

func TestParseHits_SkipsHitsWithoutPromptText(t *testing.T) {
	r := map[string]interface{}{
		"hits": map[string]interface{}{
			"hits": []interface{}{
				map[string]interface{}{
					"_score":  0.9,
					"_source": map[string]interface{}{"questionText": "q"},
				},
				map[string]interface{}{
					"_score":  0.8,
					"_source": map[string]interface{}{"promptText": "usable", "questionText": "q"},
				},
			},
		},
	}

	candidates := parseHits(r)
	require.Len(t, candidates, 1)
	assert.Equal(t, "usable", candidates[0].PromptText)
}

var _ similaritysearch.Searcher = (*Client)(nil)
