// internal/search/client.go
package search

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"prompt-retrieval/internal/common/errors"
	"prompt-retrieval/internal/common/logger"
	"prompt-retrieval/internal/common/metrics"
	similaritysearch "prompt-retrieval/internal/strategies/similarity-search"
)

const vectorField = "questionTextVector"

// Embedder turns question text into the query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds index and caching settings for the vector search client.
type Config struct {
	IndexName string
	TopK      int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// Client searches the prompt library index by kNN over question
// embeddings. Results are cached in Redis keyed by the question text
// so repeated questions within the TTL skip the embedding call.
type Client struct {
	es       *elasticsearch.Client
	redis    *redis.Client
	embedder Embedder
	config   Config
	logger   logger.Logger
}

// New builds a search client. The redis client is optional; pass nil to
// disable caching.
func New(es *elasticsearch.Client, redisClient *redis.Client, embedder Embedder, cfg Config, log logger.Logger) *Client {
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	return &Client{
		es:       es,
		redis:    redisClient,
		embedder: embedder,
		config:   cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "similarity-search"}),
	}
}

// Search returns candidate prompts for the question text, best first.
func (c *Client) Search(ctx context.Context, questionText string) ([]similaritysearch.Candidate, error) {
	cacheKey := c.buildCacheKey(questionText)

	if cached, ok := c.readCache(ctx, cacheKey); ok {
		metrics.SimilaritySearchCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.SimilaritySearchCacheHits.WithLabelValues("miss").Inc()

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	vector, err := c.embedder.EmbedQuery(ctx, questionText)
	if err != nil {
		return nil, err
	}

	candidates, err := c.knnSearch(ctx, vector)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchTimeoutError()
		}
		return nil, err
	}

	c.writeCache(ctx, cacheKey, candidates)
	return candidates, nil
}

func (c *Client) knnSearch(ctx context.Context, vector []float32) ([]similaritysearch.Candidate, error) {
	numCandidates := c.config.TopK * 10
	if numCandidates < 100 {
		numCandidates = 100
	}

	body := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          vectorField,
			"query_vector":   vector,
			"k":              c.config.TopK,
			"num_candidates": numCandidates,
		},
		"size":    c.config.TopK,
		"_source": []string{"promptText", "questionText", "questionId"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.config.IndexName),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, errors.NewIndexNotFoundError(c.config.IndexName)
		}
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search query failed: %s", res.String()))
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	return parseHits(r), nil
}

func parseHits(r map[string]interface{}) []similaritysearch.Candidate {
	hitsWrapper, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil
	}
	rawHits, ok := hitsWrapper["hits"].([]interface{})
	if !ok {
		return nil
	}

	candidates := make([]similaritysearch.Candidate, 0, len(rawHits))
	for _, raw := range rawHits {
		hit, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		score, _ := hit["_score"].(float64)
		source, _ := hit["_source"].(map[string]interface{})

		candidate := similaritysearch.Candidate{Score: clampScore(score)}
		if source != nil {
			candidate.PromptText, _ = source["promptText"].(string)
			candidate.QuestionText, _ = source["questionText"].(string)
		}
		if candidate.PromptText == "" {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// ES cosine kNN scores land in [0,1] already; clamp shields against
// float drift and other similarity metrics on the index.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (c *Client) buildCacheKey(questionText string) string {
	sum := sha256.Sum256([]byte(questionText))
	return "similarity:" + hex.EncodeToString(sum[:])
}

func (c *Client) readCache(ctx context.Context, key string) ([]similaritysearch.Candidate, bool) {
	if c.redis == nil || c.config.CacheTTL <= 0 {
		return nil, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}

	var candidates []similaritysearch.Candidate
	if err := json.Unmarshal([]byte(val), &candidates); err != nil {
		c.logger.Warn("discarding malformed cache entry", map[string]interface{}{"key": key})
		c.redis.Del(ctx, key)
		return nil, false
	}
	return candidates, true
}

func (c *Client) writeCache(ctx context.Context, key string, candidates []similaritysearch.Candidate) {
	if c.redis == nil || c.config.CacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.config.CacheTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
