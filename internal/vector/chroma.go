package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// Chroma metadata keys owned by the store.
const (
	chromaSeqKey       = "_seq"
	chromaDimensionKey = "dimension"
)

// ChromaStore talks to a Chroma server over its v2 REST API. The collection uses cosine
// space, so a returned distance d maps to similarity 1 - d.
type ChromaStore struct {
	rootURL      string // http://host:port
	baseURL      string // rootURL + /api/v2/tenants/{t}/databases/{d}
	httpClient   *http.Client
	collection   string
	collectionID string
	dimensions   int
	logger       *zap.Logger

	seqMu   sync.Mutex
	lastSeq int64
}

// ChromaOption configures a ChromaStore.
type ChromaOption func(*ChromaStore)

// WithChromaLogger sets the logger.
func WithChromaLogger(l *zap.Logger) ChromaOption {
	return func(s *ChromaStore) {
		s.logger = l
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ChromaOption {
	return func(s *ChromaStore) {
		s.httpClient = c
	}
}

// WithBaseURL points the store at rootURL (scheme://host:port) instead of Host and Port.
func WithBaseURL(rootURL string) ChromaOption {
	return func(s *ChromaStore) {
		s.rootURL = rootURL
	}
}

type chromaCollection struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`
}

type chromaQueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float64                `json:"distances"`
}

type chromaGetResponse struct {
	IDs []string `json:"ids"`
}

// NewChromaStore connects to Chroma and gets or creates the configured collection. It fails
// with a configuration error if the collection was provisioned for another dimension.
func NewChromaStore(ctx context.Context, cfg config.ChromaConfig, dimensions int, opts ...ChromaOption) (*ChromaStore, error) {
	const op = "vector.NewChromaStore"
	if dimensions <= 0 {
		return nil, apperr.ConfigurationError(op, "dimensions must be positive, got %d", dimensions)
	}
	if cfg.Tenant == "" {
		cfg.Tenant = "default_tenant"
	}
	if cfg.Database == "" {
		cfg.Database = "default_database"
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	s := &ChromaStore{
		rootURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		httpClient: &http.Client{Timeout: timeout},
		collection: cfg.Collection,
		dimensions: dimensions,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	s.baseURL = fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s", s.rootURL, cfg.Tenant, cfg.Database)

	if err := s.Heartbeat(ctx); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}

	var coll chromaCollection
	payload := map[string]interface{}{
		"name": s.collection,
		"metadata": map[string]interface{}{
			"hnsw:space":       "cosine",
			chromaDimensionKey: dimensions,
		},
		"get_or_create": true,
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/collections", payload, &coll); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	if raw, ok := coll.Metadata[chromaDimensionKey].(float64); ok && int(raw) != dimensions {
		return nil, apperr.ConfigurationError(op,
			"collection %s was created with %d dimensions, configured embedder has %d", s.collection, int(raw), dimensions)
	}
	s.collectionID = coll.ID
	s.logger.Debug("Chroma collection ready", zap.String("name", coll.Name), zap.String("id", coll.ID))
	return s, nil
}

// Heartbeat checks that the Chroma server answers.
func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, s.rootURL+"/api/v2/heartbeat", nil, nil)
}

// Insert stores one chunk.
func (s *ChromaStore) Insert(ctx context.Context, content string, metadata map[string]interface{}, embedding []float32) (string, error) {
	ids, err := s.InsertBatch(ctx, []Record{{Content: content, Metadata: metadata, Embedding: embedding}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertBatch adds all records in a single request, which Chroma applies as a unit.
func (s *ChromaStore) InsertBatch(ctx context.Context, records []Record) ([]string, error) {
	const op = "vector.Chroma.InsertBatch"
	if err := checkRecords(op, s.dimensions, records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	seq := s.reserveSeq(len(records))
	ids := make([]string, len(records))
	documents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]interface{}, len(records))
	for i, r := range records {
		ids[i] = uuid.New().String()
		documents[i] = r.Content
		embeddings[i] = r.Embedding
		meta := flattenMetadata(r.Metadata)
		meta[chromaSeqKey] = seq + int64(i)
		metadatas[i] = meta
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/add"), payload, nil); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	return ids, nil
}

// Search queries the collection and reorders equal similarities by insertion sequence.
func (s *ChromaStore) Search(ctx context.Context, query []float32, topK int) ([]*models.RetrievedChunk, error) {
	const op = "vector.Chroma.Search"
	if err := checkDims(op, s.dimensions, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{query},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp chromaQueryResponse
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/query"), payload, &resp); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	cands := make([]candidate, 0, len(ids))
	for i, id := range ids {
		c := candidate{seq: int64(i), chunk: &models.RetrievedChunk{ID: id, Metadata: map[string]interface{}{}}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			c.chunk.Content = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			c.chunk.Similarity = 1 - resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][i] {
				if k == chromaSeqKey {
					if f, ok := v.(float64); ok {
						c.seq = int64(f)
					}
					continue
				}
				c.chunk.Metadata[k] = v
			}
		}
		cands = append(cands, c)
	}
	return rank(cands, topK), nil
}

// DeleteBySource removes chunks whose source metadata matches.
func (s *ChromaStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	const op = "vector.Chroma.DeleteBySource"
	where := map[string]interface{}{models.MetaSource: source}

	var got chromaGetResponse
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/get"),
		map[string]interface{}{"where": where, "include": []string{}}, &got); err != nil {
		return 0, apperr.StoreUnavailable(op, err)
	}
	if len(got.IDs) == 0 {
		return 0, nil
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/delete"),
		map[string]interface{}{"ids": got.IDs}, nil); err != nil {
		return 0, apperr.StoreUnavailable(op, err)
	}
	return len(got.IDs), nil
}

// Count returns the number of stored chunks.
func (s *ChromaStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.do(ctx, http.MethodGet, s.collectionURL("/count"), nil, &n); err != nil {
		return 0, apperr.StoreUnavailable("vector.Chroma.Count", err)
	}
	return n, nil
}

// Dimensions returns the embedding dimension.
func (s *ChromaStore) Dimensions() int {
	return s.dimensions
}

// Close releases idle connections.
func (s *ChromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *ChromaStore) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.baseURL, s.collectionID, suffix)
}

// reserveSeq returns the first of n increasing sequence numbers. Microsecond timestamps keep
// the order across restarts and stay exact when decoded as float64.
func (s *ChromaStore) reserveSeq(n int) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	next := time.Now().UnixMicro()
	if next <= s.lastSeq {
		next = s.lastSeq + 1
	}
	s.lastSeq = next + int64(n) - 1
	return next
}

func (s *ChromaStore) do(ctx context.Context, method, url string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s failed (status %d): %s", method, req.URL.Path, resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// flattenMetadata keeps scalar values and JSON-encodes the rest, since Chroma metadata
// values must be strings, numbers or booleans.
func flattenMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		switch v.(type) {
		case nil:
		case string, bool, int, int32, int64, float32, float64:
			out[k] = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				out[k] = fmt.Sprint(v)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}
