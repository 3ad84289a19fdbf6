package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/storage"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	source TEXT NOT NULL DEFAULT '',
	embedding BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

const metaDimensions = "dimensions"

// SQLiteStore keeps chunks in SQLite and searches them by scanning every embedding.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	dimensions int
	logger     *zap.Logger
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteLogger sets the logger.
func WithSQLiteLogger(l *zap.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		s.logger = l
	}
}

// NewSQLiteStore opens the store at dbPath. The first open records dimensions; a later open
// with a different value fails with a configuration error.
func NewSQLiteStore(ctx context.Context, dbPath string, dimensions int, opts ...SQLiteOption) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, apperr.ConfigurationError("vector.NewSQLiteStore", "dimensions must be positive, got %d", dimensions)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, apperr.StoreUnavailable("vector.NewSQLiteStore", err)
	}
	s := &SQLiteStore{db: db, path: dbPath, dimensions: dimensions}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)

	if err := storage.Migrate(ctx, db, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, apperr.StoreUnavailable("vector.NewSQLiteStore", err)
	}
	if err := s.checkDimensions(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) checkDimensions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO store_meta (key, value) VALUES (?, ?)`,
		metaDimensions, strconv.Itoa(s.dimensions))
	if err != nil {
		return apperr.StoreUnavailable("vector.NewSQLiteStore", err)
	}
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaDimensions).Scan(&raw); err != nil {
		return apperr.StoreUnavailable("vector.NewSQLiteStore", err)
	}
	stored, err := strconv.Atoi(raw)
	if err != nil {
		return apperr.ConfigurationError("vector.NewSQLiteStore", "corrupt stored dimensions %q", raw)
	}
	if stored != s.dimensions {
		return apperr.ConfigurationError("vector.NewSQLiteStore",
			"store %s was created with %d dimensions, configured embedder has %d", s.path, stored, s.dimensions)
	}
	return nil
}

// Insert stores one chunk.
func (s *SQLiteStore) Insert(ctx context.Context, content string, metadata map[string]interface{}, embedding []float32) (string, error) {
	ids, err := s.InsertBatch(ctx, []Record{{Content: content, Metadata: metadata, Embedding: embedding}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertBatch stores records in one transaction.
func (s *SQLiteStore) InsertBatch(ctx context.Context, records []Record) ([]string, error) {
	const op = "vector.SQLite.InsertBatch"
	if err := checkRecords(op, s.dimensions, records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, content, metadata, source, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	defer stmt.Close()

	ids := make([]string, len(records))
	for i, r := range records {
		meta, err := json.Marshal(models.CopyMetadata(r.Metadata))
		if err != nil {
			return nil, fmt.Errorf("record %d: failed to marshal metadata: %w", i, err)
		}
		ids[i] = uuid.New().String()
		if _, err := stmt.ExecContext(ctx, ids[i], r.Content, string(meta), sourceOf(r.Metadata), encodeVector(r.Embedding)); err != nil {
			return nil, apperr.StoreUnavailable(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	return ids, nil
}

// Search scans every stored embedding and returns the topK most similar chunks.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int) ([]*models.RetrievedChunk, error) {
	const op = "vector.SQLite.Search"
	if err := checkDims(op, s.dimensions, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, content, metadata, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	defer rows.Close()

	var cands []candidate
	for rows.Next() {
		var (
			seq      int64
			id       string
			content  string
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&seq, &id, &content, &metaJSON, &blob); err != nil {
			return nil, apperr.StoreUnavailable(op, err)
		}
		vec, err := decodeVector(blob)
		if err != nil || len(vec) != s.dimensions {
			s.logger.Warn("Skipping chunk with unreadable embedding", zap.String("id", id))
			continue
		}
		meta := map[string]interface{}{}
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			s.logger.Warn("Chunk metadata is not valid JSON", zap.String("id", id), zap.Error(err))
		}
		cands = append(cands, candidate{
			seq: seq,
			chunk: &models.RetrievedChunk{
				ID:         id,
				Content:    content,
				Metadata:   meta,
				Similarity: utils.CosineSimilarity(query, vec),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	return rank(cands, topK), nil
}

// DeleteBySource removes chunks whose source metadata matches.
func (s *SQLiteStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source)
	if err != nil {
		return 0, apperr.StoreUnavailable("vector.SQLite.DeleteBySource", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, apperr.StoreUnavailable("vector.SQLite.Count", err)
	}
	return n, nil
}

// Dimensions returns the embedding dimension.
func (s *SQLiteStore) Dimensions() int {
	return s.dimensions
}

// DiskUsageBytes returns the size of the database files.
func (s *SQLiteStore) DiskUsageBytes() (int64, error) {
	return storage.DiskUsageBytes(s.path)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("embedding blob length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
