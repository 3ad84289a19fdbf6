package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/embedding"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/extract"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/vector"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const defaultConcurrency = 4

// IngestError reports the document that stopped an Ingest call. Documents before Index
// were stored; Index and everything after it were not.
type IngestError struct {
	Index int
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest document %d: %v", e.Index, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Indexer chunks, embeds and stores documents.
type Indexer struct {
	store       vector.Store
	embedder    embedding.Embedder
	chunker     *Chunker
	extractor   *extract.Extractor
	concurrency int
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithConcurrency sets how many documents are embedded at once.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// WithExtractor sets the extractor used by IngestFile. Without one, files are read as text.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer writing to store.
func NewIndexer(store vector.Store, embedder embedding.Embedder, chunker *Chunker, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:       store,
		embedder:    embedder,
		chunker:     chunker,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// prepared is a document ready to store: one record per chunk, embeddings filled in.
type prepared struct {
	docID   string
	records []vector.Record
}

// Ingest stores docs in order and returns the ids of every chunk stored. Each document is
// embedded with one batch call and stored with one atomic insert. On the first failing
// document Ingest stops and returns the ids stored so far with an *IngestError; later
// documents are not stored. A document without text yields no chunks and no error.
func (idx *Indexer) Ingest(ctx context.Context, docs []*models.DocumentInput) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	results := make([]*prepared, len(docs))
	errs := make([]error, len(docs))

	// Documents after a failed one are never stored, so they are not embedded either.
	var (
		mu        sync.Mutex
		firstFail = len(docs)
	)
	skip := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return i > firstFail
	}
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[i] = err
		if i < firstFail {
			firstFail = i
		}
	}

	var g errgroup.Group
	g.SetLimit(idx.concurrency)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if skip(i) {
				return nil
			}
			p, err := idx.prepare(ctx, doc)
			if err != nil {
				fail(i, err)
				return nil
			}
			results[i] = p
			return nil
		})
	}
	_ = g.Wait()

	var ids []string
	for i := range docs {
		if errs[i] != nil {
			return ids, &IngestError{Index: i, Err: errs[i]}
		}
		p := results[i]
		if len(p.records) == 0 {
			idx.logger.Debug("Document has no text, nothing stored", zap.Int("index", i))
			continue
		}
		got, err := idx.store.InsertBatch(ctx, p.records)
		if err != nil {
			return ids, &IngestError{Index: i, Err: err}
		}
		ids = append(ids, got...)
		idx.logger.Debug("Document ingested",
			zap.Int("index", i),
			zap.String("document_id", p.docID),
			zap.Int("chunks", len(got)))
	}
	return ids, nil
}

// prepare preprocesses, chunks and embeds one document.
func (idx *Indexer) prepare(ctx context.Context, doc *models.DocumentInput) (*prepared, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	docID := documentID(doc)
	chunks := idx.chunker.Chunk(docID, Preprocess(doc.Content))
	p := &prepared{docID: docID}
	if len(chunks) == 0 {
		return p, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vecs, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(chunks) {
		return nil, apperr.EmbeddingUnavailable("indexer.Ingest",
			fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks)))
	}

	p.records = make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		meta := models.CopyMetadata(doc.Metadata)
		meta[models.MetaDocumentID] = docID
		meta[models.MetaChunkIndex] = ch.ChunkIndex
		p.records[i] = vector.Record{Content: ch.Content, Metadata: meta, Embedding: vecs[i]}
	}
	return p, nil
}

// documentID returns the caller's id, a document_id already in the metadata, or a new uuid.
func documentID(doc *models.DocumentInput) string {
	if doc.ID != "" {
		return doc.ID
	}
	if id, ok := doc.Metadata[models.MetaDocumentID].(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// IngestFile extracts the text of the file at path and ingests it as one document.
// Its chunks carry "source" (the absolute path) and a document_id derived from the path,
// in addition to metadata.
func (idx *Indexer) IngestFile(ctx context.Context, path string, metadata map[string]interface{}) ([]string, error) {
	return idx.storeFile(ctx, path, metadata, false)
}

// ReplaceFile re-ingests path, replacing the chunks previously stored for it. The old
// chunks are removed only once the new text has been chunked and embedded, so a failed
// extraction or embedding leaves them in place.
func (idx *Indexer) ReplaceFile(ctx context.Context, path string, metadata map[string]interface{}) ([]string, error) {
	return idx.storeFile(ctx, path, metadata, true)
}

func (idx *Indexer) storeFile(ctx context.Context, path string, metadata map[string]interface{}, replace bool) ([]string, error) {
	absPath, doc, err := idx.fileDocument(path, metadata)
	if err != nil {
		return nil, err
	}
	p, err := idx.prepare(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", absPath, err)
	}
	if replace {
		if _, err := idx.RemoveFile(ctx, absPath); err != nil {
			return nil, err
		}
	}
	if len(p.records) == 0 {
		idx.logger.Debug("File has no text, nothing stored", zap.String("path", absPath))
		return nil, nil
	}
	ids, err := idx.store.InsertBatch(ctx, p.records)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", absPath, err)
	}
	idx.logger.Debug("File ingested", zap.String("path", absPath), zap.Int("chunks", len(ids)))
	return ids, nil
}

// fileDocument reads the file at path into a document keyed by its absolute path.
func (idx *Indexer) fileDocument(path string, metadata map[string]interface{}) (string, *models.DocumentInput, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	text, err := idx.extractContent(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("extract content: %w", err)
	}
	meta := models.CopyMetadata(metadata)
	meta[models.MetaSource] = absPath
	if _, ok := meta["filename"]; !ok {
		meta["filename"] = filepath.Base(absPath)
	}
	return absPath, &models.DocumentInput{ID: FileDocumentID(absPath), Content: text, Metadata: meta}, nil
}

// RemoveFile deletes every chunk whose source is path and returns how many were removed.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	n, err := idx.store.DeleteBySource(ctx, absPath)
	if err != nil {
		return 0, fmt.Errorf("remove %s: %w", absPath, err)
	}
	if n > 0 {
		idx.logger.Debug("Removed file chunks", zap.String("path", absPath), zap.Int("chunks", n))
	}
	return n, nil
}

// IngestDirectory walks dir and ingests every regular file whose extension is allowed.
// It returns the number of files ingested, the chunk ids, and the first error.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, []string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var (
		files int
		ids   []string
	)
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		got, ingestErr := idx.ReplaceFile(ctx, path, nil)
		ids = append(ids, got...)
		if ingestErr != nil {
			return ingestErr
		}
		files++
		return nil
	})
	return files, ids, err
}

func (idx *Indexer) extractContent(path string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
