package config

// Defaults shared with callers that build components without a config file.
const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultDimensions     = 1536
	DefaultTemperature    = 0.7
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 4
	DefaultHistoryLimit   = 50
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 120
	}
	if cfg.LLM.ChatModel == "" {
		cfg.LLM.ChatModel = DefaultChatModel
	}
	if cfg.LLM.Temperature == nil {
		t := DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = DefaultDimensions
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.ChunkOverlap = &o
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.DatabasePath == "" {
		cfg.Store.DatabasePath = "./data/citetalk.db"
	}
	if cfg.Store.Chroma.Host == "" {
		cfg.Store.Chroma.Host = "localhost"
	}
	if cfg.Store.Chroma.Port == 0 {
		cfg.Store.Chroma.Port = 8000
	}
	if cfg.Store.Chroma.Collection == "" {
		cfg.Store.Chroma.Collection = "citetalk_documents"
	}
	if cfg.History.Type == "" {
		cfg.History.Type = "sqlite"
	}
	if cfg.History.DatabasePath == "" {
		cfg.History.DatabasePath = cfg.Store.DatabasePath
		if cfg.Store.Type != "sqlite" {
			cfg.History.DatabasePath = "./data/history.db"
		}
	}
	if cfg.History.DefaultLimit == 0 {
		cfg.History.DefaultLimit = DefaultHistoryLimit
	}
	if cfg.History.Redis.Addr == "" {
		cfg.History.Redis.Addr = "localhost:6379"
	}
	if cfg.History.Redis.KeyPrefix == "" {
		cfg.History.Redis.KeyPrefix = "citetalk:history:"
	}
	if cfg.History.Redis.TTLHours == 0 {
		cfg.History.Redis.TTLHours = 24 * 7
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
