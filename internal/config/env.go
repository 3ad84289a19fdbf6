package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the process
// environment. Variables already set are not overridden; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return apperr.ConfigurationError("config.LoadDotEnv", "load %s: %v", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with values from the environment. Recognised variables:
// OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL, OPENAI_EMBEDDING_MODEL, EMBEDDING_DIMENSIONS,
// CHUNK_SIZE, CHUNK_OVERLAP, RETRIEVAL_TOP_K, HOST, PORT, DEBUG, REDIS_URL, VECTOR_STORE.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.ChatModel = v
	}
	if v := os.Getenv("OPENAI_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.History.Redis.URL = v
	}
	if v := os.Getenv("VECTOR_STORE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.ConfigurationError("config.ApplyEnv", "DEBUG=%q: %v", v, err)
		}
		cfg.Debug = b
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &cfg.Server.Port},
		{"EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions},
		{"CHUNK_SIZE", &cfg.Chunking.ChunkSize},
		{"RETRIEVAL_TOP_K", &cfg.Retrieval.TopK},
	}
	for _, e := range ints {
		n, ok, err := envInt(e.name)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = n
		}
	}
	n, ok, err := envInt("CHUNK_OVERLAP")
	if err != nil {
		return err
	}
	if ok {
		cfg.Chunking.ChunkOverlap = &n
	}
	return nil
}

func envInt(name string) (int, bool, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, apperr.ConfigurationError("config.ApplyEnv", "%s=%q is not an integer", name, v)
	}
	return n, true, nil
}
