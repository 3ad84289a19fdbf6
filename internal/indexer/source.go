package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const fileIDPrefix = "file:"

// FileDocumentID returns a stable document id for an absolute file path, so re-ingesting
// the same file produces chunks with the same document_id.
func FileDocumentID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return fileIDPrefix + hex.EncodeToString(hash[:])
}

// ExtensionAllowed reports whether ext (with or without the dot) is in allowed, ignoring case.
// An empty allowed list accepts everything.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	norm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == norm {
			return true
		}
	}
	return false
}
