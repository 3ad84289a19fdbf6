// Package apperr defines the error kinds shared by the ingestion and query paths.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrStoreUnavailable     = errors.New("vector store unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrConfiguration        = errors.New("configuration error")
)

// Error is a classified failure of a named operation.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // e.g. "embedding.EmbedBatch"
	Err  error  // underlying cause; may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// EmbeddingUnavailable reports that the embedding model could not be reached or refused the request.
func EmbeddingUnavailable(op string, err error) error {
	return &Error{Kind: ErrEmbeddingUnavailable, Op: op, Err: err}
}

// StoreUnavailable reports that the vector store could not be reached.
func StoreUnavailable(op string, err error) error {
	return &Error{Kind: ErrStoreUnavailable, Op: op, Err: err}
}

// GenerationFailed reports a failed or unusable language model call.
func GenerationFailed(op string, err error) error {
	return &Error{Kind: ErrGenerationFailed, Op: op, Err: err}
}

// ConfigurationError reports invalid settings, such as an embedding dimensionality that
// does not match the store. It is fatal at startup.
func ConfigurationError(op string, format string, args ...interface{}) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is of the given kind.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsDegradable reports whether err should turn into "no context" during retrieval.
func IsDegradable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrEmbeddingUnavailable)
}
