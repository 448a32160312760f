package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidCursor marks a cursor the source cannot interpret. Caller error,
// not a pipeline failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// SourceRow is one raw record from an external source, keyed by the source's
// own column/field names. It only lives long enough to be normalized.
type SourceRow map[string]interface{}

// String returns the row value as a trimmed string, "" when absent or not
// string-shaped.
func (r SourceRow) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SourcePage is one bounded page of rows plus the pagination state the caller
// needs for the next invocation. A nil NextCursor is the terminal condition.
type SourcePage struct {
	Rows       []SourceRow
	NextCursor *string
	Remaining  *int // total rows not yet visited, when the source can know it
}

// Source adapts one external tabular source (supplier sheet, records API, ...)
// behind a uniform fetch+normalize surface. The orchestrator depends only on
// this interface.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// FetchPage reads one page. An empty cursor means "start from the top".
	FetchPage(ctx context.Context, cursor string) (*SourcePage, error)
	// Normalize maps one raw row into a canonical product. The second return
	// is false when the row must be skipped (no SKU).
	Normalize(row SourceRow) (*CanonicalProduct, bool)
	// Vocabulary returns the audience tag set for this source's locale.
	Vocabulary() AudienceVocabulary
}

// WriteOp is one idempotent parameterized statement destined for the
// relational store. All pipeline writes are insert-if-absent, so replaying a
// batch is safe.
type WriteOp struct {
	SQL  string
	Args []interface{}
}

// ImportBatch is the explicit per-invocation context threaded through the
// pipeline: accumulated write list and human-readable log, no shared globals.
type ImportBatch struct {
	writes []WriteOp
	logs   []string
}

func NewImportBatch() *ImportBatch {
	return &ImportBatch{}
}

func (b *ImportBatch) AddWrites(ops ...WriteOp) {
	b.writes = append(b.writes, ops...)
}

func (b *ImportBatch) Logf(format string, args ...interface{}) {
	b.logs = append(b.logs, fmt.Sprintf(format, args...))
}

func (b *ImportBatch) Writes() []WriteOp {
	return b.writes
}

func (b *ImportBatch) Logs() []string {
	return b.logs
}

// BatchReport is what one import invocation returns to the caller. The caller
// feeds NextCursor back in to resume; a null NextCursor means the catalog is
// fully imported.
type BatchReport struct {
	Processed       int      `json:"processed"`
	NextCursor      *string  `json:"nextCursor"`
	Remaining       *int     `json:"remaining,omitempty"`
	DurationSeconds float64  `json:"durationSeconds"`
	Logs            []string `json:"logs"`
}

// ImportStore is the relational store surface the pipeline mutates.
type ImportStore interface {
	// EnsureSupplier creates the supplier if absent (insert-if-absent).
	EnsureSupplier(ctx context.Context, s Supplier) error
	// ApplyWrites commits the whole list atomically: all rows or none.
	ApplyWrites(ctx context.Context, ops []WriteOp) error
}

// TextGenerator is the external text-generation service used by the audience
// classifier. Fallible and slow; callers must treat failure as recoverable.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BlobStore is the object storage surface: source sheets are read from it and
// mirrored images written to it.
type BlobStore interface {
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ImageFetcher pulls image bytes from the origin URL, reporting the observed
// content type.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}
