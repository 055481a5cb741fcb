package storage

import (
	"context"
	"errors"

	"github.com/mapreviews/harvester/internal/domain/model"
)

// ErrNotFound is returned when no result exists under the requested key.
var ErrNotFound = errors.New("storage: result not found")

// ResultStore persists the record list of one completed harvest under an
// addressable key. Write is all-or-nothing: a reader never observes a
// partially written result.
type ResultStore interface {
	// Write stores the records under key and returns an addressable
	// location for the job record.
	Write(ctx context.Context, key string, records []model.Review) (string, error)
	Read(ctx context.Context, key string) ([]model.Review, error)
}
