package database

import (
	"context"
	"errors"
	"time"

	"omnilead-server/models"
)

var (
	// ErrNotFound is returned when no backend holds the requested record.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when no backend could serve the call.
	ErrUnavailable = errors.New("storage unavailable")
)

// Filter is an equality filter on column names. Column names equal the JSON
// field names of the models so both backends read it the same way.
type Filter map[string]any

// Record is the pointer constraint every persisted model satisfies.
type Record[T any] interface {
	*T
	Kind() models.Kind
	GetID() string
	SetID(string)
	GetCreatedAt() time.Time
	SetCreatedAt(time.Time)
}

type updatedSetter interface {
	SetUpdatedAt(time.Time)
}

// Store is one backing strategy for a record kind.
type Store[T any] interface {
	Save(ctx context.Context, rec *T) error
	Upsert(ctx context.Context, rec *T) error
	List(ctx context.Context, filter Filter) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, partial map[string]any) (*T, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// Repository is what the domain services consume.
type Repository[T any] interface {
	Save(ctx context.Context, rec *T) (*T, error)
	List(ctx context.Context, filter Filter) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, partial map[string]any) (*T, error)
	Delete(ctx context.Context, id string) (int64, error)
}
