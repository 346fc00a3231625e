package storage

import (
	"context"
	"errors"

	"flickfusion-tg-bot/internal/catalog"
)

// ErrNotFound is returned by point lookups and deletes for unknown ids.
var ErrNotFound = errors.New("storage: not found")

// Stats summarizes the collections for the admin /stats command.
type Stats struct {
	Movies   int64
	Users    int64
	Requests int64
}

// Store is the persistence surface the bot depends on: catalog CRUD plus
// the request log and the known-user registry used by broadcasts.
type Store interface {
	// CreateMovie assigns the id, timestamps the record, recomputes the
	// search key from the title and persists it.
	CreateMovie(ctx context.Context, rec catalog.MovieRecord) (catalog.MovieRecord, error)
	MovieByID(ctx context.Context, id int64) (catalog.MovieRecord, error)
	// All returns the whole catalog ordered by id ascending.
	All(ctx context.Context) ([]catalog.MovieRecord, error)
	DeleteMovie(ctx context.Context, id int64) error

	LogRequest(ctx context.Context, userID, movieID, chatID int64) error
	UpsertUser(ctx context.Context, userID int64) error
	UserIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (Stats, error)
}
