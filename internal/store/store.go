package store

import (
	"context"
	"errors"

	"cargroup/internal/model"
)

// Store keeps grouping runs for the API server.
type Store interface {
	CreateGrouping(ctx context.Context, g model.Grouping) error
	GetGrouping(ctx context.Context, id string) (model.Grouping, error)
	ListGroupings(ctx context.Context, cursor string, limit int) ([]model.Grouping, string, error)
	SaveGrouping(ctx context.Context, g model.Grouping) error
}

var ErrNotFound = errors.New("not found")
