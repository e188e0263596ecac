// Package storage defines the pluggable persistence contract shared by the
// flat-file and embedded-SQL backends.
package storage

import (
	"context"

	"github.com/maric-labs/registrytools/internal/model"
)

// Store is the persistence contract every backend implements.
type Store interface {
	LoadAll(ctx context.Context) ([]model.Tool, error)
	Save(ctx context.Context, tool model.Tool) error
	SaveMany(ctx context.Context, tools []model.Tool) error
	Delete(ctx context.Context, name string) (bool, error)
	Exists(ctx context.Context, name string) (bool, error)
	LoadByTemperature(ctx context.Context, tier model.Tier, limit int) ([]model.Tool, error)

	Count(ctx context.Context) (int, error)
	IsEmpty(ctx context.Context) (bool, error)
	Get(ctx context.Context, name string) (model.Tool, bool, error)
	Clear(ctx context.Context) error
	Initialize(ctx context.Context) error
	Validate(ctx context.Context) error
}
