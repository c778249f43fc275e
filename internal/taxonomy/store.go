// Package taxonomy provides the category collaborator: an enumerable
// mapping of category identifiers to display names with append-only
// creation, backed by a redis hash.
package taxonomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultHashKey = "taxonomy:categories"

// ErrCategoryExists is returned when creating an id that is already taken.
// Categories are append-only; there is no rename or delete.
var ErrCategoryExists = errors.New("category already exists")

// ErrCategoryNotFound is returned when looking up an unknown id.
var ErrCategoryNotFound = errors.New("category not found")

// Store is the redis-backed category store.
type Store struct {
	rdb *redis.Client
	key string
}

// NewStore creates a category store over the given redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, key: defaultHashKey}
}

// All returns the full id→name mapping.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return m, nil
}

// Name resolves one category id to its display name.
func (s *Store) Name(ctx context.Context, id string) (string, error) {
	name, err := s.rdb.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCategoryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get category %s: %w", id, err)
	}
	return name, nil
}

// Create inserts a new category. Existing ids are never overwritten.
func (s *Store) Create(ctx context.Context, id, name string) error {
	if id == "" || name == "" {
		return fmt.Errorf("category id and name are required")
	}

	set, err := s.rdb.HSetNX(ctx, s.key, id, name).Result()
	if err != nil {
		return fmt.Errorf("create category %s: %w", id, err)
	}
	if !set {
		return ErrCategoryExists
	}
	return nil
}
