package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PrefStore resolves a user's default interest categories. The real
// store is owned by another service, we only read it.
type PrefStore interface {
	DefaultCategories(ctx context.Context, userID string) ([]string, error)
}

// prefs key: rt:prefs:<user>, a redis set of category tags.
func prefsKey(user string) string { return "rt:prefs:" + user }

type redisPrefStore struct {
	client *redis.Client
}

// NewPrefStore reads preferences from the shared redis client.
func NewPrefStore(client *redis.Client) PrefStore {
	return &redisPrefStore{client: client}
}

func (s *redisPrefStore) DefaultCategories(ctx context.Context, userID string) ([]string, error) {
	if s.client == nil {
		return nil, errors.New("redis not initialized")
	}
	cats, err := s.client.SMembers(ctx, prefsKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "prefs lookup")
	}
	return cats, nil
}

// NopPrefStore returns no defaults; used when redis is not configured.
type NopPrefStore struct{}

func (NopPrefStore) DefaultCategories(context.Context, string) ([]string, error) {
	return nil, nil
}
