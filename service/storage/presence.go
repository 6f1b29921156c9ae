package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: rt:presence:<user>
// Value is the node id, the TTL bounds how stale the mirror can get.
func presenceKey(user string) string { return "rt:presence:" + user }

// PresenceOnline marks the user online on this node and renews the TTL.
func PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline removes the presence key.
func PresenceOffline(ctx context.Context, user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the user is online anywhere and on
// which node.
func PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
