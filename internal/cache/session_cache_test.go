package cache

import (
	"context"
	"testing"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"docfill/internal/model"
)

func TestRedisSessionStoreDefaults(t *testing.T) {
	store := NewRedisSessionStore(nil, 0, "")
	assert.Equal(t, time.Hour, store.ttl)
	assert.Equal(t, "docfill:session:abc", store.key("abc"))

	custom := NewRedisSessionStore(nil, time.Minute, "test:")
	assert.Equal(t, "test:abc", custom.key("abc"))
}

func TestRedisSessionStoreSurfacesConnectionErrors(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisSessionStore(client, time.Minute, "")
	ctx := context.Background()

	_, err := store.Get(ctx, "s1")
	assert.ErrorContains(t, err, "redis get session failed")

	err = store.Put(ctx, &model.Session{ID: "s1"})
	assert.ErrorContains(t, err, "redis set session failed")
}
