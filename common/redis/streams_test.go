package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revit-qc/common/config"
)

func TestPublishToStream_FlattensValues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))
	id, err := PublishToStream(ctx, client, "events", map[string]interface{}{
		"entity": "model",
		"id":     int64(42),
		"ok":     true,
		"tags":   []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "model", msgs[0].Values["entity"])
	assert.Equal(t, "42", msgs[0].Values["id"])
	assert.Equal(t, "true", msgs[0].Values["ok"])
	assert.Equal(t, `["a","b"]`, msgs[0].Values["tags"])
}

func TestPublishJSONToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)
	ctx := context.Background()

	_, err := PublishJSONToStream(ctx, client, "events", map[string]int{"n": 1})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"n":1}`, msgs[0].Values["data"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}
