package cache

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	c := NewFromClient(client, "orders")
	assert.Equal(t, "orders:vendor:v-42", c.GenerateKey("vendor", "v-42"))
}
