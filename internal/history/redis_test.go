package history

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
)

// setupTestRedis connects to a local Redis on DB 15, skipping when none is reachable.
func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("CITETALK_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := NewRedisClient(config.RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	prefix := "citetalk:test:" + uuid.NewString() + ":"
	s, err := NewRedisStore(ctx, client, prefix, time.Hour)
	if err != nil {
		_ = client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		_ = s.Close()
	})
	return s
}

func TestRedisStore_AppendAndList(t *testing.T) {
	s := setupTestRedis(t)
	for i := 0; i < 4; i++ {
		mustAppend(t, s, turn("s1", fmt.Sprintf("m%d", i)))
	}
	mustAppend(t, s, turn("s2", "other"))

	got := mustList(t, s, "s1", 2)
	if msgs := userMessages(got); !reflect.DeepEqual(msgs, []string{"m2", "m3"}) {
		t.Fatalf("List(2) = %v", msgs)
	}
	if got[0].ID == "" {
		t.Error("turn ID not stored")
	}
	if empty := mustList(t, s, "missing", 5); len(empty) != 0 {
		t.Errorf("missing session = %v", empty)
	}
}

func TestRedisStore_SetsExpiry(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()
	mustAppend(t, s, turn("s1", "x"))

	ttl, err := s.client.TTL(ctx, s.key("s1")).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 {
		t.Errorf("TTL = %v, want positive", ttl)
	}
}

func TestNewRedisClient_URL(t *testing.T) {
	client, err := NewRedisClient(config.RedisConfig{URL: "redis://:secret@example.com:6380/3"})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	opts := client.Options()
	if opts.Addr != "example.com:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Errorf("options = addr %q password %q db %d", opts.Addr, opts.Password, opts.DB)
	}

	if _, err := NewRedisClient(config.RedisConfig{URL: "http://nope"}); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, client, "x:", 0); err == nil {
		t.Error("expected error for unreachable server")
	}
}
