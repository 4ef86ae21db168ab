package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestMemoryGuard_FirstWins(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	ok, err := guard.SetIdempotency(ctx, "u1:req-1")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = guard.SetIdempotency(ctx, "u1:req-1")
	if err != nil || ok {
		t.Fatalf("replay should lose: ok=%v err=%v", ok, err)
	}
	// different key is independent
	ok, err = guard.SetIdempotency(ctx, "u1:req-2")
	if err != nil || !ok {
		t.Fatalf("new key: ok=%v err=%v", ok, err)
	}
}

func TestMemoryGuard_ConcurrentSingleWinner(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	const workers = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := guard.SetIdempotency(ctx, "u1:req-1"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestRedisGuard_FirstWins(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	guard := NewRedisCheckoutGuard(client)
	ctx := context.Background()
	key := fmt.Sprintf("u1:%s", uuid.NewString())

	ok, err := guard.SetIdempotency(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = guard.SetIdempotency(ctx, key)
	if err != nil || ok {
		t.Fatalf("replay should lose: ok=%v err=%v", ok, err)
	}
}
