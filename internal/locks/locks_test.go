package locks

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heimdex/heimdex-studio/internal/logging"
)

func TestKeyedMutex_SerialisesSameID(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, 7)
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after all released, want 0", km.Len())
	}
}

func TestKeyedMutex_DifferentIDsDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlock1, err := km.Lock(ctx, 1)
	if err != nil {
		t.Fatalf("Lock(1) error = %v", err)
	}
	defer unlock1()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock2, err := km.Lock(ctx2, 2)
	if err != nil {
		t.Fatalf("Lock(2) blocked by Lock(1): %v", err)
	}
	unlock2()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() error = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock() // second call is a no-op
	if km.Len() != 0 {
		t.Errorf("Len() = %d, want 0", km.Len())
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("STUDIO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STUDIO_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()

	locker := NewRedisLocker(client, time.Minute, logging.Discard())
	locker.poll = 10 * time.Millisecond

	id := time.Now().UnixNano()
	unlock, err := locker.Lock(ctx, id)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Lock() error = %v, want DeadlineExceeded", err)
	}

	unlock()

	unlock2, err := locker.Lock(ctx, id)
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	unlock2()
}

func TestRedisLocker_ExtendsWhileHeld(t *testing.T) {
	addr := os.Getenv("STUDIO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STUDIO_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()

	ttl := 300 * time.Millisecond
	locker := NewRedisLocker(client, ttl, logging.Discard())
	locker.poll = 10 * time.Millisecond

	id := time.Now().UnixNano()
	unlock, err := locker.Lock(ctx, id)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	// Hold well past the TTL, as a long transcode would.
	time.Sleep(4 * ttl)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lock() while held past TTL error = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock() // second call is a no-op

	key := redisKeyPrefix + strconv.FormatInt(id, 10)
	if n, err := client.Exists(ctx, key).Result(); err != nil || n != 0 {
		t.Errorf("key exists after unlock: n = %d, err = %v", n, err)
	}
}

func TestLockers_ImplementLocker(t *testing.T) {
	var _ Locker = NewKeyedMutex()
	var _ Locker = (*RedisLocker)(nil)
}
