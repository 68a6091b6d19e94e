package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisChecker_NotConfigured(t *testing.T) {
	checker := NewRedisChecker(nil)
	if err := checker.HealthCheck(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("HealthCheck() = %v, want ErrNotConfigured", err)
	}
}

func TestRedisChecker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1", // nothing listens here
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := NewRedisChecker(client).HealthCheck(ctx); err == nil {
		t.Error("expected error for unreachable Redis")
	}
}

func TestRedisChecker_CancelledContext(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRedisChecker(client).HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

// TestRedisChecker_Live runs against a Redis container and is skipped when
// Docker is not available.
func TestRedisChecker_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse %q: %v", uri, err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := NewRedisChecker(client).HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() = %v, want nil", err)
	}

	if err := container.Stop(ctx, nil); err != nil {
		t.Fatalf("stop container: %v", err)
	}
	downCtx, downCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer downCancel()
	if err := NewRedisChecker(client).HealthCheck(downCtx); err == nil {
		t.Error("HealthCheck() = nil after Redis stopped, want error")
	}
}

func TestCheckerFunc(t *testing.T) {
	want := errors.New("browser missing")
	var f CheckerFunc = func(context.Context) error { return want }
	if err := f.HealthCheck(context.Background()); !errors.Is(err, want) {
		t.Errorf("HealthCheck() = %v, want %v", err, want)
	}
}
