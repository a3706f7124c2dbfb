package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var (
	errNetwork  = errors.New("network error")
	errNotFound = errors.New("not found")
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	if err := c.Set(ctx, "report:validate:x", []byte("{}"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if data, hit, err := c.Get(ctx, "report:validate:x"); hit || data != nil || err != nil {
		t.Errorf("Get = %q, %v, %v; want a clean miss", data, hit, err)
	}
	if err := c.Delete(ctx, "report:validate:x"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestHash(t *testing.T) {
	a, b := Hash([]byte("start")), Hash([]byte("start"))
	if a != b {
		t.Error("Hash is not deterministic")
	}
	if a == Hash([]byte("vip")) {
		t.Error("distinct inputs collide")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// ReportKey should include kind and options in hash
	rk1 := k.ReportKey("hash123", "validate", ReportKeyOpts{})
	rk2 := k.ReportKey("hash123", "analyze", ReportKeyOpts{})
	rk3 := k.ReportKey("hash123", "validate", ReportKeyOpts{DedupeCycles: true})
	if rk1 == rk2 || rk1 == rk3 {
		t.Error("Different kinds or ReportKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(rk1, "report:validate:") {
		t.Errorf("ReportKey unexpected: %s", rk1)
	}
	if rk1 != k.ReportKey("hash123", "validate", ReportKeyOpts{}) {
		t.Error("ReportKey should be deterministic")
	}

	// ArtifactKey
	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "user:123:")

	// All keys should be prefixed
	key := scoped.ReportKey("h", "validate", ReportKeyOpts{})
	if key != "user:123:"+inner.ReportKey("h", "validate", ReportKeyOpts{}) {
		t.Errorf("ScopedKeyer ReportKey unexpected: %s", key)
	}

	artifactKey := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(artifactKey, "user:123:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", artifactKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "dot"})
	if !strings.HasPrefix(key, "prefix:artifact:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "key"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	// Expired entries are misses
	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "old"); hit {
		t.Error("expired entry should be a miss")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("deleted entry should be a miss")
	}
}

func TestFileCacheEvictsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	fc := c.(*FileCache)
	file := fc.locate("broken")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "broken"); hit || err != nil {
		t.Errorf("Get = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("corrupt entry still on disk: %v", err)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("STORYFLOW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STORYFLOW_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "storyflow:test:" + Hash([]byte(t.Name()))
	defer c.Delete(ctx, key)

	if err := c.Set(ctx, key, []byte("report"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "report" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("deleted key should be a miss")
	}

	prefix := "storyflow:test:" + Hash([]byte(t.Name()))[:8] + ":"
	keyer := NewScopedKeyer(nil, prefix)
	for _, k := range []string{
		keyer.ReportKey("abc", "validate", ReportKeyOpts{}),
		keyer.ArtifactKey("abc", ArtifactKeyOpts{Format: "svg"}),
	} {
		if err := c.Set(ctx, k, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	n, err := c.Clear(ctx, prefix)
	if err != nil || n != 2 {
		t.Errorf("Clear = %d, %v; want 2", n, err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not a url"); err == nil {
		t.Error("NewRedisCache with bad url should fail")
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
	err := Retryable(errNetwork)
	if !IsRetryable(err) || !errors.Is(err, errNetwork) {
		t.Errorf("Retryable(errNetwork) = %v, not recognised", err)
	}
	if err.Error() != errNetwork.Error() {
		t.Errorf("message = %q", err.Error())
	}
	if IsRetryable(errNotFound) {
		t.Error("plain error reported as retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = time.Second })

	tests := []struct {
		name      string
		failures  int
		fail      error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"final error", 5, errNotFound, 1, errNotFound},
		{"recovers", 1, Retryable(errNetwork), 2, nil},
		{"gives up", 5, Retryable(errNetwork), retryAttempts, errNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.fail
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
