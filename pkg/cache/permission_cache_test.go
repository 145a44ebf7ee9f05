package cache

import (
	"testing"
	"time"
)

func TestLocalCacheHit(t *testing.T) {
	c := NewPermissionCache(time.Minute, nil, "test:perm")

	c.Set("dataset:1:2:sales:read", []byte(`{"allowed":true}`))

	got, ok := c.Get("dataset:1:2:sales:read")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if string(got) != `{"allowed":true}` {
		t.Fatalf("unexpected value: %s", got)
	}

	if _, ok := c.Get("dataset:1:2:orders:read"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
}

func TestLocalCacheExpiry(t *testing.T) {
	c := NewPermissionCache(10*time.Millisecond, nil, "test:perm")

	c.Set("dataset:1:2:sales:read", []byte(`{"allowed":true}`))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("dataset:1:2:sales:read"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	// 惰性过期：访问后条目应被删除
	if c.Size() != 0 {
		t.Fatalf("expected expired entry to be evicted, size=%d", c.Size())
	}
}

func TestInvalidatePattern(t *testing.T) {
	c := NewPermissionCache(time.Minute, nil, "test:perm")

	c.Set("dataset:1:2:sales:read", []byte(`a`))
	c.Set("record:1:2:row-42:read", []byte(`b`))
	c.Set("dataset:1:3:sales:read", []byte(`c`))
	c.Set("dataset:2:2:sales:read", []byte(`d`))

	// 按用户失效：租户1用户2的所有缓存
	c.Invalidate("*:1:2:*")

	if _, ok := c.Get("dataset:1:2:sales:read"); ok {
		t.Errorf("expected dataset key for user 2 invalidated")
	}
	if _, ok := c.Get("record:1:2:row-42:read"); ok {
		t.Errorf("expected record key for user 2 invalidated")
	}
	if _, ok := c.Get("dataset:1:3:sales:read"); !ok {
		t.Errorf("expected other user key to survive")
	}
	if _, ok := c.Get("dataset:2:2:sales:read"); !ok {
		t.Errorf("expected other tenant key to survive")
	}
}

func TestInvalidateAll(t *testing.T) {
	c := NewPermissionCache(time.Minute, nil, "test:perm")

	c.Set("dataset:1:2:sales:read", []byte(`a`))
	c.Set("field:1:3:orders:write", []byte(`b`))

	c.Invalidate("*")

	if c.Size() != 0 {
		t.Fatalf("expected empty cache, size=%d", c.Size())
	}
}

func TestNilCacheSafe(t *testing.T) {
	var c *PermissionCache

	c.Set("dataset:1:2:sales:read", []byte(`a`))
	if _, ok := c.Get("dataset:1:2:sales:read"); ok {
		t.Fatalf("nil cache should always miss")
	}
	c.Invalidate("*")
	if c.Size() != 0 {
		t.Fatalf("nil cache size should be 0")
	}
}
