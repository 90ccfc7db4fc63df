package inmemstore

import (
	"context"
	"testing"

	"github.com/epe202/ulas/core"
)

func TestStore(t *testing.T) {
	store := Open()
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "missing"); err != core.ErrKeyNotFound {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Put(ctx, "a/b", []byte("one"), "create", ""); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Put(ctx, "a/b", []byte("two"), "recreate", ""); err != core.ErrVersionConflict {
		t.Errorf("Put() error = %v, want ErrVersionConflict", err)
	}

	value, ver, err := store.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(value) != "one" || ver == "" {
		t.Errorf("Get() = %q, %q", value, ver)
	}

	if err = store.Put(ctx, "a/b", []byte("two"), "update", ver); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err = store.Put(ctx, "a/b", []byte("three"), "stale", ver); err != core.ErrVersionConflict {
		t.Errorf("Put() error = %v, want ErrVersionConflict", err)
	}
	if err = store.Put(ctx, "a/missing", nil, "update", ver); err != core.ErrKeyNotFound {
		t.Errorf("Put() error = %v, want ErrKeyNotFound", err)
	}

	t.Run("values are copied", func(t *testing.T) {
		value[0] = 'X'
		fresh, _, err := store.Get(ctx, "a/b")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if string(fresh) != "two" {
			t.Errorf("stored value was mutated through a returned slice: %q", fresh)
		}
	})

	t.Run("list prefix", func(t *testing.T) {
		_ = store.Put(ctx, "a/c", []byte("x"), "create", "")
		_ = store.Put(ctx, "b/d", []byte("x"), "create", "")

		keys, err := store.ListPrefix(ctx, "a/")
		if err != nil {
			t.Fatalf("ListPrefix() failed: %v", err)
		}
		if len(keys) != 2 {
			t.Errorf("ListPrefix() = %v, want 2 keys", keys)
		}
	})
}
