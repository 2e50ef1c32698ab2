package cache

import (
	"context"
	"testing"
)

func TestMemoryInsertLookup(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}

	k := waterKey(1, 2, 3)
	if _, ok, _ := c.Lookup(ctx, k); ok {
		t.Fatal("empty cache hit")
	}
	c.Insert(ctx, k, NewRecord([]byte{7}))

	r, ok, err := c.Lookup(ctx, k)
	if err != nil || !ok || r.Bytes[0] != 7 {
		t.Fatalf("Lookup = (%v, %v, %v)", r.Bytes, ok, err)
	}

	c.Insert(ctx, k, NewRecord([]byte{8}))
	r, _, _ = c.Lookup(ctx, k)
	if r.Bytes[0] != 8 {
		t.Fatalf("replaced record not returned, got %v", r.Bytes)
	}
}

func TestMemoryInvalidateIf(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}

	for i := uint32(0); i < 5; i++ {
		c.Insert(ctx, waterKey(i, 0, 5), NewRecord([]byte{1}))
		c.Insert(ctx, landKey(i, 0, 5), NewRecord([]byte{2}))
	}

	if n := c.InvalidateIf(OfKind(WaterTile)); n != 5 {
		t.Fatalf("InvalidateIf removed %d, want 5", n)
	}
	for i := uint32(0); i < 5; i++ {
		if _, ok := c.Get(waterKey(i, 0, 5)); ok {
			t.Fatalf("water tile %d survived", i)
		}
		if _, ok := c.Get(landKey(i, 0, 5)); !ok {
			t.Fatalf("land tile %d was removed", i)
		}
	}
	if n := c.InvalidateIf(OfKind(WaterTile)); n != 0 {
		t.Fatalf("second InvalidateIf removed %d, want 0", n)
	}
}
