package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nahlund/backend/tileserver/pkg/logger"
)

func setupMultiLayer(t *testing.T, dir string) *MultiLayerCache {
	t.Helper()
	mem, err := NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	disk, err := NewDiskCache(dir, 64)
	if err != nil {
		t.Fatal(err)
	}
	c := NewMultiLayerCache(mem, disk, logger.NewNoOpLogger())
	t.Cleanup(func() { c.Close() })
	return c
}

func constGen(b []byte, calls *atomic.Int32) Generator {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return b, nil
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := setupMultiLayer(t, t.TempDir())
	k := waterKey(3, 2, 5)

	var calls atomic.Int32
	release := make(chan struct{})
	gen := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte{1, 2, 3}, nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), k, gen)
		}(i)
	}

	// let the callers pile up behind the first flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("generator ran %d times, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], []byte{1, 2, 3}) {
			t.Fatalf("caller %d got %v", i, results[i])
		}
	}
}

func TestGetOrComputeCachesFirstResult(t *testing.T) {
	ctx := context.Background()
	c := setupMultiLayer(t, t.TempDir())
	k := waterKey(3, 2, 5)

	var first, second atomic.Int32
	got, err := c.GetOrCompute(ctx, k, constGen([]byte{1, 2, 3}, &first))
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("first call = (%v, %v)", got, err)
	}

	got, err = c.GetOrCompute(ctx, k, constGen([]byte{9, 9, 9}, &second))
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("second call = (%v, %v), want cached [1 2 3]", got, err)
	}
	if second.Load() != 0 {
		t.Fatal("second generator must not run on a hit")
	}
}

func TestEvictKindKeepsOtherKinds(t *testing.T) {
	ctx := context.Background()
	c := setupMultiLayer(t, t.TempDir())
	w, l := waterKey(3, 2, 5), landKey(3, 2, 5)

	var calls atomic.Int32
	c.GetOrCompute(ctx, w, constGen([]byte("water"), &calls))
	c.GetOrCompute(ctx, l, constGen([]byte("land"), &calls))

	memory, disk := c.Evict(WaterTile)
	if memory != 1 || disk != 1 {
		t.Fatalf("Evict = (%d, %d), want (1, 1)", memory, disk)
	}
	c.disk.Wait()

	var regen atomic.Int32
	got, _ := c.GetOrCompute(ctx, w, constGen([]byte("fresh"), &regen))
	if regen.Load() != 1 || string(got) != "fresh" {
		t.Fatalf("water tile not regenerated: got %q after %d calls", got, regen.Load())
	}

	var landCalls atomic.Int32
	got, _ = c.GetOrCompute(ctx, l, constGen([]byte("other"), &landCalls))
	if landCalls.Load() != 0 || string(got) != "land" {
		t.Fatalf("land tile lost its cached value: got %q", got)
	}
}

func TestGetOrComputeSharesErrorAndDoesNotCache(t *testing.T) {
	ctx := context.Background()
	c := setupMultiLayer(t, t.TempDir())
	k := landKey(1, 1, 1)
	boom := errors.New("upstream down")

	release := make(chan struct{})
	var calls atomic.Int32
	failing := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return nil, boom
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrCompute(ctx, k, failing)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("failing generator ran %d times, want 1", calls.Load())
	}
	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d got %v, want %v", i, err, boom)
		}
	}

	if _, ok := c.Get(ctx, k); ok {
		t.Fatal("failure must not be cached")
	}

	var retry atomic.Int32
	got, err := c.GetOrCompute(ctx, k, constGen([]byte{4}, &retry))
	if err != nil || retry.Load() != 1 || !bytes.Equal(got, []byte{4}) {
		t.Fatalf("retry = (%v, %v) after %d calls", got, err, retry.Load())
	}
}

func TestGetOrComputePanicBecomesError(t *testing.T) {
	c := setupMultiLayer(t, t.TempDir())
	_, err := c.GetOrCompute(context.Background(), landKey(0, 0, 0), func(context.Context) ([]byte, error) {
		panic("bad tile")
	})
	if err == nil {
		t.Fatal("expected error from panicking generator")
	}
}

func TestAbandonedCallerStillInstallsResult(t *testing.T) {
	c := setupMultiLayer(t, t.TempDir())
	k := waterKey(7, 7, 7)

	release := make(chan struct{})
	done := make(chan struct{})
	gen := func(ctx context.Context) ([]byte, error) {
		defer close(done)
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []byte("late"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, k, gen)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned caller got %v, want context.Canceled", err)
	}

	close(release)
	<-done

	// the flight stores before it returns; give it a moment to finish
	deadline := time.Now().Add(time.Second)
	for {
		if got, ok := c.Get(context.Background(), k); ok {
			if string(got) != "late" {
				t.Fatalf("installed %q, want late", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("result of abandoned flight was not cached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReadThroughAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	k := landKey(232837, 103208, 18)

	first := setupMultiLayer(t, dir)
	var calls atomic.Int32
	if _, err := first.GetOrCompute(ctx, k, constGen([]byte("persisted"), &calls)); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := setupMultiLayer(t, dir)
	var again atomic.Int32
	got, err := second.GetOrCompute(ctx, k, constGen([]byte("regenerated"), &again))
	if err != nil {
		t.Fatal(err)
	}
	if again.Load() != 0 || string(got) != "persisted" {
		t.Fatalf("got %q after %d generator calls, want disk hit", got, again.Load())
	}
	if stats := second.Stats(); stats.DiskEntries != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, ok := second.memory.Get(k); !ok {
		t.Fatal("disk hit was not promoted to memory")
	}
}

func TestPutReplacesAndRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	c := setupMultiLayer(t, t.TempDir())
	k := Key{Kind: CustomModelTile}

	if err := c.Put(ctx, k, nil); err == nil {
		t.Fatal("empty payload accepted")
	}
	if err := c.Put(ctx, k, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, k, []byte("b")); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(ctx, k)
	if !ok || string(got) != "b" {
		t.Fatalf("Get = (%q, %v), want b", got, ok)
	}
}

func TestReturnedBytesDoNotAliasCache(t *testing.T) {
	ctx := context.Background()
	c := setupMultiLayer(t, t.TempDir())
	k := waterKey(4, 4, 4)

	var calls atomic.Int32
	first, err := c.GetOrCompute(ctx, k, constGen([]byte{1, 2, 3}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	first[0] = 9

	second, err := c.GetOrCompute(ctx, k, constGen([]byte{7}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(second, []byte{1, 2, 3}) {
		t.Fatalf("GetOrCompute after caller mutation = %v, want [1 2 3]", second)
	}
	second[1] = 9

	got, ok := c.Get(ctx, k)
	if !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("Get after caller mutation = (%v, %v), want [1 2 3]", got, ok)
	}

	upload := []byte("model")
	if err := c.Put(ctx, Key{Kind: CustomModelTile}, upload); err != nil {
		t.Fatal(err)
	}
	upload[0] = 'X'
	if got, _ := c.Get(ctx, Key{Kind: CustomModelTile}); string(got) != "model" {
		t.Fatalf("Put kept the caller's slice: %q", got)
	}
}
