package scoring

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func bundleWithScore(score float64) *Bundle {
	return &Bundle{Combined: Combined{Score: score}}
}

func TestResultCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newResultCache(2)

	a := cacheKey{resume: "a", job: "x"}
	b := cacheKey{resume: "b", job: "x"}
	d := cacheKey{resume: "d", job: "x"}

	c.add(a, bundleWithScore(1))
	c.add(b, bundleWithScore(2))

	// touch a so that b becomes the eviction candidate
	if _, ok := c.get(a); !ok {
		t.Fatalf("expected a to be cached")
	}

	c.add(d, bundleWithScore(3))

	if c.size() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.size())
	}
	if _, ok := c.get(b); ok {
		t.Fatalf("expected b to be evicted")
	}
	if got, ok := c.get(a); !ok || got.Combined.Score != 1 {
		t.Fatalf("expected a to survive, got %+v", got)
	}
	if _, ok := c.get(d); !ok {
		t.Fatalf("expected d to be cached")
	}
}

func TestResultCacheDefaultCapacity(t *testing.T) {
	c := newResultCache(0)
	if c.capacity != defaultCacheSize {
		t.Fatalf("expected default capacity %d, got %d", defaultCacheSize, c.capacity)
	}
}

func TestResultCacheKeysAreOrderedPairs(t *testing.T) {
	c := newResultCache(10)

	c.add(cacheKey{resume: "ab", job: "c"}, bundleWithScore(1))
	if _, ok := c.get(cacheKey{resume: "a", job: "bc"}); ok {
		t.Fatalf("pairs with the same concatenation must not collide")
	}
	if _, ok := c.get(cacheKey{resume: "c", job: "ab"}); ok {
		t.Fatalf("swapped pair must be a different key")
	}

	if (cacheKey{resume: "ab", job: "c"}).flight() == (cacheKey{resume: "a", job: "bc"}).flight() {
		t.Fatalf("flight keys must not collide")
	}
}

func TestResultCacheClear(t *testing.T) {
	c := newResultCache(10)
	c.add(cacheKey{resume: "a", job: "b"}, bundleWithScore(1))
	c.add(cacheKey{resume: "c", job: "d"}, bundleWithScore(2))

	c.clear()

	if c.size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.size())
	}
	if _, ok := c.get(cacheKey{resume: "a", job: "b"}); ok {
		t.Fatalf("expected entry to be cleared")
	}
}

func TestResultCacheGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := newResultCache(10)
	key := cacheKey{resume: "r", job: "j"}

	var computations atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.getOrCompute(key, func() (*Bundle, bool) {
				computations.Add(1)
				<-release
				return bundleWithScore(5), true
			})
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := computations.Load(); got != 1 {
		t.Fatalf("expected a single computation, got %d", got)
	}

	bundle, hit := c.getOrCompute(key, func() (*Bundle, bool) {
		t.Fatalf("unexpected computation")
		return nil, false
	})
	if !hit || bundle.Combined.Score != 5 {
		t.Fatalf("expected cached bundle, got hit=%v bundle=%+v", hit, bundle)
	}
}

func TestResultCacheSkipsDiscardedResults(t *testing.T) {
	c := newResultCache(10)
	key := cacheKey{resume: "r", job: "j"}

	bundle, hit := c.getOrCompute(key, func() (*Bundle, bool) {
		return bundleWithScore(1), false
	})
	if hit || bundle.Combined.Score != 1 {
		t.Fatalf("unexpected result hit=%v bundle=%+v", hit, bundle)
	}
	if c.size() != 0 {
		t.Fatalf("discarded result must not be cached")
	}
}

func TestResultCacheWaiterRecomputesDiscardedResult(t *testing.T) {
	c := newResultCache(10)
	key := cacheKey{resume: "r", job: "j"}

	started := make(chan struct{})
	release := make(chan struct{})

	var first, second *Bundle
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		first, _ = c.getOrCompute(key, func() (*Bundle, bool) {
			close(started)
			<-release
			return bundleWithScore(0), false
		})
	}()
	<-started

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		second, _ = c.getOrCompute(key, func() (*Bundle, bool) {
			return bundleWithScore(7), true
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-firstDone
	<-secondDone

	if first.Combined.Score != 0 {
		t.Fatalf("expected the discarded bundle for its own caller, got %+v", first)
	}
	if second.Combined.Score != 7 {
		t.Fatalf("expected the waiter to compute its own bundle, got %+v", second)
	}
	if c.size() != 1 {
		t.Fatalf("expected the waiter's bundle to be cached, got %d entries", c.size())
	}
}
