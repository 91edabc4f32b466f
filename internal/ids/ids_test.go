package ids

import (
	"sort"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("not a valid identifier: %q (%v)", id, err)
	}

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewRequestID()
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("sequential ids must sort in generation order")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNewRequestIDConcurrent(t *testing.T) {
	const n = 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewRequestID()
			mu.Lock()
			all[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(all) != n {
		t.Fatalf("got %d unique ids, want %d", len(all), n)
	}
}
