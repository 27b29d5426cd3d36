package store

import (
	"sync"
	"testing"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()
	for want := int64(1); want <= 3; want++ {
		if got := c.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}

	resumed := NewClockAt(41)
	if got := resumed.Next(); got != 42 {
		t.Errorf("NewClockAt(41).Next() = %d, want 42", got)
	}
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	seen := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for v := range seen {
		if unique[v] {
			t.Fatalf("duplicate seq %d", v)
		}
		unique[v] = true
	}
	if len(unique) != 100 {
		t.Errorf("got %d unique values, want 100", len(unique))
	}
}
