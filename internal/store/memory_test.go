package store

import (
	"sync"
	"testing"
	"time"
)

type result struct {
	Target  string
	Success int
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore[result](3)
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	// should start empty
	if len(store.Results()) != 0 {
		t.Errorf("Results() = %v items, want 0", len(store.Results()))
	}
	if store.Size() != 3 {
		t.Errorf("Size() = %d, want 3", store.Size())
	}
}

func TestNewMemoryStore_NegativeSize(t *testing.T) {
	store := NewMemoryStore[result](-1)
	if store.Size() != 0 {
		t.Errorf("Size() = %d, want 0", store.Size())
	}
	if err := store.Put(0, result{}); err == nil {
		t.Error("Put() on empty store error = nil, want error")
	}
}

func TestMemoryStore_Put(t *testing.T) {
	store := NewMemoryStore[result](1)

	if err := store.Put(0, result{Target: "https://example.com", Success: 3}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	all := store.Results()
	if len(all) != 1 {
		t.Fatalf("Results() = %v items, want 1", len(all))
	}
	if all[0].Target != "https://example.com" {
		t.Errorf("Results()[0].Target = %v, want %v", all[0].Target, "https://example.com")
	}
	if all[0].Success != 3 {
		t.Errorf("Results()[0].Success = %v, want %v", all[0].Success, 3)
	}
}

func TestMemoryStore_PutOutOfRange(t *testing.T) {
	store := NewMemoryStore[result](2)

	for _, idx := range []int{-1, 2, 10} {
		if err := store.Put(idx, result{}); err == nil {
			t.Errorf("Put(%d) error = nil, want error", idx)
		}
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestMemoryStore_PutOverwrites(t *testing.T) {
	store := NewMemoryStore[result](1)

	_ = store.Put(0, result{Target: "a", Success: 1})
	_ = store.Put(0, result{Target: "a", Success: 2})

	all := store.Results()
	if len(all) != 1 {
		t.Fatalf("Results() = %v items, want 1", len(all))
	}
	if all[0].Success != 2 {
		t.Errorf("Results()[0].Success = %v, want %v", all[0].Success, 2)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_ResultsInSlotOrder(t *testing.T) {
	store := NewMemoryStore[result](4)

	// fill out of order, leave slot 1 empty
	_ = store.Put(3, result{Target: "d"})
	_ = store.Put(0, result{Target: "a"})
	_ = store.Put(2, result{Target: "c"})

	all := store.Results()
	want := []string{"a", "c", "d"}
	if len(all) != len(want) {
		t.Fatalf("Results() = %v items, want %d", len(all), len(want))
	}
	for i, r := range all {
		if r.Target != want[i] {
			t.Errorf("Results()[%d].Target = %q, want %q", i, r.Target, want[i])
		}
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore[result](1)

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		_ = store.Put(0, result{Target: "Test"})
	}()

	select {
	case r := <-ch:
		if r.Target != "Test" {
			t.Errorf("received Target = %v, want %v", r.Target, "Test")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_SubscriberHoldsOneUpdatePerSlot(t *testing.T) {
	const size = 250
	store := NewMemoryStore[result](size)
	ch := store.Subscribe()

	// nobody reads until every slot is filled
	for i := 0; i < size; i++ {
		_ = store.Put(i, result{Success: i})
	}

	received := 0
	for received < size {
		select {
		case <-ch:
			received++
		default:
			t.Fatalf("received %d/%d updates, want all buffered", received, size)
		}
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore[result](1)

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		_ = store.Put(0, result{Target: "Test"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore[result](1)

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	// second call is a no-op
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore[result](1)

	// subscriber that is never read
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < 500; i++ {
			_ = store.Put(0, result{Success: i})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Put() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	const numGoroutines = 10
	store := NewMemoryStore[result](numGoroutines)

	var wg sync.WaitGroup

	// concurrent writers, one slot each
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Put(id, result{Success: j})
			}
		}(i)
	}

	// concurrent reads
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Results()
				_ = store.Len()
			}
		}()
	}

	// concurrent subscribe/unsubscribe
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if store.Len() != numGoroutines {
		t.Errorf("Len() = %d, want %d", store.Len(), numGoroutines)
	}
}
