package app

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	unlock := l.Lock("account:1")

	acquired := make(chan struct{})
	go func() {
		release := l.Lock("account:1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatalf("second Lock on the same key must block")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second Lock did not proceed after unlock")
	}
}

func TestKeyedLockerIndependentKeys(t *testing.T) {
	l := NewKeyedLocker()
	unlock := l.Lock("account:1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		l.Lock("account:2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("locking a different key blocked")
	}
}

func TestKeyedLockerOrdersKeys(t *testing.T) {
	l := NewKeyedLocker()
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Lock("account:a", "account:b")()
		}()
		go func() {
			defer wg.Done()
			l.Lock("account:b", "account:a", "account:b", "")()
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("opposite key order deadlocked")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) != 0 {
		t.Fatalf("expected lock entries to be released, %d left", len(l.entries))
	}
}

func TestAccountKey(t *testing.T) {
	if accountKey("") != "" {
		t.Fatalf("empty account number must map to no lock")
	}
	if accountKey("10000000000001") != "account:10000000000001" {
		t.Fatalf("unexpected key %q", accountKey("10000000000001"))
	}
}
