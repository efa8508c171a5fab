// Package testing provides test helpers for the featurestore tests.
//
// t.Fatal and t.FailNow call runtime.Goexit, which only terminates the
// calling goroutine. Tests that spawn goroutines collect failures
// through TestHelper instead.
package testing

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestHelper collects errors from test goroutines.
//
// Usage:
//
//	h := NewTestHelper(t)
//	defer h.Wait()
//
//	for i := 0; i < 10; i++ {
//	    h.Add(1)
//	    go func(id int) {
//	        defer h.Done()
//	        if err := doSomething(); err != nil {
//	            h.Errorf("worker %d: %v", id, err)
//	        }
//	    }(i)
//	}
type TestHelper struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Add increments the goroutine counter.
func (h *TestHelper) Add(delta int) {
	h.wg.Add(delta)
}

// Done decrements the goroutine counter.
func (h *TestHelper) Done() {
	h.wg.Done()
}

// Errorf records a test error. Safe to call from any goroutine.
func (h *TestHelper) Errorf(format string, args ...interface{}) {
	select {
	case h.errors <- fmt.Errorf(format, args...):
	default:
		// Buffer full; the test still fails on the recorded errors.
	}
}

// Error records a non-nil error. Safe to call from any goroutine.
func (h *TestHelper) Error(err error) {
	if err == nil {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// Wait blocks for all goroutines and reports collected errors. Call
// it, typically via defer, or failures are silently dropped.
func (h *TestHelper) Wait() {
	h.wg.Wait()
	close(h.errors)

	var failed bool
	for err := range h.errors {
		h.t.Errorf("goroutine error: %v", err)
		failed = true
	}
	if failed {
		h.t.FailNow()
	}
}

// Eventually polls condition until it returns true or the timeout
// elapses.
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
