package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidEvents(t *testing.T) {
	var callCount atomic.Int32

	delay := 50 * time.Millisecond
	d := NewDebouncer(delay, func(string) {
		callCount.Add(1)
	})

	for i := 0; i < 5; i++ {
		d.Add("Baiken")
		time.Sleep(5 * time.Millisecond)
	}
	if !d.IsPending("Baiken") {
		t.Error("key should be pending after Add")
	}

	time.Sleep(delay + 50*time.Millisecond)

	if n := callCount.Load(); n != 1 {
		t.Errorf("expected callback to be called once, got %d", n)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected 0 pending, got %d", d.PendingCount())
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	seen := make(chan string, 2)
	d := NewDebouncer(10*time.Millisecond, func(key string) { seen <- key })

	d.Add("Baiken")
	d.Add("Sol_Badguy")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case key := <-seen:
			got[key] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for callbacks")
		}
	}
	if !got["Baiken"] || !got["Sol_Badguy"] {
		t.Errorf("callbacks = %v, want both keys", got)
	}
}

func TestDebouncer_CancelAll(t *testing.T) {
	var callCount atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { callCount.Add(1) })

	d.Add("a")
	d.Add("b")
	d.CancelAll()

	time.Sleep(60 * time.Millisecond)
	if n := callCount.Load(); n != 0 {
		t.Errorf("expected no callbacks after CancelAll, got %d", n)
	}
}
