package adaptive

import (
	"testing"
	"time"
)

func TestCheckHeap(t *testing.T) {
	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	t.Run("pops earliest first", func(t *testing.T) {
		var h checkHeap
		h.push(checkEvent{AlarmID: "c", DueAt: base.Add(30 * time.Minute)})
		h.push(checkEvent{AlarmID: "a", DueAt: base})
		h.push(checkEvent{AlarmID: "b", DueAt: base.Add(10 * time.Minute)})

		if ev, ok := h.peek(); !ok || ev.AlarmID != "a" {
			t.Fatalf("peek = %+v, %v", ev, ok)
		}
		var order []string
		for h.Len() > 0 {
			order = append(order, h.pop().AlarmID)
		}
		if got := order[0] + order[1] + order[2]; got != "abc" {
			t.Errorf("pop order = %v", order)
		}
	})

	t.Run("remove alarm keeps heap order", func(t *testing.T) {
		var h checkHeap
		for i, id := range []string{"x", "y", "x", "z", "y", "x"} {
			h.push(checkEvent{AlarmID: id, DueAt: base.Add(time.Duration(6-i) * time.Minute)})
		}
		if !h.removeAlarm("x") {
			t.Fatal("expected x to be removed")
		}
		if h.removeAlarm("x") {
			t.Error("second removal should report nothing removed")
		}
		if h.Len() != 3 {
			t.Fatalf("len = %d, want 3", h.Len())
		}
		prev := time.Time{}
		for h.Len() > 0 {
			ev := h.pop()
			if ev.AlarmID == "x" {
				t.Error("x still queued")
			}
			if ev.DueAt.Before(prev) {
				t.Error("events popped out of order")
			}
			prev = ev.DueAt
		}
	})

	t.Run("empty peek", func(t *testing.T) {
		var h checkHeap
		if _, ok := h.peek(); ok {
			t.Error("peek on empty heap should fail")
		}
	})
}
