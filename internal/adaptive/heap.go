package adaptive

import (
	"container/heap"
	"time"
)

// checkEvent is a pending adaptation check for one monitored alarm.
type checkEvent struct {
	AlarmID    string
	DueAt      time.Time
	Generation uint64
}

// checkHeap implements container/heap.Interface ordered by DueAt, earliest first.
type checkHeap []checkEvent

func (h checkHeap) Len() int           { return len(h) }
func (h checkHeap) Less(i, j int) bool { return h[i].DueAt.Before(h[j].DueAt) }
func (h checkHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *checkHeap) Push(x any) {
	*h = append(*h, x.(checkEvent))
}

func (h *checkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h *checkHeap) push(e checkEvent) {
	heap.Push(h, e)
}

func (h *checkHeap) pop() checkEvent {
	return heap.Pop(h).(checkEvent)
}

// peek returns the earliest event without removing it.
func (h checkHeap) peek() (checkEvent, bool) {
	if len(h) == 0 {
		return checkEvent{}, false
	}
	return h[0], true
}

// removeAlarm drops every event for the alarm and reports whether any existed.
func (h *checkHeap) removeAlarm(alarmID string) bool {
	kept := (*h)[:0]
	for _, e := range *h {
		if e.AlarmID != alarmID {
			kept = append(kept, e)
		}
	}
	found := len(kept) != len(*h)
	*h = kept
	if found {
		heap.Init(h)
	}
	return found
}
