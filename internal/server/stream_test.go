package server

import (
	"sync"
	"testing"
	"time"
)

func TestBroadcastConcurrent(t *testing.T) {
	eb := NewEventBroadcaster()

	chA := eb.Subscribe("job-a")
	defer eb.Unsubscribe("job-a", chA)

	// Drain so the buffered channel never stalls a broadcaster.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-chA:
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	// Several jobs broadcasting at once must not corrupt the lastEvent map.
	jobIDs := []string{"job-a", "job-b", "job-c", "job-d"}
	var wg sync.WaitGroup
	for _, jobID := range jobIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 1; i <= 1000; i++ {
				eb.Broadcast(ProgressEvent{
					JobID:     id,
					State:     StateRunning,
					Iteration: i,
					Timestamp: time.Now(),
				})
			}
		}(jobID)
	}
	wg.Wait()

	// Every job's final event must have been retained.
	for _, jobID := range jobIDs {
		eb.mu.RLock()
		last, ok := eb.lastEvent[jobID]
		eb.mu.RUnlock()
		if !ok {
			t.Errorf("No last event retained for %s", jobID)
			continue
		}
		if last.Iteration != 1000 {
			t.Errorf("Last event for %s has iteration %d, expected 1000", jobID, last.Iteration)
		}
	}
}

func TestSubscribeReplaysLastEvent(t *testing.T) {
	eb := NewEventBroadcaster()

	eb.Broadcast(ProgressEvent{JobID: "job-1", State: StateRunning, Iteration: 7, Timestamp: time.Now()})

	ch := eb.Subscribe("job-1")
	defer eb.Unsubscribe("job-1", ch)

	select {
	case event := <-ch:
		if event.Iteration != 7 {
			t.Errorf("Replayed iteration = %d, expected 7", event.Iteration)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected the last event to be replayed on subscribe")
	}
}
