package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id string, version int64) Task {
	return Task{DocumentID: id, Version: version, Kind: KindDocumentationAnalysis}
}

func TestTaskQueue_FIFOAcrossKeys(t *testing.T) {
	q := newTaskQueue()

	for _, id := range []string{"A", "B", "C"} {
		coalesced, ok := q.Enqueue(task(id, 1))
		require.True(t, ok)
		assert.False(t, coalesced)
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.DocumentID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_CoalescesKeepsLatestVersion(t *testing.T) {
	q := newTaskQueue()

	coalesced, _ := q.Enqueue(task("A", 1))
	assert.False(t, coalesced)
	coalesced, _ = q.Enqueue(task("A", 3))
	assert.True(t, coalesced)
	coalesced, _ = q.Enqueue(task("A", 2))
	assert.True(t, coalesced)
	assert.Equal(t, 1, q.Len())

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Version, "an older version never replaces a newer one")

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_KindsAreSeparateKeys(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(task("A", 1))
	q.Enqueue(Task{DocumentID: "A", Version: 1, Kind: "other"})

	assert.Equal(t, 2, q.Len())
}

func TestTaskQueue_InFlightKeyIsHeldBack(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(task("A", 1))
	running, ok := q.TryDequeue()
	require.True(t, ok)

	// Re-enqueued while running: recorded, not handed out.
	coalesced, ok := q.Enqueue(task("A", 2))
	require.True(t, ok)
	assert.False(t, coalesced)
	assert.Equal(t, 1, q.Len())
	_, ok = q.TryDequeue()
	assert.False(t, ok, "same key must not run twice concurrently")

	// Further enqueues still coalesce into the held task.
	coalesced, _ = q.Enqueue(task("A", 3))
	assert.True(t, coalesced)

	q.Done(running.Key())
	next, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, int64(3), next.Version)
}

func TestTaskQueue_Idle(t *testing.T) {
	q := newTaskQueue()
	assert.True(t, q.Idle())

	q.Enqueue(task("A", 1))
	assert.False(t, q.Idle())

	got, _ := q.TryDequeue()
	assert.False(t, q.Idle(), "in-flight tasks keep the queue busy")

	q.Done(got.Key())
	assert.True(t, q.Idle())
}

func TestTaskQueue_SignalsOnEnqueue(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(task("A", 1))

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}
}

func TestTaskQueue_PassesSignalOn(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(task("A", 1))
	q.Enqueue(task("B", 1))

	<-q.Wait()
	_, ok := q.TryDequeue()
	require.True(t, ok)

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("remaining work was not signaled")
	}
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(task("A", 1))
	q.Close()
	q.Close()

	_, ok := q.Enqueue(task("B", 1))
	assert.False(t, ok)
	assert.True(t, q.Closed())

	// Queued work is still handed out.
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", got.DocumentID)

	// Done after close must not panic on the closed signal channel.
	assert.NotPanics(t, func() { q.Done(got.Key()) })

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should wake waiters")
	}
}
