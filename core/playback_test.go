package client

import (
	"sync"
	"testing"
)

// fakePlaybackDevice records buffers and lets tests fire completion
// callbacks by hand.
type fakePlaybackDevice struct {
	mu sync.Mutex

	played      [][]byte
	completions []func()
	clears      int

	rejectNext bool
}

func (d *fakePlaybackDevice) Play(pcm []byte, onPlayed func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rejectNext {
		d.rejectNext = false
		return errBadBuffer
	}
	d.played = append(d.played, pcm)
	d.completions = append(d.completions, onPlayed)
	return nil
}

func (d *fakePlaybackDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	d.completions = nil
}

// completeNext fires the oldest pending completion, mimicking the device
// finishing one buffer.
func (d *fakePlaybackDevice) completeNext(t *testing.T) {
	t.Helper()

	d.mu.Lock()
	if len(d.completions) == 0 {
		d.mu.Unlock()
		t.Fatalf("no pending completion")
	}
	onPlayed := d.completions[0]
	d.completions = d.completions[1:]
	d.mu.Unlock()

	onPlayed()
}

func (d *fakePlaybackDevice) playedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.played)
}

var errBadBuffer = &playbackTestError{}

type playbackTestError struct{}

func (*playbackTestError) Error() string { return "bad buffer" }

func TestPlaybackPlaysStrictlyInOrderWithoutOverlap(t *testing.T) {
	device := &fakePlaybackDevice{}
	pipeline := newPlaybackPipeline(device, nil)

	pipeline.Begin()
	pipeline.Enqueue([]byte("one"))
	pipeline.Enqueue([]byte("two"))
	pipeline.Enqueue([]byte("three"))

	// Only the first buffer reaches the device until it completes.
	if got := device.playedCount(); got != 1 {
		t.Fatalf("expected one in-flight buffer, got %d", got)
	}

	device.completeNext(t)
	if got := device.playedCount(); got != 2 {
		t.Fatalf("expected second buffer after first completion, got %d", got)
	}
	device.completeNext(t)
	device.completeNext(t)

	device.mu.Lock()
	defer device.mu.Unlock()
	if string(device.played[0]) != "one" || string(device.played[1]) != "two" || string(device.played[2]) != "three" {
		t.Fatalf("expected FIFO order, got %q %q %q", device.played[0], device.played[1], device.played[2])
	}
}

func TestPlaybackDrainFiresOnlyAfterEndOfStreamAndEmptyQueue(t *testing.T) {
	device := &fakePlaybackDevice{}
	drained := 0
	pipeline := newPlaybackPipeline(device, func() { drained++ })

	pipeline.Begin()
	pipeline.Enqueue([]byte("one"))
	pipeline.Enqueue([]byte("two"))
	pipeline.EndOfStream()

	if drained != 0 {
		t.Fatalf("expected no drain while buffers are playing, got %d", drained)
	}

	device.completeNext(t)
	if drained != 0 {
		t.Fatalf("expected no drain with a buffer still in flight, got %d", drained)
	}

	device.completeNext(t)
	if drained != 1 {
		t.Fatalf("expected exactly one drain notification, got %d", drained)
	}
}

func TestPlaybackDrainFiresImmediatelyIfAlreadyFinished(t *testing.T) {
	device := &fakePlaybackDevice{}
	drained := 0
	pipeline := newPlaybackPipeline(device, func() { drained++ })

	pipeline.Begin()
	pipeline.Enqueue([]byte("one"))
	device.completeNext(t)

	pipeline.EndOfStream()
	if drained != 1 {
		t.Fatalf("expected drain on end-of-stream after playback finished, got %d", drained)
	}
}

func TestPlaybackCancelDiscardsEverything(t *testing.T) {
	device := &fakePlaybackDevice{}
	drained := 0
	pipeline := newPlaybackPipeline(device, func() { drained++ })

	pipeline.Begin()
	pipeline.Enqueue([]byte("one"))
	pipeline.Enqueue([]byte("two"))

	pipeline.Cancel()

	if pipeline.Active() {
		t.Fatalf("expected pipeline inactive after cancel")
	}
	device.mu.Lock()
	clears := device.clears
	device.mu.Unlock()
	if clears != 1 {
		t.Fatalf("expected device clear on cancel, got %d", clears)
	}

	// A second cancel with nothing playing is a no-op beyond the clear.
	pipeline.Cancel()
	if pipeline.Active() {
		t.Fatalf("expected pipeline to stay inactive")
	}
	if drained != 0 {
		t.Fatalf("expected no drain notification from cancel, got %d", drained)
	}
}

func TestPlaybackStaleCompletionCannotDequeueNextUtterance(t *testing.T) {
	device := &fakePlaybackDevice{}
	pipeline := newPlaybackPipeline(device, nil)

	pipeline.Begin()
	pipeline.Enqueue([]byte("old"))

	// Keep a handle on the completion from before the cancellation, as a
	// real device might fire it late.
	device.mu.Lock()
	staleCompletion := device.completions[0]
	device.mu.Unlock()

	pipeline.Cancel()

	pipeline.Begin()
	pipeline.Enqueue([]byte("new-1"))
	pipeline.Enqueue([]byte("new-2"))

	before := device.playedCount()
	staleCompletion()
	if got := device.playedCount(); got != before {
		t.Fatalf("expected stale completion to be fenced, device saw %d buffers", got)
	}

	// The new utterance still progresses through its own completions.
	device.completeNext(t)
	if got := device.playedCount(); got != before+1 {
		t.Fatalf("expected next buffer after genuine completion, got %d", got)
	}
}

func TestPlaybackSkipsRejectedBuffers(t *testing.T) {
	device := &fakePlaybackDevice{rejectNext: true}
	drained := 0
	pipeline := newPlaybackPipeline(device, func() { drained++ })

	pipeline.Begin()
	pipeline.Enqueue([]byte("bad"))
	pipeline.Enqueue([]byte("good"))

	if got := device.playedCount(); got != 1 {
		t.Fatalf("expected rejected buffer to be skipped, device saw %d", got)
	}
	device.mu.Lock()
	first := string(device.played[0])
	device.mu.Unlock()
	if first != "good" {
		t.Fatalf("expected the good buffer to play, got %q", first)
	}

	pipeline.EndOfStream()
	device.completeNext(t)
	if drained != 1 {
		t.Fatalf("expected drain after the surviving buffer, got %d", drained)
	}
}

func TestPlaybackWithoutDeviceDropsAudio(t *testing.T) {
	pipeline := newPlaybackPipeline(nil, nil)

	pipeline.Begin()
	pipeline.Enqueue([]byte("one"))
	pipeline.EndOfStream()
	pipeline.Cancel()

	if pipeline.Active() {
		t.Fatalf("expected deviceless pipeline to stay inactive")
	}
}
