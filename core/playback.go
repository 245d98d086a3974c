package client

import "sync"

// playbackDevice renders one PCM buffer at a time. onPlayed fires once the
// buffer has fully left the device; Clear drops buffered audio together
// with every not-yet-fired completion callback.
type playbackDevice interface {
	Play(pcm []byte, onPlayed func()) error
	Clear()
}

// playbackPipeline plays streamed utterance buffers strictly in FIFO order
// with no overlap.
//
// The playing flag is the pipeline's only mutex-like guard: a buffer is
// dequeued only while it is false, and the device's asynchronous completion
// callback is what releases it. Completions are tagged with a generation so
// a callback from before a cancellation can never dequeue the next buffer
// of a new utterance.
type playbackPipeline struct {
	mu sync.Mutex

	device playbackDevice

	queue       [][]byte
	playing     bool
	endOfStream bool
	generation  int

	onDrained func()
}

func newPlaybackPipeline(device playbackDevice, onDrained func()) *playbackPipeline {
	if onDrained == nil {
		onDrained = func() {}
	}
	return &playbackPipeline{device: device, onDrained: onDrained}
}

// Begin resets utterance-scoped state on an audio-start signal.
func (p *playbackPipeline) Begin() {
	p.mu.Lock()
	p.endOfStream = false
	p.mu.Unlock()
}

// Enqueue appends one buffer and starts playback if nothing is playing.
func (p *playbackPipeline) Enqueue(pcm []byte) {
	if p.device == nil || len(pcm) == 0 {
		return
	}

	p.mu.Lock()
	p.queue = append(p.queue, pcm)
	drained := p.playNextLocked()
	p.mu.Unlock()
	if drained {
		p.onDrained()
	}
}

// EndOfStream records that no further buffers are expected for the current
// utterance. If everything already finished playing, the drain notification
// fires immediately.
func (p *playbackPipeline) EndOfStream() {
	p.mu.Lock()
	p.endOfStream = true
	drained := p.drainedLocked()
	if drained {
		p.endOfStream = false
	}
	p.mu.Unlock()
	if drained {
		p.onDrained()
	}
}

// Cancel discards the queue and the in-flight buffer. The device clear
// detaches pending completion callbacks before anything else, and stale
// completions are fenced by the generation bump, so no spurious
// dequeue-of-next can follow. Invoking Cancel when nothing is playing is a
// no-op.
func (p *playbackPipeline) Cancel() {
	p.mu.Lock()
	p.generation++
	p.queue = nil
	p.playing = false
	p.endOfStream = false
	device := p.device
	p.mu.Unlock()

	if device != nil {
		device.Clear()
	}
}

// Active reports whether any buffer is queued or playing.
func (p *playbackPipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing || len(p.queue) > 0
}

// playNextLocked dequeues and plays while the floor is free. A buffer the
// device rejects is skipped so one bad chunk cannot stall the rest of the
// utterance. Reports whether the utterance fully drained.
func (p *playbackPipeline) playNextLocked() bool {
	for !p.playing && len(p.queue) > 0 {
		pcm := p.queue[0]
		p.queue = p.queue[1:]

		generation := p.generation
		p.playing = true
		if err := p.device.Play(pcm, func() { p.completed(generation) }); err != nil {
			logger.Warn("skipping undecodable audio buffer", "error", err)
			p.playing = false
			continue
		}
	}

	if p.drainedLocked() {
		p.endOfStream = false
		return true
	}
	return false
}

func (p *playbackPipeline) completed(generation int) {
	p.mu.Lock()
	if generation != p.generation {
		p.mu.Unlock()
		return
	}
	p.playing = false
	drained := p.playNextLocked()
	p.mu.Unlock()
	if drained {
		p.onDrained()
	}
}

func (p *playbackPipeline) drainedLocked() bool {
	return p.endOfStream && !p.playing && len(p.queue) == 0
}
