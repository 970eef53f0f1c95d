package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/user/mediaplay/pkg/media"
)

// PCMQueue hands resampled audio from the audio stage to the audio output.
//
// Producers Push owned buffers. Device outputs Pull fixed-size blocks: the block
// is filled from queued buffers in order and padded with silence when the queue
// runs dry. Bytes of a buffer that did not fit are carried into the next Pull.
type PCMQueue struct {
	format media.AudioFormat
	queue  *Queue[media.PCMBuffer]

	pullMu    sync.Mutex
	remainder []byte

	silence atomic.Int64
}

// NewPCMQueue creates a PCM queue for the given output format.
func NewPCMQueue(format media.AudioFormat) *PCMQueue {
	return &PCMQueue{
		format: format,
		queue:  NewQueue[media.PCMBuffer](),
	}
}

// Format returns the PCM format of the queued data.
func (q *PCMQueue) Format() media.AudioFormat {
	return q.format
}

// Push moves buf into the queue. Empty buffers are ignored.
func (q *PCMQueue) Push(buf media.PCMBuffer) {
	if len(buf.Data) == 0 {
		return
	}
	q.queue.Push(buf)
}

// Pop blocks until a buffer is available or the queue is finished and drained.
func (q *PCMQueue) Pop(ctx context.Context) (media.PCMBuffer, bool) {
	return q.queue.PopContext(ctx)
}

// SetFinished marks the end of the PCM stream.
func (q *PCMQueue) SetFinished(finished bool) {
	q.queue.SetFinished(finished)
}

// IsFinished reports whether the producer has finished.
func (q *PCMQueue) IsFinished() bool {
	return q.queue.IsFinished()
}

// Flush drops all queued and carried-over audio.
func (q *PCMQueue) Flush() int {
	q.pullMu.Lock()
	carried := len(q.remainder)
	q.remainder = nil
	q.pullMu.Unlock()
	if carried > 0 {
		q.queue.notifyTaken()
	}
	return q.queue.Flush()
}

// Taken returns a channel that receives after buffered audio has been pulled
// or flushed. See Queue.Taken.
func (q *PCMQueue) Taken() <-chan struct{} {
	return q.queue.Taken()
}

// Len returns the number of queued buffers.
func (q *PCMQueue) Len() int {
	return q.queue.Len()
}

// Buffered returns the number of bytes waiting to be pulled.
func (q *PCMQueue) Buffered() int {
	q.pullMu.Lock()
	n := len(q.remainder)
	q.pullMu.Unlock()

	q.queue.mu.Lock()
	for _, b := range q.queue.items[q.queue.head:] {
		n += len(b.Data)
	}
	q.queue.mu.Unlock()
	return n
}

// SilenceBytes returns the total number of padding bytes produced by Pull and Read.
func (q *PCMQueue) SilenceBytes() int64 {
	return q.silence.Load()
}

// Pull returns exactly maxBytes bytes of PCM. It never blocks.
func (q *PCMQueue) Pull(maxBytes int) media.PCMBuffer {
	if maxBytes <= 0 {
		return media.PCMBuffer{Format: q.format}
	}
	out := make([]byte, maxBytes)
	q.fill(out)
	return media.PCMBuffer{Format: q.format, Data: out}
}

// Read implements io.Reader for device libraries that pull through a reader.
// It always fills p and never returns an error.
func (q *PCMQueue) Read(p []byte) (int, error) {
	q.fill(p)
	return len(p), nil
}

// fill copies queued audio into p and zeroes the rest. It returns the number of
// audio bytes copied.
func (q *PCMQueue) fill(p []byte) int {
	q.pullMu.Lock()
	defer q.pullMu.Unlock()

	n := copy(p, q.remainder)
	q.remainder = q.remainder[n:]
	if len(q.remainder) == 0 {
		q.remainder = nil
	}
	if n > 0 {
		q.queue.notifyTaken()
	}

	for n < len(p) {
		buf, ok := q.queue.TryPop()
		if !ok {
			break
		}
		c := copy(p[n:], buf.Data)
		n += c
		if c < len(buf.Data) {
			q.remainder = buf.Data[c:]
		}
	}

	if n < len(p) {
		clear(p[n:])
		q.silence.Add(int64(len(p) - n))
	}
	return n
}
