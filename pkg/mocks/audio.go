package mocks

import (
	"context"
	"sync"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// AudioOutput is a mock implementation of ports.AudioOutput.
// With Drain set it pops every buffer from the source until the source finishes.
type AudioOutput struct {
	mu sync.Mutex

	Drain    bool
	StartErr error

	StartCalls int
	StopCalls  int
	Pauses     []bool
	Bytes      int
	Source     ports.PCMSource

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (m *AudioOutput) Start(src ports.PCMSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if m.StartErr != nil {
		return m.StartErr
	}
	m.Source = src
	if !m.Drain {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			buf, ok := src.Pop(ctx)
			if !ok {
				return
			}
			m.mu.Lock()
			m.Bytes += buf.Len()
			m.mu.Unlock()
		}
	}()
	return nil
}

func (m *AudioOutput) Pause(paused bool) {
	m.mu.Lock()
	m.Pauses = append(m.Pauses, paused)
	m.mu.Unlock()
}

func (m *AudioOutput) Stop() error {
	m.mu.Lock()
	m.StopCalls++
	cancel := m.cancel
	m.mu.Unlock()

	m.wg.Wait()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Received returns the number of PCM bytes drained.
func (m *AudioOutput) Received() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Bytes
}

// Stops returns the number of Stop calls.
func (m *AudioOutput) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StopCalls
}

var _ ports.AudioOutput = (*AudioOutput)(nil)

// Resampler is a mock implementation of ports.Resampler that converts
// samples to S16LE without changing rate or channel layout.
type Resampler struct {
	mu     sync.Mutex
	Out    media.AudioFormat
	Resets int
	Closes int
}

func (m *Resampler) Convert(frame media.AudioFrame) (media.PCMBuffer, error) {
	data := make([]byte, len(frame.Samples)*2)
	for i, s := range frame.Samples {
		v := int16(s * 32767)
		data[2*i] = byte(v)
		data[2*i+1] = byte(v >> 8)
	}
	return media.PCMBuffer{Format: m.Out, Data: data, PTS: frame.PTS}, nil
}

func (m *Resampler) Reset() {
	m.mu.Lock()
	m.Resets++
	m.mu.Unlock()
}

func (m *Resampler) Close() error {
	m.mu.Lock()
	m.Closes++
	m.mu.Unlock()
	return nil
}

// Counts returns reset and close counts.
func (m *Resampler) Counts() (resets, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Resets, m.Closes
}

var _ ports.Resampler = (*Resampler)(nil)

// ResamplerFactory is a mock implementation of ports.ResamplerFactory.
type ResamplerFactory struct {
	Resampler *Resampler
	OpenErr   error
}

func (m *ResamplerFactory) Open(in, out media.AudioFormat) (ports.Resampler, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.Resampler == nil {
		m.Resampler = &Resampler{}
	}
	m.Resampler.Out = out
	return m.Resampler, nil
}

var _ ports.ResamplerFactory = (*ResamplerFactory)(nil)
