package mocks

import (
	"image"
	"sync"
	"time"

	"github.com/user/mediaplay/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
// It records every presented timestamp and the wall-clock time of each call.
type Renderer struct {
	mu sync.Mutex

	InitFunc    func(width, height int) error
	PresentFunc func(frame *image.RGBA, pts time.Duration) error
	ReleaseFunc func() error

	Width, Height int
	InitCalls     int
	ReleaseCalls  int
	Presented     []time.Duration
	PresentTimes  []time.Time

	// OnPresent, when set, is called after a frame is recorded.
	OnPresent func(n int, pts time.Duration)
}

func (m *Renderer) Init(width, height int) error {
	m.mu.Lock()
	m.InitCalls++
	m.Width, m.Height = width, height
	m.mu.Unlock()
	if m.InitFunc != nil {
		return m.InitFunc(width, height)
	}
	return nil
}

func (m *Renderer) Present(frame *image.RGBA, pts time.Duration) error {
	if m.PresentFunc != nil {
		if err := m.PresentFunc(frame, pts); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Presented = append(m.Presented, pts)
	m.PresentTimes = append(m.PresentTimes, time.Now())
	n := len(m.Presented)
	cb := m.OnPresent
	m.mu.Unlock()
	if cb != nil {
		cb(n, pts)
	}
	return nil
}

func (m *Renderer) Release() error {
	m.mu.Lock()
	m.ReleaseCalls++
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return nil
}

// PresentedPTS returns a copy of the presented timestamps.
func (m *Renderer) PresentedPTS() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.Presented...)
}

// Times returns a copy of the wall-clock present times.
func (m *Renderer) Times() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.PresentTimes...)
}

// Releases returns the number of Release calls.
func (m *Renderer) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReleaseCalls
}

var _ ports.Renderer = (*Renderer)(nil)
