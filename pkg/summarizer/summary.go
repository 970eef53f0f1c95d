// Package summarizer provides summary generation for playback sessions.
package summarizer

import (
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/session"
)

// Summary contains all data collected during a playback session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Input information
	Input InputInfo

	// Stream metadata reported by the controller
	Media media.Info

	// Playback settings
	Settings Settings

	// Outcome
	Result ResultInfo
}

// InputInfo describes the played file.
type InputInfo struct {
	URI  string
	Size int64 // bytes, 0 if unknown
}

// Settings contains the playback configuration.
type Settings struct {
	Speed       float64
	Pace        bool
	Renderer    string
	VideoOutput string

	AudioOutput string // empty when audio is disabled
	SampleRate  int
	Channels    int
}

// ResultInfo contains the session outcome and pipeline counters.
type ResultInfo struct {
	State   string
	Elapsed time.Duration
	Error   string
	Stats   session.StatsSnapshot
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets input information.
func (b *Builder) WithInput(uri string, size int64) *Builder {
	b.summary.Input = InputInfo{
		URI:  uri,
		Size: size,
	}
	return b
}

// WithMedia sets the stream metadata.
func (b *Builder) WithMedia(info media.Info) *Builder {
	b.summary.Media = info
	return b
}

// WithSettings sets playback settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithResult sets the outcome. err may be nil.
func (b *Builder) WithResult(state string, elapsed time.Duration, stats session.StatsSnapshot, err error) *Builder {
	b.summary.Result = ResultInfo{
		State:   state,
		Elapsed: elapsed,
		Stats:   stats,
	}
	if err != nil {
		b.summary.Result.Error = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

// Realtime returns media duration divided by elapsed wall time, or 0 when
// either is unknown.
func (s *Summary) Realtime() float64 {
	if s.Media.Duration <= 0 || s.Result.Elapsed <= 0 {
		return 0
	}
	return s.Media.Duration.Seconds() / s.Result.Elapsed.Seconds()
}
