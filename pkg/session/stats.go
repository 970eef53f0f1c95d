package session

import "sync/atomic"

// Stats holds pipeline counters updated by the stages.
type Stats struct {
	VideoUnits      atomic.Int64
	AudioUnits      atomic.Int64
	FramesDecoded   atomic.Int64
	FramesPresented atomic.Int64
	FramesDropped   atomic.Int64
	DecodeErrors    atomic.Int64
	PresentErrors   atomic.Int64
	AudioFrames     atomic.Int64
	PCMBytes        atomic.Int64
	Seeks           atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	VideoUnits      int64
	AudioUnits      int64
	FramesDecoded   int64
	FramesPresented int64
	FramesDropped   int64
	DecodeErrors    int64
	PresentErrors   int64
	AudioFrames     int64
	PCMBytes        int64
	Seeks           int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		VideoUnits:      s.VideoUnits.Load(),
		AudioUnits:      s.AudioUnits.Load(),
		FramesDecoded:   s.FramesDecoded.Load(),
		FramesPresented: s.FramesPresented.Load(),
		FramesDropped:   s.FramesDropped.Load(),
		DecodeErrors:    s.DecodeErrors.Load(),
		PresentErrors:   s.PresentErrors.Load(),
		AudioFrames:     s.AudioFrames.Load(),
		PCMBytes:        s.PCMBytes.Load(),
		Seeks:           s.Seeks.Load(),
	}
}
