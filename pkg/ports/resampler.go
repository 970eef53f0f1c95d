package ports

import "github.com/user/mediaplay/pkg/media"

// Resampler converts decoded audio into interleaved S16LE in the output format.
type Resampler interface {
	// Convert resamples one block. Filter state carries across calls.
	Convert(frame media.AudioFrame) (media.PCMBuffer, error)

	// Reset drops carried filter state, used after a seek.
	Reset()

	// Close releases resampler resources.
	Close() error
}

// ResamplerFactory opens a resampler from the source format to the output format.
type ResamplerFactory interface {
	Open(in, out media.AudioFormat) (Resampler, error)
}
