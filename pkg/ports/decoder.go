package ports

import (
	"github.com/user/mediaplay/pkg/media"
)

// Decoder turns compressed units into decoded frames.
//
// A single Decode call may yield zero or more frames. Passing a nil unit drains
// frames buffered inside the decoder at end of stream.
type Decoder[F any] interface {
	// Decode submits one unit and returns every frame that became available.
	Decode(unit *media.Unit) ([]F, error)

	// Flush discards buffered state so that decoding can restart at a keyframe.
	Flush()

	// Close releases decoder resources.
	Close() error
}

// VideoDecoder decodes video units into pictures.
type VideoDecoder = Decoder[media.VideoFrame]

// AudioDecoder decodes audio units into float32 sample blocks.
type AudioDecoder = Decoder[media.AudioFrame]

// CodecFactory opens decoders for stream descriptors.
type CodecFactory interface {
	OpenVideo(desc media.StreamDescriptor) (VideoDecoder, error)
	OpenAudio(desc media.StreamDescriptor) (AudioDecoder, error)
}
