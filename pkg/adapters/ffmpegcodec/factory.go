package ffmpegcodec

import (
	"fmt"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// Options configures the codec factory.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string

	// Width and Height are used when the container does not report the
	// picture size.
	Width  int
	Height int
}

// Factory implements ports.CodecFactory on top of ffmpeg.
type Factory struct {
	ffmpegPath string
	opts       Options
}

// NewFactory locates ffmpeg and returns a factory.
func NewFactory(opts Options, logger ports.Logger) (*Factory, error) {
	if opts.FFmpegPath != "" {
		SetFFmpegPath(opts.FFmpegPath)
	}
	path, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}
	logger.Debug("Using ffmpeg at %s", path)

	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 640, 360
	}
	return &Factory{ffmpegPath: path, opts: opts}, nil
}

// OpenVideo returns a decoder for H.264 or H.265 streams.
func (f *Factory) OpenVideo(desc media.StreamDescriptor) (ports.VideoDecoder, error) {
	var format string
	switch desc.Codec {
	case "h264":
		format = "h264"
	case "hevc":
		format = "hevc"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, desc.Codec)
	}

	width, height := desc.Width, desc.Height
	if width <= 0 || height <= 0 {
		width, height = f.opts.Width, f.opts.Height
	}
	return newVideoDecoder(f.ffmpegPath, format, width, height), nil
}

// OpenAudio returns a decoder for AAC streams.
func (f *Factory) OpenAudio(desc media.StreamDescriptor) (ports.AudioDecoder, error) {
	if desc.Codec != "aac" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, desc.Codec)
	}
	d, err := newAudioDecoder(f.ffmpegPath, desc)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Ensure Factory implements ports.CodecFactory
var _ ports.CodecFactory = (*Factory)(nil)
