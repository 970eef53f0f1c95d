// Package containerdetect detects the container format of a media file and
// opens the matching demuxer.
package containerdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/user/mediaplay/pkg/adapters/mp4demuxer"
	"github.com/user/mediaplay/pkg/adapters/tsdemuxer"
	"github.com/user/mediaplay/pkg/ports"
)

// Container represents a container format.
type Container string

const (
	ContainerMP4     Container = "mp4"
	ContainerMPEGTS  Container = "mpegts"
	ContainerUnknown Container = "unknown"
)

// ErrUnknownContainer is returned when the input matches no supported container.
var ErrUnknownContainer = errors.New("containerdetect: unknown container format")

const tsPacketSize = 188

// sniffSize covers an MP4 box header and three TS sync bytes.
const sniffSize = 3*tsPacketSize + 1

var mp4BoxTypes = [][]byte{
	[]byte("ftyp"), []byte("moov"), []byte("mdat"), []byte("free"), []byte("skip"), []byte("wide"), []byte("styp"),
}

// DetectFromFile detects the container format of a file.
func DetectFromFile(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the container format from the head of r.
func DetectFromReader(r io.Reader) (Container, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ContainerUnknown, fmt.Errorf("read header: %w", err)
	}
	return DetectFromBytes(head[:n])
}

// DetectFromBytes detects the container format from the leading bytes of a file.
func DetectFromBytes(head []byte) (Container, error) {
	if len(head) >= 8 {
		for _, t := range mp4BoxTypes {
			if bytes.Equal(head[4:8], t) {
				return ContainerMP4, nil
			}
		}
	}

	if len(head) > 0 && head[0] == 0x47 {
		synced := true
		for off := tsPacketSize; off < len(head); off += tsPacketSize {
			if head[off] != 0x47 {
				synced = false
				break
			}
		}
		if synced {
			return ContainerMPEGTS, nil
		}
	}

	return ContainerUnknown, ErrUnknownContainer
}

// Opener implements ports.ContainerOpener for local files.
type Opener struct{}

// NewOpener creates a new Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open detects the container of the file at uri and opens its demuxer.
func (o *Opener) Open(uri string) (ports.Demuxer, error) {
	container, err := DetectFromFile(uri)
	if err != nil {
		return nil, err
	}

	switch container {
	case ContainerMP4:
		d, err := mp4demuxer.Open(uri)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ContainerMPEGTS:
		d, err := tsdemuxer.Open(uri)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, ErrUnknownContainer
	}
}

// Ensure Opener implements ports.ContainerOpener
var _ ports.ContainerOpener = (*Opener)(nil)
