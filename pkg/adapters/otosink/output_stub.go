//go:build linux && !cgo

package otosink

import (
	"github.com/user/mediaplay/pkg/ports"
)

// Output is unavailable without cgo on Linux.
type Output struct{}

// New creates an output whose Start always fails.
func New(opts Options, logger ports.Logger) *Output {
	return &Output{}
}

func (o *Output) Start(src ports.PCMSource) error {
	if err := validate(src.Format()); err != nil {
		return err
	}
	return ErrPlatformNotSupported
}

func (o *Output) Pause(paused bool) {}

func (o *Output) Stop() error {
	return nil
}
