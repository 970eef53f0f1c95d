package pcmfile

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/user/mediaplay/pkg/adapters/logger"
	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/mocks"
	"github.com/user/mediaplay/pkg/pipeline"
)

func TestOutput_WritesUntilFinished(t *testing.T) {
	fs := mocks.NewFileSystem()
	pcm := pipeline.NewPCMQueue(media.AudioFormat{SampleRate: 8000, Channels: 1})
	out := New(fs, "out.pcm", logger.NewNoop())

	if err := out.Start(pcm); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pcm.Push(media.PCMBuffer{Data: []byte{1, 2}})
	pcm.Push(media.PCMBuffer{Data: []byte{3, 4, 5, 6}})
	pcm.SetFinished(true)

	if err := out.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	data, ok := fs.GetFile("out.pcm")
	if !ok {
		t.Fatal("expected output file")
	}
	if string(data) != string([]byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("unexpected contents %v", data)
	}
	if out.Written() != 6 {
		t.Errorf("expected 6 bytes written, got %d", out.Written())
	}
}

func TestOutput_PauseHoldsWrites(t *testing.T) {
	fs := mocks.NewFileSystem()
	pcm := pipeline.NewPCMQueue(media.AudioFormat{SampleRate: 8000, Channels: 1})
	out := New(fs, "out.pcm", logger.NewNoop())
	out.Pause(true)
	out.Start(pcm)

	pcm.Push(media.PCMBuffer{Data: make([]byte, 10)})
	time.Sleep(30 * time.Millisecond)
	if out.Written() != 0 {
		t.Fatalf("expected no writes while paused, got %d", out.Written())
	}

	out.Pause(false)
	deadline := time.Now().Add(2 * time.Second)
	for out.Written() != 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if out.Written() != 10 {
		t.Errorf("expected 10 bytes after resume, got %d", out.Written())
	}

	pcm.SetFinished(true)
	out.Stop()
}

func TestOutput_StopWhilePaused(t *testing.T) {
	fs := mocks.NewFileSystem()
	pcm := pipeline.NewPCMQueue(media.AudioFormat{SampleRate: 8000, Channels: 1})
	out := New(fs, "out.pcm", logger.NewNoop())
	out.Start(pcm)
	out.Pause(true)
	pcm.SetFinished(true)

	done := make(chan struct{})
	go func() {
		out.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked while paused")
	}
}

func TestOutput_CreateError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.CreateFunc = func(path string) (io.WriteCloser, error) {
		return nil, errors.New("read-only")
	}
	out := New(fs, "out.pcm", logger.NewNoop())
	if err := out.Start(pipeline.NewPCMQueue(media.AudioFormat{})); err == nil {
		t.Error("expected Start to fail")
	}
	if err := out.Stop(); err != nil {
		t.Errorf("Stop without Start should be a no-op, got %v", err)
	}
}
