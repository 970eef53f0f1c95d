package video

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/mediaplay/pkg/adapters/logger"
	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/mocks"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/session"
)

func fillQueue(q *pipeline.UnitQueue, n int, step time.Duration) {
	for i := 0; i < n; i++ {
		q.Push(&media.Unit{Role: media.RoleVideo, Data: []byte{1}, PTS: time.Duration(i) * step})
	}
}

func runStage(t *testing.T, st *Stage) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- st.Run(context.Background())
	}()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("stage did not exit")
		return nil
	}
}

func TestStage_PresentsAllFramesInOrder(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 20, 40*time.Millisecond)
	q.SetFinished(true)

	dec := &mocks.VideoDecoder{Width: 32, Height: 24, Delay: 2}
	rend := &mocks.Renderer{}
	sess := session.New(1)

	st := New(q, dec, rend, sess, Config{Width: 32, Height: 24, FrameRate: 25}, logger.NewNoop())
	if err := waitErr(t, runStage(t, st)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rend.PresentedPTS()
	if len(got) != 20 {
		t.Fatalf("expected 20 frames (including drained), got %d", len(got))
	}
	for i, pts := range got {
		if pts != time.Duration(i)*40*time.Millisecond {
			t.Errorf("frame %d: pts %v out of order", i, pts)
		}
	}

	if _, drains, _, closes := dec.Snapshot(); drains != 1 || closes != 1 {
		t.Errorf("expected one drain and one close, got %d and %d", drains, closes)
	}
	if rend.InitCalls != 1 || rend.Releases() != 1 {
		t.Errorf("expected one init and one release, got %d and %d", rend.InitCalls, rend.Releases())
	}
}

func TestStage_PacingFollowsSpeed(t *testing.T) {
	measure := func(speed float64) time.Duration {
		q := pipeline.NewUnitQueue()
		fillQueue(q, 11, 20*time.Millisecond)
		q.SetFinished(true)

		rend := &mocks.Renderer{}
		sess := session.New(speed)
		st := New(q, &mocks.VideoDecoder{Width: 8, Height: 8}, rend, sess,
			Config{Width: 8, Height: 8, FrameRate: 50, Pace: true}, logger.NewNoop())
		if err := waitErr(t, runStage(t, st)); err != nil {
			t.Fatalf("Run: %v", err)
		}

		times := rend.Times()
		if len(times) != 11 {
			t.Fatalf("expected 11 frames, got %d", len(times))
		}
		return times[len(times)-1].Sub(times[0]) / time.Duration(len(times)-1)
	}

	normal := measure(1)
	double := measure(2)

	// 1/50/1 = 20ms, 1/50/2 = 10ms.
	if normal < 18*time.Millisecond || normal > 40*time.Millisecond {
		t.Errorf("speed 1: mean interval %v, want about 20ms", normal)
	}
	if double < 9*time.Millisecond || double > 25*time.Millisecond {
		t.Errorf("speed 2: mean interval %v, want about 10ms", double)
	}
	if double >= normal {
		t.Errorf("interval at speed 2 (%v) should be below speed 1 (%v)", double, normal)
	}
}

func TestStage_PauseResumeKeepsEveryFrame(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 30, 10*time.Millisecond)
	q.SetFinished(true)

	sess := session.New(1)
	rend := &mocks.Renderer{}
	rend.OnPresent = func(n int, pts time.Duration) {
		if n == 10 {
			sess.SetPaused(true)
		}
	}

	st := New(q, &mocks.VideoDecoder{Width: 8, Height: 8}, rend, sess,
		Config{Width: 8, Height: 8, FrameRate: 100}, logger.NewNoop())
	errCh := runStage(t, st)

	time.Sleep(100 * time.Millisecond)
	if n := len(rend.PresentedPTS()); n != 10 {
		t.Fatalf("expected presentation to halt at 10 frames while paused, got %d", n)
	}

	sess.SetPaused(false)
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rend.PresentedPTS()
	if len(got) != 30 {
		t.Fatalf("expected 30 frames after resume, got %d", len(got))
	}
	for i, pts := range got {
		if pts != time.Duration(i)*10*time.Millisecond {
			t.Fatalf("frame %d out of order: %v", i, pts)
		}
	}
}

func TestStage_StopWhilePaused(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 5, 10*time.Millisecond)

	sess := session.New(1)
	sess.SetPaused(true)
	dec := &mocks.VideoDecoder{Width: 8, Height: 8}
	rend := &mocks.Renderer{}

	st := New(q, dec, rend, sess, Config{Width: 8, Height: 8, FrameRate: 25}, logger.NewNoop())
	errCh := runStage(t, st)

	time.Sleep(30 * time.Millisecond)
	sess.Stop()

	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(rend.PresentedPTS()); n != 0 {
		t.Errorf("expected no frames presented, got %d", n)
	}
	if _, _, _, closes := dec.Snapshot(); closes != 1 {
		t.Errorf("expected decoder closed once, got %d", closes)
	}
	if rend.Releases() != 1 {
		t.Errorf("expected renderer released once, got %d", rend.Releases())
	}
}

func TestStage_DropsStaleEpochAndFlushes(t *testing.T) {
	q := pipeline.NewUnitQueue()
	sess := session.New(1)

	// Units from epoch 0 that arrive after a seek moved the session to epoch 1.
	q.Push(&media.Unit{Role: media.RoleVideo, PTS: 0, Epoch: 0})
	q.Push(&media.Unit{Role: media.RoleVideo, PTS: 40 * time.Millisecond, Epoch: 0})
	sess.NextEpoch()
	q.Push(media.NewFlushUnit(media.RoleVideo, 1))
	q.Push(&media.Unit{Role: media.RoleVideo, PTS: 2 * time.Second, Epoch: 1})
	q.SetFinished(true)

	dec := &mocks.VideoDecoder{Width: 8, Height: 8}
	rend := &mocks.Renderer{}
	st := New(q, dec, rend, sess, Config{Width: 8, Height: 8, FrameRate: 25}, logger.NewNoop())
	if err := waitErr(t, runStage(t, st)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rend.PresentedPTS()
	if len(got) != 1 || got[0] != 2*time.Second {
		t.Fatalf("expected only the post-seek frame, got %v", got)
	}
	if sess.Stats.FramesDropped.Load() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", sess.Stats.FramesDropped.Load())
	}
	if _, _, flushes, _ := dec.Snapshot(); flushes != 1 {
		t.Errorf("expected one decoder flush, got %d", flushes)
	}
}

func TestStage_SkipsUndecodableUnits(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 5, 100*time.Millisecond)
	q.SetFinished(true)

	dec := &mocks.VideoDecoder{Width: 8, Height: 8, FailPTS: map[time.Duration]bool{200 * time.Millisecond: true}}
	rend := &mocks.Renderer{}
	sess := session.New(1)

	st := New(q, dec, rend, sess, Config{Width: 8, Height: 8, FrameRate: 10}, logger.NewNoop())
	if err := waitErr(t, runStage(t, st)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := len(rend.PresentedPTS()); n != 4 {
		t.Errorf("expected 4 frames, got %d", n)
	}
	if sess.Stats.DecodeErrors.Load() != 1 {
		t.Errorf("expected 1 decode error, got %d", sess.Stats.DecodeErrors.Load())
	}
}

func TestStage_RendererInitFailure(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 3, 10*time.Millisecond)
	q.SetFinished(true)

	dec := &mocks.VideoDecoder{Width: 8, Height: 8}
	rend := &mocks.Renderer{InitFunc: func(w, h int) error { return errors.New("no display") }}

	st := New(q, dec, rend, session.New(1), Config{Width: 8, Height: 8, FrameRate: 25}, logger.NewNoop())
	err := waitErr(t, runStage(t, st))
	if !errors.Is(err, ErrRendererInit) {
		t.Fatalf("expected ErrRendererInit, got %v", err)
	}
	if _, _, _, closes := dec.Snapshot(); closes != 1 {
		t.Errorf("expected decoder closed on init failure, got %d", closes)
	}
}

func TestStage_ScalesToBuffer(t *testing.T) {
	q := pipeline.NewUnitQueue()
	fillQueue(q, 1, 0)
	q.SetFinished(true)

	var size [2]int
	rend := &mocks.Renderer{}
	rend.PresentFunc = func(frame *image.RGBA, pts time.Duration) error {
		size = [2]int{frame.Bounds().Dx(), frame.Bounds().Dy()}
		return nil
	}

	st := New(q, &mocks.VideoDecoder{Width: 64, Height: 48}, rend, session.New(1),
		Config{Width: 32, Height: 24, FrameRate: 25}, logger.NewNoop())
	if err := waitErr(t, runStage(t, st)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if size != [2]int{32, 24} {
		t.Errorf("expected 32x24 buffer, got %v", size)
	}
}
