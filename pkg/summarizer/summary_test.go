package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/mocks"
	"github.com/user/mediaplay/pkg/session"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithInput(t *testing.T) {
	summary := NewBuilder().
		WithInput("clip.mp4", 4096).
		Build()

	if summary.Input.URI != "clip.mp4" {
		t.Errorf("expected URI 'clip.mp4', got '%s'", summary.Input.URI)
	}
	if summary.Input.Size != 4096 {
		t.Errorf("expected size 4096, got %d", summary.Input.Size)
	}
}

func TestBuilder_WithResult(t *testing.T) {
	stats := session.StatsSnapshot{FramesPresented: 50}
	summary := NewBuilder().
		WithResult("completed", 2*time.Second, stats, nil).
		Build()

	if summary.Result.State != "completed" || summary.Result.Error != "" {
		t.Errorf("unexpected result %+v", summary.Result)
	}
	if summary.Result.Stats.FramesPresented != 50 {
		t.Errorf("expected 50 frames presented, got %d", summary.Result.Stats.FramesPresented)
	}

	summary = NewBuilder().
		WithResult("completed", time.Second, stats, errors.New("renderer failed")).
		Build()
	if summary.Result.Error != "renderer failed" {
		t.Errorf("expected error text, got %q", summary.Result.Error)
	}
}

func TestSummary_Realtime(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		elapsed  time.Duration
		want     float64
	}{
		{"twice realtime", 10 * time.Second, 5 * time.Second, 2},
		{"unknown duration", 0, 5 * time.Second, 0},
		{"no elapsed time", 10 * time.Second, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBuilder().
				WithMedia(media.Info{Duration: tt.duration}).
				WithResult("completed", tt.elapsed, session.StatsSnapshot{}, nil).
				Build()
			if got := s.Realtime(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	formatter := FormatFunc(func(s *Summary) string {
		return "input: " + s.Input.URI
	})
	w := NewWriter(fs, formatter)

	summary := NewBuilder().WithInput("clip.ts", 0).Build()
	if err := w.Write("out/report.md", summary); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile("out/report.md")
	if !ok {
		t.Fatal("expected report to be written")
	}
	if string(data) != "input: clip.ts" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error {
		return errors.New("disk full")
	}
	w := NewWriter(fs, NewMarkdownFormatter())

	err := w.Write("report.md", NewSummary())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}
