package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteFileMakesSnapshotDirs(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "flat", path: filepath.Join(dir, "report.md")},
		{name: "nested", path: filepath.Join(dir, "snapshots", "0001", "frame-000025.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.WriteFile(tt.path, []byte("png")); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			data, err := os.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("expected file at %s: %v", tt.path, err)
			}
			if string(data) != "png" {
				t.Errorf("unexpected contents %q", data)
			}
		})
	}
}

func TestFileSystem_MkdirAllIsIdempotent(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "snapshots", "session")

	for i := 0; i < 2; i++ {
		if err := fs.MkdirAll(dir); err != nil {
			t.Fatalf("MkdirAll #%d failed: %v", i+1, err)
		}
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("expected directory %s, err %v", dir, err)
	}
}

func TestFileSystem_CreateStreamsFrames(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", "frames.rgba")

	w, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := w.Write([]byte{byte(i), byte(i)}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "\x00\x00\x01\x01\x02\x02" {
		t.Errorf("unexpected contents: %v", data)
	}
}

func TestFileSystem_CreateTruncatesPreviousOutput(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "audio.pcm")
	if err := os.WriteFile(path, make([]byte, 64), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte{1, 2})
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != 2 {
		t.Errorf("expected 2 bytes after rewrite, got %d", st.Size())
	}
}

func TestFileSystem_CreateUnderFileFails(t *testing.T) {
	fs := New()
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := fs.Create(filepath.Join(blocker, "frames.rgba")); err == nil {
		t.Error("expected an error when the parent is a regular file")
	}
}
