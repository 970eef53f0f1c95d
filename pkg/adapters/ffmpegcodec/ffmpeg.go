// Package ffmpegcodec decodes video and audio units by streaming them through
// an external ffmpeg process.
package ffmpegcodec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not found.
	ErrFFmpegNotFound = errors.New("ffmpegcodec: ffmpeg not found in PATH")

	// ErrUnsupportedCodec is returned for codecs the adapter cannot feed to ffmpeg.
	ErrUnsupportedCodec = errors.New("ffmpegcodec: unsupported codec")

	// ErrClosed is returned by Decode after Close.
	ErrClosed = errors.New("ffmpegcodec: decoder closed")
)

var (
	customPathMu     sync.RWMutex
	customFFmpegPath string
)

// SetFFmpegPath sets a custom path to the ffmpeg binary.
func SetFFmpegPath(path string) {
	customPathMu.Lock()
	customFFmpegPath = path
	customPathMu.Unlock()
}

// IsAvailable reports whether ffmpeg can be found.
func IsAvailable() bool {
	_, err := FindFFmpeg()
	return err == nil
}

// FindFFmpeg searches for ffmpeg.
// Priority: 1) custom path (SetFFmpegPath), 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg() (string, error) {
	customPathMu.RLock()
	custom := customFFmpegPath
	customPathMu.RUnlock()

	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		}
	default:
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// inputArgs are shared by every decode process: read from stdin with
// minimal probing so the first frames come out without buffering delay.
func inputArgs(format string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", format,
		"-i", "pipe:0",
	}
}
