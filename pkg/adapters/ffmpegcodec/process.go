package ffmpegcodec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/user/mediaplay/pkg/pipeline"
)

// stderrLimit bounds the captured ffmpeg diagnostics.
const stderrLimit = 4096

// chunkReader reads one output chunk. It returns io.EOF when output ends.
type chunkReader func(r *bufio.Reader) ([]byte, error)

// process is one running ffmpeg instance. Units go in on stdin; a reader
// goroutine splits stdout into chunks and queues them.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *pipeline.Queue[[]byte]
	stderr *tailBuffer
	done   chan struct{}
}

func startProcess(path string, args []string, read chunkReader) (*process, error) {
	cmd := exec.Command(path, args...)
	stderr := &tailBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		out:    pipeline.NewQueue[[]byte](),
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go p.readLoop(bufio.NewReaderSize(stdout, 256*1024), read)
	return p, nil
}

func (p *process) readLoop(r *bufio.Reader, read chunkReader) {
	defer close(p.done)
	defer p.out.SetFinished(true)
	for {
		chunk, err := read(r)
		if len(chunk) > 0 {
			p.out.Push(chunk)
		}
		if err != nil {
			return
		}
	}
}

// write feeds input data. A write failure usually means ffmpeg exited;
// the error carries its diagnostics.
func (p *process) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("write to ffmpeg: %w: %s", err, p.stderr.String())
	}
	return nil
}

// ready returns the chunks decoded so far without blocking.
func (p *process) ready() [][]byte {
	var chunks [][]byte
	for {
		c, ok := p.out.TryPop()
		if !ok {
			return chunks
		}
		chunks = append(chunks, c)
	}
}

// finish closes stdin and collects everything ffmpeg still produces.
func (p *process) finish() ([][]byte, error) {
	p.stdin.Close()
	<-p.done
	chunks := p.ready()
	if err := p.cmd.Wait(); err != nil {
		return chunks, fmt.Errorf("ffmpeg exited: %w: %s", err, p.stderr.String())
	}
	return chunks, nil
}

// kill stops the process and discards pending output.
func (p *process) kill() {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
	p.cmd.Wait()
	p.out.Flush()
}

// readFull reads exactly size bytes per chunk and drops a trailing partial chunk.
func readFull(size int) chunkReader {
	return func(r *bufio.Reader) ([]byte, error) {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		return buf, nil
	}
}

// readAligned reads up to size bytes per chunk, trimmed to a multiple of align.
func readAligned(size, align int) chunkReader {
	return func(r *bufio.Reader) ([]byte, error) {
		buf := make([]byte, size)
		n, err := io.ReadFull(r, buf)
		n -= n % align
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return buf[:n], err
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = append([]byte(nil), t.buf[len(t.buf)-t.limit:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
