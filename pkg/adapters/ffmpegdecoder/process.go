package ffmpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// process is one ffmpeg invocation. Packets are written to stdin while a
// reader goroutine splits stdout into fixed-size output chunks.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	mu     sync.Mutex
	cond   *sync.Cond
	chunks [][]byte
	err    error
	done   chan struct{}
}

func startProcess(ffmpegPath string, args []string, chunkSize int) (*process, error) {
	p := &process{done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)

	p.cmd = exec.Command(ffmpegPath, args...)
	p.cmd.Stderr = &p.stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	p.stdin = stdin

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go p.readLoop(stdout, chunkSize)
	return p, nil
}

func (p *process) readLoop(stdout io.Reader, chunkSize int) {
	defer close(p.done)

	for {
		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 && (err == nil || errors.Is(err, io.ErrUnexpectedEOF)) {
			p.mu.Lock()
			p.chunks = append(p.chunks, buf[:n])
			p.cond.Broadcast()
			p.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				p.mu.Lock()
				p.err = err
				p.mu.Unlock()
			}
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
			return
		}
	}
}

func (p *process) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// take removes and returns all chunks read so far.
func (p *process) take() ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	chunks := p.chunks
	p.chunks = nil
	return chunks, p.err
}

// waitOutput blocks until at least one chunk is available, the output ends
// or the timeout elapses.
func (p *process) waitOutput(timeout time.Duration) {
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	deadline := time.Now().Add(timeout)
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.chunks) == 0 && time.Now().Before(deadline) {
		select {
		case <-p.done:
			return
		default:
		}
		p.cond.Wait()
	}
}

// finish closes stdin, waits for ffmpeg to exit and returns the remaining
// output.
func (p *process) finish() ([][]byte, error) {
	p.stdin.Close()
	<-p.done
	waitErr := p.cmd.Wait()

	chunks, readErr := p.take()
	if readErr != nil {
		return chunks, fmt.Errorf("read output: %w", readErr)
	}
	if waitErr != nil {
		return chunks, fmt.Errorf("ffmpeg decode failed: %w\nstderr: %s", waitErr, p.stderr.String())
	}
	return chunks, nil
}

// kill stops ffmpeg and discards its output.
func (p *process) kill() {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
	p.cmd.Wait()
}
